package harness

// TraceEvent is one devtools message as the inspector received it.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Kind        string `json:"kind"`
	ActionLabel string `json:"action_label"`
	State       any    `json:"state"` // decoded from the serialized payload
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every devtools message delivered to the inspector.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final committed state.
	State State `json:"state"`

	// HistoryLength is the number of history entries, initial included.
	HistoryLength int `json:"history_length"`

	// Location is the navigator's final location, if any.
	Location string `json:"location,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  State{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Labels returns the action labels of the trace in order.
func (r *Result) Labels() []string {
	labels := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		labels[i] = e.ActionLabel
	}
	return labels
}
