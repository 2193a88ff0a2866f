package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a store, the steps driven against it, and the
// assertions checked afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the store's construction-time state.
	Initial map[string]any `yaml:"initial"`

	// Rules map action labels to the operations they apply.
	Rules map[string][]Rule `yaml:"rules"`

	// Location enables navigator synchronization when set.
	Location *LocationSpec `yaml:"location,omitempty"`

	// Guards is an optional CUE document of payload schemas keyed by
	// action label.
	Guards string `yaml:"guards,omitempty"`

	// Steps run in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the devtools trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Rule is one reducer operation.
type Rule struct {
	// Op is one of set, add, append, unset.
	Op string `yaml:"op" json:"op"`

	// Path is a dotted path into the state object.
	Path string `yaml:"path" json:"path"`

	// Value is the literal operand. add defaults to 1.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// From names a payload key (dotted) to take the operand from instead.
	From string `yaml:"from,omitempty" json:"from,omitempty"`
}

// Rule operations.
const (
	OpSet    = "set"
	OpAdd    = "add"
	OpAppend = "append"
	OpUnset  = "unset"
)

// LocationSpec connects a state field to the in-memory navigator.
type LocationSpec struct {
	// Field is the top-level state key holding the location.
	Field string `yaml:"field"`

	// Start is the navigator's initial location. Defaults to "/".
	Start string `yaml:"start,omitempty"`
}

// Step is a single scenario step. Exactly one of its kinds is set.
type Step struct {
	Dispatch    string         `yaml:"dispatch,omitempty" json:"dispatch,omitempty"`
	Payload     map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
	ExpectError string         `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`
	TimeTravel  *int           `yaml:"time_travel,omitempty" json:"time_travel,omitempty"`
	Reset       bool           `yaml:"reset,omitempty" json:"reset,omitempty"`
	Navigate    string         `yaml:"navigate,omitempty" json:"navigate,omitempty"`
	Back        bool           `yaml:"back,omitempty" json:"back,omitempty"`
	Ready       bool           `yaml:"ready,omitempty" json:"ready,omitempty"`
}

// Step kinds.
const (
	StepDispatch   = "dispatch"
	StepTimeTravel = "time_travel"
	StepReset      = "reset"
	StepNavigate   = "navigate"
	StepBack       = "back"
	StepReady      = "ready"
)

// Kind returns the step's kind, or "" when none or several are set.
func (s Step) Kind() string {
	var kinds []string
	if s.Dispatch != "" {
		kinds = append(kinds, StepDispatch)
	}
	if s.TimeTravel != nil {
		kinds = append(kinds, StepTimeTravel)
	}
	if s.Reset {
		kinds = append(kinds, StepReset)
	}
	if s.Navigate != "" {
		kinds = append(kinds, StepNavigate)
	}
	if s.Back {
		kinds = append(kinds, StepBack)
	}
	if s.Ready {
		kinds = append(kinds, StepReady)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": subset match of Expect against the state
	// - "history_length": exactly Count history entries
	// - "trace_contains": an entry labelled Action whose state matches Expect
	// - "trace_order": Actions appear in order
	// - "trace_count": Action appears exactly Count times
	// - "location": the navigator ends at Location
	Type string `yaml:"type"`

	// Action is the action label (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected label order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Expect contains expected values keyed by dotted path.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (history_length, trace_count).
	Count int `yaml:"count,omitempty"`

	// Location is the expected navigator location.
	Location string `yaml:"location,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertHistoryLength = "history_length"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertLocation      = "location"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Initial == nil {
		return fmt.Errorf("initial state is required (use {} for an empty object)")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for label, rules := range s.Rules {
		for i, r := range rules {
			if err := validateRule(r); err != nil {
				return fmt.Errorf("rules.%s[%d]: %w", label, i, err)
			}
		}
	}

	if s.Location != nil && s.Location.Field == "" {
		return fmt.Errorf("location.field is required when location is set")
	}

	for i, step := range s.Steps {
		kind := step.Kind()
		if kind == "" {
			return fmt.Errorf("steps[%d]: exactly one of dispatch, time_travel, reset, navigate, back, ready is required", i)
		}
		if kind != StepDispatch && (step.Payload != nil || step.ExpectError != "") {
			return fmt.Errorf("steps[%d]: payload and expect_error are only valid on dispatch", i)
		}
		if (kind == StepNavigate || kind == StepBack) && s.Location == nil {
			return fmt.Errorf("steps[%d]: %s requires a location block", i, kind)
		}
		if kind == StepTimeTravel && *step.TimeTravel < 0 {
			return fmt.Errorf("steps[%d]: time_travel index must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
		if assertion.Type == AssertLocation && s.Location == nil {
			return fmt.Errorf("assertions[%d]: location requires a location block", i)
		}
	}

	return nil
}

func validateRule(r Rule) error {
	switch r.Op {
	case OpSet, OpAppend:
		if r.Value == nil && r.From == "" {
			return fmt.Errorf("%s needs value or from", r.Op)
		}
	case OpAdd, OpUnset:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", r.Op)
	}
	if r.Path == "" {
		return fmt.Errorf("path is required")
	}
	if r.Value != nil && r.From != "" {
		return fmt.Errorf("value and from are mutually exclusive")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertHistoryLength:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be at least 1 for history_length", index)
		}
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertLocation:
		if a.Location == "" {
			return fmt.Errorf("assertions[%d]: location is required for location", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
