package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rewind/internal/codec"
	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/redux"
	"github.com/roach88/rewind/internal/testutil"
)

// Run executes a scenario against a fresh store and returns the result.
//
// Execution flow:
//  1. Build the store, guards, and navigator (see NewInstance)
//  2. Apply each step, flushing released devtools messages after each one
//  3. Compare dispatch errors with expect_error
//  4. Evaluate assertions against the final state and the trace
//
// An error is returned only when the scenario cannot be executed at all;
// failed expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	clock := testutil.NewDeterministicClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	inst, err := NewInstance(ctx, scenario, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	defer inst.Close()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	recorder := &devtools.Recorder{}
	var sink devtools.Transport = recorder
	if o.transcript != nil {
		sink = devtools.Fanout{recorder, o.transcript}
	}
	result := NewResult()

	for i, step := range scenario.Steps {
		err := inst.Apply(ctx, step)
		if step.Kind() == StepDispatch {
			checkDispatch(result, i, step, err)
		} else if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Kind(), err)
		}

		if err := inst.Bridge.Flush(ctx, sink); err != nil {
			return nil, fmt.Errorf("steps[%d]: flush devtools: %w", i, err)
		}
	}

	trace, err := buildTrace(recorder.Messages())
	if err != nil {
		return nil, err
	}
	result.Trace = trace
	result.State = inst.Store.State()
	result.HistoryLength = inst.Store.HistoryLen()
	result.Location = inst.Location()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// checkDispatch compares a dispatch outcome with the step's expect_error.
func checkDispatch(result *Result, index int, step Step, err error) {
	if step.ExpectError == "" {
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: dispatch %s failed: %v", index, step.Dispatch, err))
		}
		return
	}

	if err == nil {
		result.AddError(fmt.Sprintf("steps[%d]: dispatch %s succeeded, expected %s", index, step.Dispatch, step.ExpectError))
		return
	}

	var re *redux.Error
	if !errors.As(err, &re) || string(re.Code) != step.ExpectError {
		result.AddError(fmt.Sprintf("steps[%d]: dispatch %s failed with %v, expected %s", index, step.Dispatch, err, step.ExpectError))
	}
}

// buildTrace numbers delivered messages and decodes their state payloads.
func buildTrace(msgs []devtools.Message) ([]TraceEvent, error) {
	trace := make([]TraceEvent, 0, len(msgs))
	for i, msg := range msgs {
		var state any
		if msg.State != "" {
			decoded, err := codec.DeserializeJSON[any](msg.State)
			if err != nil {
				return nil, fmt.Errorf("trace[%d]: %w", i, err)
			}
			state = decoded
		}
		trace = append(trace, TraceEvent{
			Seq:         int64(i + 1),
			Kind:        string(msg.Kind),
			ActionLabel: msg.ActionLabel,
			State:       state,
		})
	}
	return trace, nil
}
