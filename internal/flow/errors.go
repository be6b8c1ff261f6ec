package flow

import (
	"errors"
	"fmt"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// ErrNoActiveFlow is returned by Engine.Handle when the user is idle.
var ErrNoActiveFlow = errors.New("no active flow")

// ValidationError is bad user input at the current step. The engine re-prompts
// the same step with Message and leaves the session untouched.
type ValidationError struct {
	Step    models.StepType
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input at step %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("invalid input at step %s", e.Step)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(step models.StepType, message string, err error) error {
	return &ValidationError{Step: step, Message: message, Err: err}
}

// PersistenceError is a failed gateway call. The engine keeps the session as
// it was and asks the user to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// StateError is an event for a flow or step that does not exist.
type StateError struct {
	Flow models.FlowType
	Step models.StepType
}

func (e *StateError) Error() string {
	return fmt.Sprintf("unknown step %q in flow %q", e.Step, e.Flow)
}
