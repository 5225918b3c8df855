package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrInvalidTemplate  = errors.New("invalid workflow template")
	ErrUnknownModule    = errors.New("module has no record table")
)

// StepError reports a step whose body failed, aborting the run.
type StepError struct {
	WorkflowID string
	StepID     string
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s of workflow %s failed: %v", e.StepID, e.WorkflowID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for step errors.
func (e *StepError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsStepError reports whether err came from a failed step.
func IsStepError(err error) bool {
	var stepErr *StepError

	return errors.As(err, &stepErr)
}
