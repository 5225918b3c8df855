package rules

import (
	"errors"
	"fmt"

	"github.com/dukex/qmsflow/pkg/models"
)

var (
	ErrRuleNotFound     = errors.New("rule not found")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrUnknownAction    = errors.New("unknown action type")
	ErrUnknownModule    = errors.New("unknown target module")
	ErrMissingRecordID  = errors.New("event data has no record id")
	ErrNoWorkflowRunner = errors.New("no workflow runner configured")
)

// ActionError reports a failed action of a rule.
type ActionError struct {
	RuleID string
	Type   models.ActionType
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s of rule %s failed: %v", e.Type, e.RuleID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for action errors.
func (e *ActionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
