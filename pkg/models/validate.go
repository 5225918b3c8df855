package models

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator used for rule and workflow definitions.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	return validate
}

// ValidateRule checks a rule definition, including every typed action payload.
func ValidateRule(rule *AutomationRule) error {
	return Validator().Struct(rule)
}

// ValidateTemplate checks a workflow template definition.
func ValidateTemplate(template *WorkflowTemplate) error {
	return Validator().Struct(template)
}
