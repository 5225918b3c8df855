// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestRule creates an enabled AutomationRule listening to (audit, finding_created)
// with a single notification action. Overrides are applied in order.
func CreateTestRule(overrides ...func(*models.AutomationRule)) *models.AutomationRule {
	rule := &models.AutomationRule{
		ID:            uuid.New().String(),
		Name:          "Test Rule",
		Description:   "rule used in tests",
		Enabled:       true,
		TriggerModule: models.ModuleAudit,
		TriggerEvent:  "finding_created",
		Actions: []models.AutomationAction{
			{
				Type: models.ActionSendNotification,
				Notification: &models.NotificationParams{
					Recipients: []string{"Quality Manager"},
					Message:    "test notification",
				},
			},
		},
		CreatedBy: "test",
		CreatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(rule)
	}

	return rule
}

// WithTrigger sets the module and event the rule listens to.
func WithTrigger(module, event string) func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.TriggerModule = module
		r.TriggerEvent = event
	}
}

// WithConditions replaces the rule conditions.
func WithConditions(conditions ...models.AutomationCondition) func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Conditions = conditions
	}
}

// WithActions replaces the rule actions.
func WithActions(actions ...models.AutomationAction) func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Actions = actions
	}
}

// Disabled turns the rule off.
func Disabled() func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Enabled = false
	}
}

// CreateTestTemplate creates a single-step workflow template whose only step
// auto-creates a non-conformance.
func CreateTestTemplate(overrides ...func(*models.WorkflowTemplate)) *models.WorkflowTemplate {
	template := &models.WorkflowTemplate{
		ID:         "test-workflow",
		Name:       "Test Workflow",
		SourceType: models.ModuleAuditFinding,
		Steps: []models.WorkflowStep{
			{
				ID:           "create-nc",
				Name:         "Create Non-Conformance",
				ModuleType:   models.ModuleNonConformance,
				ActionType:   "create",
				AutoExecute:  true,
				Relationship: models.RelationshipGeneratedFrom,
			},
		},
	}

	for _, override := range overrides {
		override(template)
	}

	return template
}

// WithSteps replaces the template steps.
func WithSteps(steps ...models.WorkflowStep) func(*models.WorkflowTemplate) {
	return func(w *models.WorkflowTemplate) {
		w.Steps = steps
	}
}
