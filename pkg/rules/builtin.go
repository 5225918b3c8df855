package rules

import (
	"time"

	"github.com/dukex/qmsflow/pkg/models"
)

// Ids of the built-in rules.
const (
	AutoNCFromCriticalAudit = "auto-nc-from-critical-audit"
	AutoEscalateOverdueCAPA = "auto-escalate-overdue-capa"
)

// BuiltinRulesCreatedAt is the fixed creation time of the built-in rules.
var BuiltinRulesCreatedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// BuiltinRules returns fresh copies of the rules every installation starts with.
func BuiltinRules() []*models.AutomationRule {
	return []*models.AutomationRule{
		{
			ID:            AutoNCFromCriticalAudit,
			Name:          "Auto-create NC from Critical Audit Findings",
			Description:   "Automatically create non-conformance when critical audit finding is identified",
			Enabled:       true,
			TriggerModule: models.ModuleAudit,
			TriggerEvent:  "finding_created",
			Conditions: []models.AutomationCondition{
				{Field: "severity", Operator: models.OperatorInArray, Value: []any{"critical", "major"}},
			},
			Actions: []models.AutomationAction{
				{
					Type:         models.ActionTriggerWorkflow,
					TargetModule: models.ModuleNonConformance,
					Workflow:     &models.TriggerWorkflowParams{WorkflowID: "audit-finding-resolution"},
				},
				{
					Type: models.ActionSendNotification,
					Notification: &models.NotificationParams{
						Recipients: []string{"Quality Manager", "Department Head"},
						Message:    "Critical audit finding requires immediate attention",
						Priority:   "urgent",
					},
				},
			},
			Priority:  1,
			CreatedBy: "system",
			CreatedAt: BuiltinRulesCreatedAt,
		},
		{
			ID:            AutoEscalateOverdueCAPA,
			Name:          "Escalate Overdue CAPAs",
			Description:   "Automatically escalate CAPAs that are past due date",
			Enabled:       true,
			TriggerModule: models.ModuleCAPA,
			TriggerEvent:  "status_check",
			Conditions: []models.AutomationCondition{
				{Field: "status", Operator: models.OperatorNotEquals, Value: "Closed"},
				{Field: "due_date", Operator: models.OperatorLessThan, Value: models.CurrentDate},
			},
			Actions: []models.AutomationAction{
				{
					Type:         models.ActionUpdateRecord,
					TargetModule: models.ModuleCAPA,
					Record: &models.RecordParams{Fields: map[string]any{
						"status":   "Overdue",
						"priority": "Critical",
					}},
				},
				{
					Type: models.ActionSendNotification,
					Notification: &models.NotificationParams{
						Recipients: []string{"assigned_to", "Quality Director"},
						Message:    "CAPA is overdue and requires immediate attention",
						Priority:   "high",
					},
				},
			},
			Priority:  2,
			CreatedBy: "system",
			CreatedAt: BuiltinRulesCreatedAt,
		},
	}
}
