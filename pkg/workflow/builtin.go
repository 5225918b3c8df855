package workflow

import "github.com/dukex/qmsflow/pkg/models"

// Ids of the built-in templates.
const (
	AuditFindingResolution = "audit-finding-resolution"
	AuditFindingToNC       = "audit-finding-to-nc"
	NCToCAPA               = "nc-to-capa"
	CAPAToTraining         = "capa-to-training"
)

// BuiltinTemplates returns fresh copies of the templates every installation starts with.
func BuiltinTemplates() []*models.WorkflowTemplate {
	return []*models.WorkflowTemplate{
		{
			ID:          AuditFindingResolution,
			Name:        "Audit Finding Resolution",
			Description: "Complete workflow from audit finding to resolution",
			SourceType:  models.ModuleAuditFinding,
			Steps: []models.WorkflowStep{
				{
					ID:           "create-nc",
					Name:         "Create Non-Conformance",
					ModuleType:   models.ModuleNonConformance,
					ActionType:   "create",
					RequiredData: []string{"findingTitle", "findingDescription", "severity"},
					AutoExecute:  true,
					Relationship: models.RelationshipGeneratedFrom,
				},
				{
					ID:               "generate-capa",
					Name:             "Generate CAPA",
					ModuleType:       models.ModuleCAPA,
					ActionType:       "create",
					RequiredData:     []string{"nonConformanceId"},
					AutoExecute:      false,
					ApprovalRequired: true,
					AssignedRole:     "Quality Manager",
				},
				{
					ID:           "assign-training",
					Name:         "Assign Training",
					ModuleType:   models.ModuleTraining,
					ActionType:   "create",
					RequiredData: []string{"capaId"},
					AutoExecute:  false,
					AssignedRole: "Training Coordinator",
				},
			},
			TriggerConditions: []models.TriggerCondition{
				{
					ModuleType: models.ModuleAuditFinding,
					Event:      "severity_updated",
					Conditions: map[string]any{"severity": []any{"major", "critical"}},
				},
			},
		},
		{
			ID:          AuditFindingToNC,
			Name:        "Audit Finding to Non-Conformance",
			Description: "Raise a non-conformance from an audit finding",
			SourceType:  models.ModuleAuditFinding,
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
		},
		{
			ID:          NCToCAPA,
			Name:        "Non-Conformance to CAPA",
			Description: "Open a CAPA for a non-conformance and link it back",
			SourceType:  models.ModuleNonConformance,
			Steps: []models.WorkflowStep{
				{
					ID:           "create-capa",
					Name:         "Generate CAPA",
					ModuleType:   models.ModuleCAPA,
					ActionType:   "create",
					AutoExecute:  true,
					Relationship: models.RelationshipRequires,
					LinkBack:     "capa_id",
				},
			},
		},
		{
			ID:          CAPAToTraining,
			Name:        "CAPA to Training",
			Description: "Schedule the training a CAPA calls for",
			SourceType:  models.ModuleCAPA,
			Steps: []models.WorkflowStep{
				{
					ID:           "assign-training",
					Name:         "Assign Training",
					ModuleType:   models.ModuleTraining,
					ActionType:   "create",
					AutoExecute:  true,
					Relationship: models.RelationshipRequires,
				},
			},
		},
	}
}
