// Package integration is the cross-module facade used by QMS modules: it
// records relationships, starts the single-shot module workflows and offers
// next-step suggestions for a record.
package integration

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/workflow"
)

// RelationshipStore is the relationship graph the facade writes to and reads from.
type RelationshipStore interface {
	CreateRelationship(ctx context.Context, rel models.ModuleRelationship) (string, error)
	GetRelatedItems(ctx context.Context, sourceID, sourceType, targetType string) []models.ModuleRelationship
}

// WorkflowRunner runs workflow templates.
type WorkflowRunner interface {
	GetWorkflow(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	Execute(ctx context.Context, req workflow.Request) (*models.WorkflowExecution, error)
}

type Service struct {
	relationships RelationshipStore
	workflows     WorkflowRunner
	logger        *slog.Logger
}

func NewService(logger *slog.Logger, relationships RelationshipStore, workflows WorkflowRunner) *Service {
	return &Service{
		relationships: relationships,
		workflows:     workflows,
		logger:        logger.With("module", "integration"),
	}
}

func (s *Service) CreateRelationship(ctx context.Context, rel models.ModuleRelationship) (string, error) {
	return s.relationships.CreateRelationship(ctx, rel)
}

func (s *Service) GetRelatedItems(ctx context.Context, sourceID, sourceType, targetType string) []models.ModuleRelationship {
	return s.relationships.GetRelatedItems(ctx, sourceID, sourceType, targetType)
}

// TriggerWorkflow runs the workflow template workflowType from the record
// (sourceModule, sourceID). It reports false without an error when no such
// workflow exists and false with the run error when the run fails.
func (s *Service) TriggerWorkflow(ctx context.Context, sourceModule, sourceID, workflowType string, data map[string]any) (bool, error) {
	logger := s.logger.With("workflow_type", workflowType, "source_module", sourceModule, "source_id", sourceID)

	_, err := s.workflows.GetWorkflow(ctx, workflowType)
	if errors.Is(err, workflow.ErrWorkflowNotFound) {
		logger.WarnContext(ctx, "unknown workflow type")

		return false, nil
	}

	if err != nil {
		return false, err
	}

	execution, err := s.workflows.Execute(ctx, workflow.Request{
		WorkflowID: workflowType,
		SourceID:   sourceID,
		SourceType: sourceModule,
		Data:       data,
	})
	if err != nil {
		return false, err
	}

	logger.InfoContext(ctx, "workflow triggered", "execution_id", execution.ID)

	return true, nil
}

// GetWorkflowSuggestions returns human-readable next actions for a record of
// moduleType in the given status. It has no side effects.
func GetWorkflowSuggestions(moduleType, status string, data map[string]any) []string {
	suggestions := make([]string, 0)

	switch moduleType {
	case models.ModuleNonConformance:
		if status == "Under Review" && isBlank(data["capaId"]) {
			suggestions = append(suggestions, "Generate CAPA")
		}
	case models.ModuleAuditFinding:
		severity := models.StringOf(data["severity"])
		if (severity == "critical" || severity == "major") && isBlank(data["nonConformanceId"]) {
			suggestions = append(suggestions, "Create Non-Conformance")
		}
	case models.ModuleCAPA:
		if status == "Completed" {
			suggestions = append(suggestions, "Assign Training", "Verify Effectiveness")
		}
	}

	return suggestions
}

func isBlank(v any) bool {
	return models.StringOf(v) == ""
}
