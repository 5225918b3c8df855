package workflow

import (
	"context"
	"time"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/persistence"
)

// capaDueIn is how long a generated CAPA has until it is due.
const capaDueIn = 30 * 24 * time.Hour

// StepRequest is the input of a StepExecutor. Data is the data threaded
// through the run so far; executors must not modify it.
type StepRequest struct {
	ExecutionID string
	WorkflowID  string
	SourceID    string
	SourceType  string
	Step        models.WorkflowStep
	Data        map[string]any
}

// StepOutput describes the record a step created. Data is merged into the
// threaded data so later steps can reference it.
type StepOutput struct {
	RecordID   string
	RecordType string
	Data       map[string]any
}

type StepExecutor interface {
	Execute(ctx context.Context, req StepRequest) (*StepOutput, error)
}

// StepExecutorFunc adapts a function to StepExecutor.
type StepExecutorFunc func(ctx context.Context, req StepRequest) (*StepOutput, error)

func (f StepExecutorFunc) Execute(ctx context.Context, req StepRequest) (*StepOutput, error) {
	return f(ctx, req)
}

func stringOr(v any, fallback string) string {
	if s := models.StringOf(v); s != "" {
		return s
	}

	return fallback
}

type nonConformanceStep struct {
	records persistence.RecordStore
	now     func() time.Time
}

func (s *nonConformanceStep) Execute(ctx context.Context, req StepRequest) (*StepOutput, error) {
	severity := models.StringOf(req.Data["severity"])

	priority := "Medium"
	if severity == "critical" {
		priority = "High"
	}

	row, err := s.records.Insert(ctx, models.TableNonConformances, persistence.Record{
		"title":       req.Data["findingTitle"],
		"description": req.Data["findingDescription"],
		"severity":    severity,
		"priority":    priority,
		"status":      "On Hold",
		"source_id":   req.SourceID,
		"source_type": req.SourceType,
		"created_by":  req.Data["userId"],
		"created_at":  s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	return &StepOutput{
		RecordID:   row.ID(),
		RecordType: models.ModuleNonConformance,
		Data:       map[string]any{"nonConformanceId": row.ID()},
	}, nil
}

type capaStep struct {
	records persistence.RecordStore
	now     func() time.Time
}

func (s *capaStep) Execute(ctx context.Context, req StepRequest) (*StepOutput, error) {
	now := s.now().UTC()

	row := persistence.Record{
		"title":       stringOr(req.Data["title"], stringOr(req.Data["findingTitle"], req.Step.Name)),
		"description": req.Data["description"],
		"source":      stringOr(req.Data["source"], "Non-Conformance"),
		"priority":    stringOr(req.Data["priority"], "Medium"),
		"assigned_to": stringOr(req.Data["assignedTo"], "Quality Manager"),
		"due_date":    now.Add(capaDueIn).Format(time.RFC3339),
		"status":      "Open",
		"source_id":   req.SourceID,
		"created_at":  now.Format(time.RFC3339),
	}

	if ncID := models.StringOf(req.Data["nonConformanceId"]); ncID != "" {
		row["non_conformance_id"] = ncID
	}

	stored, err := s.records.Insert(ctx, models.TableCAPAActions, row)
	if err != nil {
		return nil, err
	}

	return &StepOutput{
		RecordID:   stored.ID(),
		RecordType: models.ModuleCAPA,
		Data:       map[string]any{"capaId": stored.ID()},
	}, nil
}

type trainingStep struct {
	records persistence.RecordStore
	now     func() time.Time
}

func (s *trainingStep) Execute(ctx context.Context, req StepRequest) (*StepOutput, error) {
	row := persistence.Record{
		"title":       stringOr(req.Data["trainingTitle"], req.Step.Name),
		"description": req.Data["trainingDescription"],
		"status":      "Scheduled",
		"source_id":   req.SourceID,
		"created_at":  s.now().UTC().Format(time.RFC3339),
	}

	if capaID := models.StringOf(req.Data["capaId"]); capaID != "" {
		row["capa_id"] = capaID
	}

	stored, err := s.records.Insert(ctx, models.TableTrainingSessions, row)
	if err != nil {
		return nil, err
	}

	return &StepOutput{
		RecordID:   stored.ID(),
		RecordType: models.ModuleTraining,
		Data:       map[string]any{"trainingId": stored.ID()},
	}, nil
}
