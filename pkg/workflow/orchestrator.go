// Package workflow runs multi-step workflow templates. Steps run in declared
// order with data threaded between them; auto steps create records through a
// per-module executor registry and manual steps leave a pending task behind.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/otelhelper"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RelationshipRecorder records provenance edges between the workflow source
// and the records its steps create.
type RelationshipRecorder interface {
	CreateRelationship(ctx context.Context, rel models.ModuleRelationship) (string, error)
}

// Request starts a run. SourceType defaults to the template's SourceType.
type Request struct {
	WorkflowID string
	SourceID   string
	SourceType string
	Data       map[string]any
}

type Orchestrator struct {
	templates     TemplateRepository
	records       persistence.RecordStore
	relationships RelationshipRecorder
	notifier      notifier.Notifier
	publisher     eventbus.EventPublisher
	matcher       *TriggerMatcher
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
	executors     map[string]StepExecutor
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithStepExecutor registers executor for moduleType, replacing any built-in one.
func WithStepExecutor(moduleType string, executor StepExecutor) Option {
	return func(o *Orchestrator) {
		o.executors[moduleType] = executor
	}
}

// WithEventPublisher publishes execution outcomes to the event bus.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = publisher
	}
}

func NewOrchestrator(
	logger *slog.Logger,
	templates TemplateRepository,
	records persistence.RecordStore,
	relationships RelationshipRecorder,
	n notifier.Notifier,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		templates:     templates,
		records:       records,
		relationships: relationships,
		notifier:      n,
		matcher:       NewTriggerMatcher(logger),
		logger:        logger.With("module", "workflow_orchestrator"),
		tracer:        otelhelper.NoopTracer(),
		now:           time.Now,
		executors:     map[string]StepExecutor{},
	}

	clock := func() time.Time { return o.now() }

	o.executors[models.ModuleNonConformance] = &nonConformanceStep{records: records, now: clock}
	o.executors[models.ModuleCAPA] = &capaStep{records: records, now: clock}
	o.executors[models.ModuleTraining] = &trainingStep{records: records, now: clock}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// ExecuteWorkflow runs the template with the given id against the source
// record sourceID. It satisfies the rules engine's WorkflowRunner.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID, sourceID string, data map[string]any) (*models.WorkflowExecution, error) {
	return o.Execute(ctx, Request{WorkflowID: workflowID, SourceID: sourceID, Data: data})
}

// Execute runs every step of a template in order. It fails with
// ErrWorkflowNotFound for unknown templates and with a StepError when a
// step body fails; steps completed before the failure are not undone.
// Manual steps never block the run.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*models.WorkflowExecution, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.SourceIDKey, req.SourceID),
	)
	defer span.End()

	logger := o.logger.With("workflow_id", req.WorkflowID, "source_id", req.SourceID)

	template, err := o.templates.Get(ctx, req.WorkflowID)
	if err != nil {
		logger.WarnContext(ctx, "workflow not available", "error", err)
		otelhelper.SetError(span, err)
		notifier.Error(ctx, o.notifier, fmt.Sprintf("Workflow %s not found", req.WorkflowID))

		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution id: %w", err)
	}

	execution := &models.WorkflowExecution{
		ID:         id.String(),
		WorkflowID: template.ID,
		SourceID:   req.SourceID,
		SourceType: req.SourceType,
		Steps:      make([]models.StepResult, 0, len(template.Steps)),
		StartedAt:  o.now().UTC(),
	}
	if execution.SourceType == "" {
		execution.SourceType = template.SourceType
	}

	span.SetAttributes(
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.SourceTypeKey, execution.SourceType),
	)

	logger = logger.With("execution_id", execution.ID)
	logger.InfoContext(ctx, "workflow started", "steps", len(template.Steps))

	data := models.CloneData(req.Data)
	if data == nil {
		data = map[string]any{}
	}

	for _, step := range template.Steps {
		result, err := o.runStep(ctx, logger, execution, step, data)
		execution.Steps = append(execution.Steps, result)

		if err != nil {
			execution.Status = models.ExecutionStatusFailed
			execution.Error = err.Error()
			execution.Data = data
			execution.FinishedAt = o.now().UTC()

			logger.ErrorContext(ctx, "workflow failed", "step_id", step.ID, "error", err)
			otelhelper.SetError(span, err)
			notifier.Error(ctx, o.notifier, fmt.Sprintf("Workflow %q failed at step %q", template.Name, step.Name))
			o.publish(ctx, execution.ID, events.WorkflowExecutionFailed{
				BaseEvent: events.NewBaseEvent(events.WorkflowExecutionFailedEventType),
				Execution: *execution,
			})

			return execution, err
		}
	}

	execution.Status = models.ExecutionStatusCompleted
	execution.Data = data
	execution.FinishedAt = o.now().UTC()

	logger.InfoContext(ctx, "workflow completed")
	notifier.Success(ctx, o.notifier, fmt.Sprintf("Workflow %q completed", template.Name))
	o.publish(ctx, execution.ID, events.WorkflowExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionCompletedEventType),
		Execution: *execution,
	})

	return execution, nil
}

func (o *Orchestrator) runStep(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.WorkflowExecution,
	step models.WorkflowStep,
	data map[string]any,
) (models.StepResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "workflow.step",
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepModuleKey, step.ModuleType),
	)
	defer span.End()

	logger = logger.With("step_id", step.ID, "step_module", step.ModuleType)
	result := models.StepResult{StepID: step.ID, MissingData: step.MissingData(data)}

	if len(result.MissingData) > 0 {
		logger.DebugContext(ctx, "step declared data is missing", "missing", result.MissingData)
	}

	if !step.AutoExecute {
		taskID := o.createPendingTask(ctx, logger, execution, step, data)

		result.Status = models.StepStatusPending
		result.TaskID = taskID

		return result, nil
	}

	executor, ok := o.executors[step.ModuleType]
	if !ok {
		logger.WarnContext(ctx, "no executor for step module, skipping")

		result.Status = models.StepStatusSkipped

		return result, nil
	}

	output, err := o.executeStep(ctx, executor, StepRequest{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		SourceID:    execution.SourceID,
		SourceType:  execution.SourceType,
		Step:        step,
		Data:        models.CloneData(data),
	})
	if err == nil && output != nil {
		// The record exists once the executor returns, so its provenance
		// edge is kept even when the link back fails.
		o.recordRelationship(ctx, logger, execution, step, output)
	}

	if err == nil {
		err = o.linkBack(ctx, execution, step, output)
	}

	if err != nil {
		err = &StepError{WorkflowID: execution.WorkflowID, StepID: step.ID, Err: err}
		otelhelper.SetError(span, err)

		result.Status = models.StepStatusFailed
		result.Error = err.Error()

		return result, err
	}

	result.Status = models.StepStatusCompleted

	if output != nil {
		maps.Copy(data, output.Data)
		result.Output = models.CloneData(output.Data)
	}

	logger.InfoContext(ctx, "step completed")

	return result, nil
}

func (o *Orchestrator) executeStep(ctx context.Context, executor StepExecutor, req StepRequest) (output *StepOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()

	return executor.Execute(ctx, req)
}

// recordRelationship stores the provenance edge of a step. A failure here is
// reported by the recorder and does not fail the step.
func (o *Orchestrator) recordRelationship(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.WorkflowExecution,
	step models.WorkflowStep,
	output *StepOutput,
) {
	if step.Relationship == "" || output.RecordID == "" || o.relationships == nil {
		return
	}

	_, err := o.relationships.CreateRelationship(ctx, models.ModuleRelationship{
		SourceType:       execution.SourceType,
		SourceID:         execution.SourceID,
		TargetType:       output.RecordType,
		TargetID:         output.RecordID,
		RelationshipType: step.Relationship,
		Metadata: map[string]any{
			"workflow_id":  execution.WorkflowID,
			"execution_id": execution.ID,
			"step_id":      step.ID,
		},
		CreatedBy: "workflow:" + execution.WorkflowID,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to record step relationship", "error", err)
	}
}

func (o *Orchestrator) linkBack(ctx context.Context, execution *models.WorkflowExecution, step models.WorkflowStep, output *StepOutput) error {
	if step.LinkBack == "" || output == nil || output.RecordID == "" {
		return nil
	}

	table, ok := models.TableFor(execution.SourceType)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModule, execution.SourceType)
	}

	_, err := o.records.Update(ctx, table,
		persistence.Record{step.LinkBack: output.RecordID},
		persistence.Filter{"id": execution.SourceID},
	)
	if err != nil {
		return fmt.Errorf("failed to link %s back to source: %w", step.LinkBack, err)
	}

	return nil
}

// createPendingTask persists a task for a manual step and notifies the
// assigned role. A task that cannot be stored is reported and the run goes on.
func (o *Orchestrator) createPendingTask(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.WorkflowExecution,
	step models.WorkflowStep,
	data map[string]any,
) string {
	task := models.PendingTask{
		WorkflowID:       execution.WorkflowID,
		ExecutionID:      execution.ID,
		StepID:           step.ID,
		StepName:         step.Name,
		SourceID:         execution.SourceID,
		AssignedRole:     step.AssignedRole,
		ApprovalRequired: step.ApprovalRequired,
		Status:           models.TaskStatusPending,
		Data:             models.CloneData(data),
		CreatedAt:        o.now().UTC(),
	}

	var taskID string

	row, err := persistence.FromStruct(task)
	if err == nil {
		var stored persistence.Record

		stored, err = o.records.Insert(ctx, models.TableWorkflowTasks, row)
		if err == nil {
			taskID = stored.ID()
		}
	}

	if err != nil {
		logger.ErrorContext(ctx, "failed to store pending task", "error", err)
		notifier.Error(ctx, o.notifier, fmt.Sprintf("Failed to create task %q", step.Name))
	} else {
		logger.InfoContext(ctx, "pending task created", "task_id", taskID, "assigned_role", step.AssignedRole)
	}

	notification := models.Notification{
		Level:    models.LevelInfo,
		Message:  fmt.Sprintf("Task %q is waiting for action", step.Name),
		Module:   step.ModuleType,
		RecordID: taskID,
	}
	if step.AssignedRole != "" {
		notification.Recipients = []string{step.AssignedRole}
	}

	o.notifier.Notify(ctx, notification)

	return taskID
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.publisher == nil {
		return
	}

	err := o.publisher.Publish(ctx, key, event)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to publish workflow event", "event_type", event.GetType(), "error", err)
	}
}

// GetAvailableWorkflows returns every registered template in registration order.
func (o *Orchestrator) GetAvailableWorkflows(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	return o.templates.List(ctx)
}

// GetWorkflow returns one template or an error wrapping ErrWorkflowNotFound.
func (o *Orchestrator) GetWorkflow(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	return o.templates.Get(ctx, id)
}

// RegisterTemplate validates and stores a template, replacing one with the same id.
func (o *Orchestrator) RegisterTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	err := models.ValidateTemplate(template)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return o.templates.Save(ctx, template)
}

// CheckTriggerConditions returns the ids of templates the event should start.
// It never starts them. A repository failure yields an empty list.
func (o *Orchestrator) CheckTriggerConditions(ctx context.Context, moduleType, event string, data map[string]any) []string {
	templates, err := o.templates.List(ctx)
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to load workflow templates", "error", err)

		return []string{}
	}

	return o.matcher.Match(templates, moduleType, event, data)
}

// PendingTasks lists the stored pending tasks of a workflow. An empty
// workflowID lists the tasks of every workflow.
func (o *Orchestrator) PendingTasks(ctx context.Context, workflowID string) ([]models.PendingTask, error) {
	filter := persistence.Filter{"status": models.TaskStatusPending}
	if workflowID != "" {
		filter["workflow_id"] = workflowID
	}

	rows, err := o.records.Select(ctx, models.TableWorkflowTasks, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	tasks := make([]models.PendingTask, 0, len(rows))

	for _, row := range rows {
		var task models.PendingTask

		err := row.Decode(&task)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	return tasks, nil
}

// IsNotFound reports whether err means the requested workflow does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
