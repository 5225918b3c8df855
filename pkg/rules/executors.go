package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/persistence"
)

var ErrNoAssignee = errors.New("assignment resolved to no user")

// ActionRequest is the input handed to an ActionExecutor. Data is a private
// copy of the event payload.
type ActionRequest struct {
	Rule   *models.AutomationRule
	Action models.AutomationAction
	Module string
	Event  string
	Data   map[string]any
}

// RecordID returns the id of the record the event is about.
func (r ActionRequest) RecordID() string {
	return models.StringOf(r.Data["id"])
}

// TargetTable maps the action's target module, or the event module when the
// action names none, to a record store table.
func (r ActionRequest) TargetTable() (string, error) {
	module := r.Action.TargetModule
	if module == "" {
		module = r.Module
	}

	table, ok := models.TableFor(module)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, module)
	}

	return table, nil
}

type ActionExecutor interface {
	Execute(ctx context.Context, req ActionRequest) error
}

// ActionExecutorFunc adapts a function to ActionExecutor.
type ActionExecutorFunc func(ctx context.Context, req ActionRequest) error

func (f ActionExecutorFunc) Execute(ctx context.Context, req ActionRequest) error {
	return f(ctx, req)
}

// WorkflowRunner starts a workflow on behalf of a trigger_workflow action.
type WorkflowRunner interface {
	ExecuteWorkflow(ctx context.Context, workflowID, sourceID string, data map[string]any) (*models.WorkflowExecution, error)
}

type triggerWorkflowExecutor struct {
	engine *Engine
}

func (x *triggerWorkflowExecutor) Execute(ctx context.Context, req ActionRequest) error {
	if x.engine.runner == nil {
		return ErrNoWorkflowRunner
	}

	_, err := x.engine.runner.ExecuteWorkflow(ctx, req.Action.Workflow.WorkflowID, req.RecordID(), req.Data)

	return err
}

type createRecordExecutor struct {
	records persistence.RecordStore
}

func (x *createRecordExecutor) Execute(ctx context.Context, req ActionRequest) error {
	table, err := req.TargetTable()
	if err != nil {
		return err
	}

	row := persistence.Record(models.CloneData(req.Action.Record.Fields))
	if id := req.RecordID(); id != "" {
		row["source_id"] = id
	}

	_, err = x.records.Insert(ctx, table, row)

	return err
}

type updateRecordExecutor struct {
	records persistence.RecordStore
}

func (x *updateRecordExecutor) Execute(ctx context.Context, req ActionRequest) error {
	table, err := req.TargetTable()
	if err != nil {
		return err
	}

	id := req.RecordID()
	if id == "" {
		return ErrMissingRecordID
	}

	_, err = x.records.Update(ctx, table, persistence.Record(models.CloneData(req.Action.Record.Fields)), persistence.Filter{"id": id})

	return err
}

type notificationExecutor struct {
	notifier notifier.Notifier
}

// Execute sends the notice. A recipient naming a payload field (for example
// "assigned_to") is replaced by that field's value.
func (x *notificationExecutor) Execute(ctx context.Context, req ActionRequest) error {
	params := req.Action.Notification

	recipients := make([]string, 0, len(params.Recipients))
	for _, recipient := range params.Recipients {
		if resolved := models.StringOf(req.Data[recipient]); resolved != "" {
			recipient = resolved
		}

		recipients = append(recipients, recipient)
	}

	x.notifier.Notify(ctx, models.Notification{
		Level:      models.LevelInfo,
		Message:    params.Message,
		Recipients: recipients,
		Priority:   params.Priority,
		Module:     req.Module,
		RecordID:   req.RecordID(),
	})

	return nil
}

type assignUserExecutor struct {
	records persistence.RecordStore
}

func (x *assignUserExecutor) Execute(ctx context.Context, req ActionRequest) error {
	table, err := req.TargetTable()
	if err != nil {
		return err
	}

	id := req.RecordID()
	if id == "" {
		return ErrMissingRecordID
	}

	params := req.Action.Assignment

	user := params.User
	if user == "" && params.UserField != "" {
		user = models.StringOf(ResolvePath(req.Data, params.UserField))
	}

	if user == "" {
		return ErrNoAssignee
	}

	_, err = x.records.Update(ctx, table, persistence.Record{params.AssignedField(): user}, persistence.Filter{"id": id})

	return err
}
