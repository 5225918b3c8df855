// Package rules implements the automation rules engine: it matches domain
// events against declarative condition/action rules and runs the actions of
// every rule whose conditions hold.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/otelhelper"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Engine struct {
	store     Store
	records   persistence.RecordStore
	notifier  notifier.Notifier
	runner    WorkflowRunner
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	executors map[models.ActionType]ActionExecutor
}

type Option func(*Engine)

// WithClock replaces time.Now, which drives the current_date sentinel and rule timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithWorkflowRunner sets the target of trigger_workflow actions.
func WithWorkflowRunner(runner WorkflowRunner) Option {
	return func(e *Engine) {
		e.runner = runner
	}
}

// WithActionExecutor registers executor for actionType, replacing any built-in one.
func WithActionExecutor(actionType models.ActionType, executor ActionExecutor) Option {
	return func(e *Engine) {
		e.executors[actionType] = executor
	}
}

func NewEngine(logger *slog.Logger, store Store, records persistence.RecordStore, n notifier.Notifier, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		records:  records,
		notifier: n,
		logger:   logger.With("module", "rules_engine"),
		tracer:   otelhelper.NoopTracer(),
		now:      time.Now,
	}

	e.executors = map[models.ActionType]ActionExecutor{
		models.ActionTriggerWorkflow:  &triggerWorkflowExecutor{engine: e},
		models.ActionCreateRecord:     &createRecordExecutor{records: records},
		models.ActionUpdateRecord:     &updateRecordExecutor{records: records},
		models.ActionSendNotification: &notificationExecutor{notifier: n},
		models.ActionAssignUser:       &assignUserExecutor{records: records},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ProcessEvent runs every enabled rule listening to (module, event) in
// declaration order. A rule whose conditions all hold runs each of its
// actions in order; a failing action is logged and reported to the user and
// does not stop the remaining actions or rules. ProcessEvent never fails.
func (e *Engine) ProcessEvent(ctx context.Context, module, event string, data map[string]any) *models.ProcessResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "rules.process_event",
		attribute.String(otelhelper.ModuleKey, module),
		attribute.String(otelhelper.EventKey, event),
	)
	defer span.End()

	logger := e.logger.With("trigger_module", module, "trigger_event", event)
	result := &models.ProcessResult{Module: module, Event: event, Rules: []models.RuleResult{}}

	rules, err := e.store.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load rules", "error", err)
		otelhelper.SetError(span, err)
		notifier.Error(ctx, e.notifier, "Failed to load automation rules")

		return result
	}

	now := e.now()

	for _, rule := range rules {
		if !rule.Matches(module, event) {
			continue
		}

		ruleResult := models.RuleResult{RuleID: rule.ID}

		if !EvaluateConditions(rule.Conditions, data, now) {
			logger.DebugContext(ctx, "rule conditions not met", "rule_id", rule.ID)
			result.Rules = append(result.Rules, ruleResult)

			continue
		}

		ruleResult.Matched = true

		logger.InfoContext(ctx, "rule fired", "rule_id", rule.ID, "rule_name", rule.Name)

		for _, action := range rule.Actions {
			ruleResult.Actions = append(ruleResult.Actions, e.runAction(ctx, rule, action, module, event, data))
		}

		result.Rules = append(result.Rules, ruleResult)
	}

	span.SetAttributes(attribute.Int("qmsflow.rules.fired", len(result.Fired())))

	return result
}

func (e *Engine) runAction(ctx context.Context, rule *models.AutomationRule, action models.AutomationAction, module, event string, data map[string]any) models.ActionResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "rules.action",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
	)
	defer span.End()

	result := models.ActionResult{Type: action.Type}

	err := e.executeAction(ctx, ActionRequest{
		Rule:   rule,
		Action: action,
		Module: module,
		Event:  event,
		Data:   models.CloneData(data),
	})
	if err != nil {
		err = &ActionError{RuleID: rule.ID, Type: action.Type, Err: err}

		e.logger.ErrorContext(ctx, "action failed", "rule_id", rule.ID, "action_type", action.Type, "error", err)
		otelhelper.SetError(span, err)
		notifier.Error(ctx, e.notifier, fmt.Sprintf("Automation rule %q failed to %s", rule.Name, action.Type))

		result.Error = err.Error()
	}

	return result
}

func (e *Engine) executeAction(ctx context.Context, req ActionRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()

	executor, ok := e.executors[req.Action.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, req.Action.Type)
	}

	return executor.Execute(ctx, req)
}

// GetRules returns a snapshot of every rule in declaration order.
func (e *Engine) GetRules(ctx context.Context) ([]*models.AutomationRule, error) {
	return e.store.List(ctx)
}

// GetRule returns a single rule or ErrRuleNotFound.
func (e *Engine) GetRule(ctx context.Context, id string) (*models.AutomationRule, error) {
	return e.store.Get(ctx, id)
}

// AddRule stores a copy of rule under a fresh id and creation time. Any id or
// creation time on the input is ignored.
func (e *Engine) AddRule(ctx context.Context, rule models.AutomationRule) (*models.AutomationRule, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rule id: %w", err)
	}

	added := rule.Clone()
	added.ID = id.String()
	added.CreatedAt = e.now().UTC()

	err = models.ValidateRule(added)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	err = e.store.Save(ctx, added)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	e.logger.InfoContext(ctx, "rule added", "rule_id", added.ID, "rule_name", added.Name)

	return added.Clone(), nil
}

// PutRule stores rule under its own id, replacing any existing rule with that id.
func (e *Engine) PutRule(ctx context.Context, rule models.AutomationRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRule)
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = e.now().UTC()
	}

	err := models.ValidateRule(&rule)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	return e.store.Save(ctx, rule.Clone())
}

// UpdateRule merges patch into the rule with the given id. It reports false
// when no such rule exists.
func (e *Engine) UpdateRule(ctx context.Context, id string, patch models.RulePatch) (bool, error) {
	rule, err := e.store.Get(ctx, id)
	if errors.Is(err, ErrRuleNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to load rule: %w", err)
	}

	patch.Apply(rule)

	err = models.ValidateRule(rule)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	err = e.store.Save(ctx, rule)
	if err != nil {
		return true, fmt.Errorf("failed to save rule: %w", err)
	}

	return true, nil
}

// DeleteRule removes the rule with the given id and reports whether it existed.
func (e *Engine) DeleteRule(ctx context.Context, id string) (bool, error) {
	return e.store.Delete(ctx, id)
}
