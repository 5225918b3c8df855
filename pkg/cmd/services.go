package cmd

import (
	"log/slog"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/integration"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/relationships"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/dukex/qmsflow/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

// Services is the automation core wired together: the rules engine triggers
// workflows on the orchestrator, and both record relationships.
type Services struct {
	Notifier      notifier.Notifier
	Relationships *relationships.Service
	Orchestrator  *workflow.Orchestrator
	Engine        *rules.Engine
	Integration   *integration.Service
}

// NewServices builds the core services over the given stores. publisher and
// tracer may be nil.
func NewServices(
	logger *slog.Logger,
	records persistence.RecordStore,
	ruleStore rules.Store,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
) *Services {
	n := NewNotifier(logger, publisher)
	rel := relationships.NewService(logger, records, n)

	var (
		workflowOpts []workflow.Option
		ruleOpts     []rules.Option
	)

	if publisher != nil {
		workflowOpts = append(workflowOpts, workflow.WithEventPublisher(publisher))
	}

	if tracer != nil {
		workflowOpts = append(workflowOpts, workflow.WithTracer(tracer))
		ruleOpts = append(ruleOpts, rules.WithTracer(tracer))
	}

	orchestrator := workflow.NewOrchestrator(
		logger,
		workflow.NewRepository(workflow.BuiltinTemplates()...),
		records,
		rel,
		n,
		workflowOpts...,
	)

	ruleOpts = append(ruleOpts, rules.WithWorkflowRunner(orchestrator))

	return &Services{
		Notifier:      n,
		Relationships: rel,
		Orchestrator:  orchestrator,
		Engine:        rules.NewEngine(logger, ruleStore, records, n, ruleOpts...),
		Integration:   integration.NewService(logger, rel, orchestrator),
	}
}
