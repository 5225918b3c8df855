package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/qmsflow/pkg/channels/kafka"
	"github.com/dukex/qmsflow/pkg/cmd"
	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/log"
	"github.com/dukex/qmsflow/pkg/otelhelper"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/ruledefs"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// runtime holds what a long running command opened, so it can be closed in
// reverse order.
type runtime struct {
	logger   *slog.Logger
	records  persistence.RecordStore
	bus      eventbus.EventBus
	services *cmd.Services
	closers  []func(context.Context) error
}

func newRuntime(ctx context.Context, command *cli.Command, serviceName string) (*runtime, error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	rt := &runtime{logger: log.WithModule(serviceName)}

	var tracer trace.Tracer

	if command.Bool("otel-enabled") {
		t, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		tracer = t
		rt.closers = append(rt.closers, shutdown)
	}

	records, err := cmd.NewRecordStore(ctx, rt.logger, command.String("database-url"))
	if err != nil {
		rt.Close(ctx)

		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	rt.records = records
	rt.closers = append(rt.closers, records.Close)

	ruleStore, err := cmd.NewRuleStore(ctx, command.String("rule-store-url"))
	if err != nil {
		rt.Close(ctx)

		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	rt.closers = append(rt.closers, func(context.Context) error { return ruleStore.Close() })

	bus, err := cmd.NewEventBus(
		command.String("event-bus"),
		rt.logger,
		serviceName,
		kafka.ParseBrokers(command.String("kafka-brokers")),
		command.Bool("otel-enabled"),
	)
	if err != nil {
		rt.Close(ctx)

		return nil, err
	}

	rt.bus = bus
	rt.closers = append(rt.closers, func(context.Context) error { return bus.Close() })

	rt.services = cmd.NewServices(rt.logger, records, ruleStore, bus, tracer)

	if path := command.String("definitions"); path != "" {
		err := loadDefinitions(ctx, rt.logger, rt.services, path)
		if err != nil {
			rt.Close(ctx)

			return nil, err
		}
	}

	return rt, nil
}

func loadDefinitions(ctx context.Context, logger *slog.Logger, services *cmd.Services, path string) error {
	doc, err := ruledefs.Load(path)
	if err != nil {
		return err
	}

	result, err := ruledefs.Import(ctx, logger, doc, services.Engine, services.Orchestrator)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Definitions loaded", "path", path, "rules", result.Rules, "workflows", result.Workflows)

	return nil
}

func (rt *runtime) Close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.ErrorContext(ctx, "Failed to close resource", "error", err)
		}
	}

	rt.closers = nil
}
