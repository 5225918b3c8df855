package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/scheduler"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// Worker feeds domain events from the event bus into the rules engine and
// runs the overdue CAPA sweep.
type Worker struct {
	id        string
	logger    *slog.Logger
	bus       eventbus.EventSubscriber
	processor scheduler.EventProcessor
	sweep     *scheduler.OverdueSweep
}

// NewWorker creates a worker. sweep may be nil.
func NewWorker(
	id string,
	logger *slog.Logger,
	bus eventbus.EventSubscriber,
	processor scheduler.EventProcessor,
	sweep *scheduler.OverdueSweep,
) *Worker {
	return &Worker{
		id:        id,
		logger:    logger.With("module", "qmsflow-worker", "worker_id", id),
		bus:       bus,
		processor: processor,
		sweep:     sweep,
	}
}

// Start subscribes to the bus and schedules the sweep. It does not block.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker")

	err := w.bus.Handle(events.DomainEventType, w.handleDomainEvent)
	if err != nil {
		return err
	}

	err = w.bus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if w.sweep != nil {
		err = w.sweep.Start(ctx)
		if err != nil {
			return err
		}
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Shutting down worker")

	if w.sweep != nil {
		return w.sweep.Stop(ctx)
	}

	return nil
}

func (w *Worker) handleDomainEvent(ctx context.Context, event any) error {
	domainEvent, ok := event.(*events.DomainEvent)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for DomainEvent")

		return nil
	}

	logger := w.logger.With(
		"event_id", domainEvent.ID,
		"trigger_module", domainEvent.Module,
		"trigger_event", domainEvent.Event,
	)

	result := w.processor.ProcessEvent(ctx, domainEvent.Module, domainEvent.Event, domainEvent.Data)

	logger.InfoContext(ctx, "Domain event processed", "fired", result.Fired())

	return nil
}

func NewWorkerCommand() *cli.Command {
	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Process domain events from the event bus and run the overdue sweep",
		Flags: withFlags(
			[]cli.Flag{
				&cli.StringFlag{
					Name:    "worker-id",
					Aliases: []string{"id"},
					Usage:   "Custom worker ID (auto-generated if not provided)",
					Sources: cli.EnvVars("WORKER_ID"),
				},
				scheduleFlag(),
			},
			storeFlags(),
			busFlags(),
			commonFlags(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			rt, err := newRuntime(ctx, command, "qmsflow-worker")
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			worker, err := newWorker(rt, workerID, command.String("event-bus"), command.String("overdue-check-schedule"))
			if err != nil {
				return err
			}

			err = worker.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()

			return worker.Stop(context.WithoutCancel(ctx))
		},
	}
}

// newWorker builds a worker over rt. With kafka the sweep publishes its
// events so they are shared across the consumer group; otherwise they go
// straight to the local engine.
func newWorker(rt *runtime, id, busType, schedule string) (*Worker, error) {
	sink := scheduler.ToProcessor(rt.services.Engine)
	if busType == "kafka" {
		sink = scheduler.ToBus(rt.bus)
	}

	sweep, err := scheduler.NewOverdueSweep(rt.logger, schedule, rt.records, sink)
	if err != nil {
		return nil, err
	}

	return NewWorker(id, rt.logger, rt.bus, rt.services.Engine, sweep), nil
}
