// Package scheduler periodically raises (capa, status_check) events for every
// CAPA that is not closed, so time-based rules such as overdue escalation fire
// without user activity.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// StatusCheckEvent is the event raised for every open CAPA.
const StatusCheckEvent = "status_check"

// DefaultSchedule runs the sweep at the top of every hour.
const DefaultSchedule = "0 * * * *"

const (
	closedStatus    = "Closed"
	escalatedStatus = "Overdue"
)

// EventProcessor ingests a domain event synchronously.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, module, event string, data map[string]any) *models.ProcessResult
}

// Sink receives the events produced by a sweep.
type Sink func(ctx context.Context, event events.DomainEvent) error

// ToProcessor delivers events straight to an in-process rules engine.
func ToProcessor(processor EventProcessor) Sink {
	return func(ctx context.Context, event events.DomainEvent) error {
		processor.ProcessEvent(ctx, event.Module, event.Event, event.Data)

		return nil
	}
}

// ToBus publishes events on the event bus, keyed by record id.
func ToBus(publisher eventbus.EventPublisher) Sink {
	return func(ctx context.Context, event events.DomainEvent) error {
		return publisher.Publish(ctx, models.StringOf(event.Data["id"]), event)
	}
}

type OverdueSweep struct {
	CronExpr string

	records persistence.RecordStore
	sink    Sink
	cron    *cron.Cron
	logger  *slog.Logger
}

func NewOverdueSweep(logger *slog.Logger, cronExpr string, records persistence.RecordStore, sink Sink) (*OverdueSweep, error) {
	if cronExpr == "" {
		cronExpr = DefaultSchedule
	}

	s := &OverdueSweep{
		CronExpr: cronExpr,
		records:  records,
		sink:     sink,
		logger:   logger.With("module", "overdue_sweep", "cron", cronExpr),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *OverdueSweep) Validate() error {
	if s.sink == nil {
		return errors.New("overdue sweep sink is required")
	}

	if _, err := cron.ParseStandard(s.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

// Start schedules the sweep. Runs stop when ctx is cancelled or Stop is called.
func (s *OverdueSweep) Start(ctx context.Context) error {
	s.logger.Info("Starting overdue sweep")

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	id, err := s.cron.AddFunc(s.CronExpr, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("overdue sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.logger.Info("Added cron job", "id", id)
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()

	return nil
}

// Sweep raises one status_check event per CAPA that is neither closed nor
// already escalated to Overdue and returns how many were raised. A failing delivery is logged and the sweep
// goes on.
func (s *OverdueSweep) Sweep(ctx context.Context) (int, error) {
	rows, err := s.records.Select(ctx, models.TableCAPAActions, persistence.Filter{})
	if err != nil {
		return 0, fmt.Errorf("failed to load CAPA actions: %w", err)
	}

	raised := 0

	for _, row := range rows {
		if ctx.Err() != nil {
			return raised, ctx.Err()
		}

		switch models.StringOf(row["status"]) {
		case closedStatus, escalatedStatus:
			continue
		}

		err := s.sink(ctx, events.NewDomainEvent(models.ModuleCAPA, StatusCheckEvent, row))
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to raise status check", "capa_id", row.ID(), "error", err)

			continue
		}

		raised++
	}

	s.logger.DebugContext(ctx, "overdue sweep finished", "checked", len(rows), "raised", raised)

	return raised, nil
}

func (s *OverdueSweep) Stop(_ context.Context) error {
	s.logger.Info("Stopping overdue sweep")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	return nil
}
