// Package notifier delivers fire-and-forget, user-facing notices. Delivery
// failures are logged and never reported back to the caller.
package notifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/models"
)

type Notifier interface {
	Notify(ctx context.Context, notification models.Notification)
}

// Info sends an info-level message.
func Info(ctx context.Context, n Notifier, message string) {
	n.Notify(ctx, models.Notification{Level: models.LevelInfo, Message: message})
}

// Success sends a success-level message.
func Success(ctx context.Context, n Notifier, message string) {
	n.Notify(ctx, models.Notification{Level: models.LevelSuccess, Message: message})
}

// Error sends an error-level message.
func Error(ctx context.Context, n Notifier, message string) {
	n.Notify(ctx, models.Notification{Level: models.LevelError, Message: message})
}

// Log writes notifications to a structured logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("module", "notifier")}
}

func (l *Log) Notify(ctx context.Context, n models.Notification) {
	level := slog.LevelInfo
	if n.Level == models.LevelError {
		level = slog.LevelWarn
	}

	l.logger.Log(ctx, level, n.Message,
		"notification_level", n.Level,
		"recipients", n.Recipients,
		"priority", n.Priority,
		"record_module", n.Module,
		"record_id", n.RecordID,
	)
}

// EventBus publishes notifications to the event bus for delivery channels
// running elsewhere.
type EventBus struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewEventBus(logger *slog.Logger, publisher eventbus.EventPublisher) *EventBus {
	return &EventBus{publisher: publisher, logger: logger.With("module", "notifier")}
}

func (e *EventBus) Notify(ctx context.Context, n models.Notification) {
	event := events.NotificationEvent{
		BaseEvent:    events.NewBaseEvent(events.NotificationEventType),
		Notification: n,
	}

	err := e.publisher.Publish(ctx, n.RecordID, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to publish notification", "error", err, "message", n.Message)
	}
}

// Multi fans a notification out to every wrapped notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n models.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = append(r.notifications, n)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.Notification(nil), r.notifications...)
}

// ByLevel returns the recorded notifications with the given level.
func (r *Recorder) ByLevel(level models.NotificationLevel) []models.Notification {
	var out []models.Notification

	for _, n := range r.Notifications() {
		if n.Level == level {
			out = append(out, n)
		}
	}

	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications = nil
}
