package notifier_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/mocks"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLog_Notify(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := notifier.NewLog(logger)

	n.Notify(context.Background(), models.Notification{
		Level:      models.LevelError,
		Message:    "CAPA is overdue and requires immediate attention",
		Recipients: []string{"Quality Director"},
		Priority:   "urgent",
	})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "CAPA is overdue")
	assert.Contains(t, out, "Quality Director")
	assert.Contains(t, out, "module=notifier")
}

func TestEventBus_PublishesNotificationEvent(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "nc-1", mock.MatchedBy(func(event events.NotificationEvent) bool {
		return event.Notification.Message == "created" && event.Type == events.NotificationEventType
	})).Return(nil).Once()

	n := notifier.NewEventBus(slog.Default(), bus)
	n.Notify(context.Background(), models.Notification{Level: models.LevelSuccess, Message: "created", RecordID: "nc-1"})

	bus.AssertExpectations(t)
}

func TestEventBus_SwallowsPublishErrors(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	n := notifier.NewEventBus(slog.Default(), bus)

	assert.NotPanics(t, func() {
		notifier.Error(context.Background(), n, "will not be delivered")
	})
}

func TestMulti_FansOut(t *testing.T) {
	first := notifier.NewRecorder()
	second := notifier.NewRecorder()

	notifier.Success(context.Background(), notifier.Multi{first, second}, "workflow completed")

	assert.Len(t, first.Notifications(), 1)
	assert.Len(t, second.Notifications(), 1)
	assert.Equal(t, models.LevelSuccess, second.Notifications()[0].Level)
}

func TestRecorder(t *testing.T) {
	r := notifier.NewRecorder()
	ctx := context.Background()

	notifier.Info(ctx, r, "a")
	notifier.Error(ctx, r, "b")
	notifier.Error(ctx, r, "c")

	assert.Len(t, r.Notifications(), 3)
	assert.Len(t, r.ByLevel(models.LevelError), 2)
	assert.Equal(t, "a", r.ByLevel(models.LevelInfo)[0].Message)

	r.Reset()
	assert.Empty(t, r.Notifications())
}
