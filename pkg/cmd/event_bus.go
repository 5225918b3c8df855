package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/qmsflow/pkg/channels/gochannel"
	"github.com/dukex/qmsflow/pkg/channels/kafka"
	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/notifier"
)

// NewEventBus creates the event bus for provider ("gochannel" or "kafka").
// serviceName names the kafka consumer group.
func NewEventBus(provider string, logger *slog.Logger, serviceName string, brokers []string, otelEnabled bool) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create go channel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName, brokers, otelEnabled)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	default:
		return nil, fmt.Errorf("%w: event bus %q", ErrUnsupportedProvider, provider)
	}
}

// NewNotifier logs every notification and, when publisher is set, also
// publishes it on the event bus.
func NewNotifier(logger *slog.Logger, publisher eventbus.EventPublisher) notifier.Notifier {
	if publisher == nil {
		return notifier.NewLog(logger)
	}

	return notifier.Multi{notifier.NewLog(logger), notifier.NewEventBus(logger, publisher)}
}
