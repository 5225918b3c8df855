package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/qmsflow/pkg/channels/gochannel"
	"github.com/dukex/qmsflow/pkg/cmd"
	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/events"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/persistence/memory"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_ProcessesDomainEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(slog.Default(), pub, sub)
	defer func() { _ = bus.Close() }()

	records := memory.NewStore()
	services := cmd.NewServices(slog.Default(), records, rules.NewMemoryStore(rules.BuiltinRules()...), bus, nil)

	worker := NewWorker("test", slog.Default(), bus, services.Engine, nil)
	require.NoError(t, worker.Start(ctx))

	event := events.NewDomainEvent(models.ModuleAudit, "finding_created", map[string]any{
		"id":                 "finding-7",
		"severity":           "major",
		"findingTitle":       "Expired SOP in use",
		"findingDescription": "Line 3 operators follow SOP-114 rev B",
	})
	require.NoError(t, bus.Publish(ctx, "finding-7", event))

	assert.Eventually(t, func() bool {
		rows, err := records.Select(ctx, models.TableNonConformances, persistence.Filter{"source_id": "finding-7"})

		return err == nil && len(rows) == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, worker.Stop(ctx))
}

func TestWorker_IgnoresUnexpectedPayload(t *testing.T) {
	worker := NewWorker("test", slog.Default(), nil, nil, nil)

	assert.NoError(t, worker.handleDomainEvent(context.Background(), "not an event"))
}

func TestRulesValidateCommand(t *testing.T) {
	var out bytes.Buffer

	root := newRootCommand()
	root.Writer = &out

	err := root.Run(context.Background(), []string{"qmsflow", "rules", "validate", "../../pkg/ruledefs/testdata/definitions.json"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 rules, 1 workflows OK")

	err = newRootCommand().Run(context.Background(), []string{"qmsflow", "rules", "validate"})
	require.ErrorIs(t, err, errMissingFile)
}
