// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/persistence/file"
	"github.com/dukex/qmsflow/pkg/persistence/memory"
	"github.com/dukex/qmsflow/pkg/persistence/postgresql"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/dukex/qmsflow/pkg/rules/redisstore"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

var supportedPersistenceProviders = []string{"memory", "file", "postgres", "postgresql"}

// NewRecordStore opens the record store named by databaseURL. URLs without a
// known scheme are treated as a file store root.
func NewRecordStore(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.RecordStore, error) {
	provider := parsePersistenceProvider(databaseURL)

	logger.InfoContext(ctx, "Opening record store", "provider", provider)

	switch provider {
	case "memory":
		return memory.NewStore(), nil
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}

// RuleStore is a rules.Store that owns a connection.
type RuleStore interface {
	rules.Store
	Close() error
}

type memoryRuleStore struct {
	*rules.MemoryStore
}

func (memoryRuleStore) Close() error { return nil }

// NewRuleStore opens the rule store named by url ("memory" or a redis:// URL)
// and seeds it with the built-in rules.
func NewRuleStore(ctx context.Context, url string) (RuleStore, error) {
	switch {
	case url == "" || url == "memory":
		return memoryRuleStore{rules.NewMemoryStore(rules.BuiltinRules()...)}, nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		store, err := redisstore.NewStoreFromURL(ctx, url)
		if err != nil {
			return nil, err
		}

		err = store.Seed(ctx, rules.BuiltinRules())
		if err != nil {
			_ = store.Close()

			return nil, fmt.Errorf("failed to seed built-in rules: %w", err)
		}

		return store, nil
	default:
		return nil, fmt.Errorf("%w: rule store %q", ErrUnsupportedProvider, url)
	}
}
