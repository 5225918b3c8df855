// Package relationships records and queries typed, directed edges between
// entities of different QMS modules (finding -> non-conformance -> CAPA -> training).
package relationships

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/persistence"
)

var ErrInvalidRelationship = errors.New("invalid relationship")

// Service reads and writes the module_relationships table. Edges are never
// updated or deduplicated.
type Service struct {
	store    persistence.RecordStore
	notifier notifier.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(logger *slog.Logger, store persistence.RecordStore, n notifier.Notifier) *Service {
	return &Service{
		store:    store,
		notifier: n,
		logger:   logger.With("module", "relationships"),
		now:      time.Now,
	}
}

// CreateRelationship persists one edge and returns its id. Any failure is
// logged, surfaced to the user and returned.
func (s *Service) CreateRelationship(ctx context.Context, rel models.ModuleRelationship) (string, error) {
	logger := s.logger.With(
		"source_type", rel.SourceType,
		"source_id", rel.SourceID,
		"target_type", rel.TargetType,
		"target_id", rel.TargetID,
		"relationship_type", rel.RelationshipType,
	)

	err := models.Validator().Struct(rel)
	if err != nil {
		logger.WarnContext(ctx, "rejected relationship", "error", err)
		notifier.Error(ctx, s.notifier, "Failed to create relationship")

		return "", fmt.Errorf("%w: %w", ErrInvalidRelationship, err)
	}

	rel.ID = ""
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = s.now().UTC()
	}

	row, err := persistence.FromStruct(rel)
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode relationship", "error", err)
		notifier.Error(ctx, s.notifier, "Failed to create relationship")

		return "", fmt.Errorf("failed to create relationship: %w", err)
	}

	stored, err := s.store.Insert(ctx, models.TableModuleRelationships, row)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create relationship", "error", err)
		notifier.Error(ctx, s.notifier, "Failed to create relationship")

		return "", fmt.Errorf("failed to create relationship: %w", err)
	}

	logger.DebugContext(ctx, "relationship created", "id", stored.ID())

	return stored.ID(), nil
}

// GetRelatedItems returns every edge leaving (sourceType, sourceID), narrowed
// to targetType when it is not empty. Storage failures yield an empty list.
func (s *Service) GetRelatedItems(ctx context.Context, sourceID, sourceType, targetType string) []models.ModuleRelationship {
	filter := persistence.Filter{
		"source_id":   sourceID,
		"source_type": sourceType,
	}
	if targetType != "" {
		filter["target_type"] = targetType
	}

	rows, err := s.store.Select(ctx, models.TableModuleRelationships, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch related items",
			"source_id", sourceID, "source_type", sourceType, "error", err)

		return []models.ModuleRelationship{}
	}

	related := make([]models.ModuleRelationship, 0, len(rows))

	for _, row := range rows {
		var rel models.ModuleRelationship

		err := row.Decode(&rel)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed relationship row", "id", row.ID(), "error", err)

			continue
		}

		related = append(related, rel)
	}

	return related
}
