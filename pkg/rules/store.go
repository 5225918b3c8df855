package rules

import (
	"context"
	"slices"
	"sync"

	"github.com/dukex/qmsflow/pkg/models"
)

// Store persists automation rules. List must return rules in the order they
// were first saved.
type Store interface {
	List(ctx context.Context) ([]*models.AutomationRule, error)
	Get(ctx context.Context, id string) (*models.AutomationRule, error)
	Save(ctx context.Context, rule *models.AutomationRule) error
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryStore keeps rules in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	rules []*models.AutomationRule
}

// NewMemoryStore creates a store holding copies of the given rules.
func NewMemoryStore(seed ...*models.AutomationRule) *MemoryStore {
	s := &MemoryStore{}

	for _, rule := range seed {
		s.rules = append(s.rules, rule.Clone())
	}

	return s
}

func (s *MemoryStore) List(_ context.Context) ([]*models.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AutomationRule, len(s.rules))
	for i, rule := range s.rules {
		out[i] = rule.Clone()
	}

	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return nil, ErrRuleNotFound
	}

	return s.rules[i].Clone(), nil
}

// Save replaces a rule with the same id in place or appends a new one.
func (s *MemoryStore) Save(_ context.Context, rule *models.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(rule.ID); i >= 0 {
		s.rules[i] = rule.Clone()

		return nil
	}

	s.rules = append(s.rules, rule.Clone())

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false, nil
	}

	s.rules = slices.Delete(s.rules, i, i+1)

	return true, nil
}

func (s *MemoryStore) index(id string) int {
	return slices.IndexFunc(s.rules, func(r *models.AutomationRule) bool { return r.ID == id })
}
