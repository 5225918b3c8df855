// Package redisstore keeps automation rules in Redis so every API and worker
// replica sees the same rule set.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "qmsflow:rules"

// Store implements rules.Store. Rule bodies live in a hash keyed by id and a
// sorted set scored by a monotonic sequence keeps declaration order.
type Store struct {
	client redis.UniversalClient
	prefix string
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client, prefix: defaultPrefix}
}

// NewStoreFromURL parses a redis:// URL and connects.
func NewStoreFromURL(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewStore(client), nil
}

// WithPrefix returns a store using a different key prefix.
func (s *Store) WithPrefix(prefix string) *Store {
	return &Store{client: s.client, prefix: prefix}
}

func (s *Store) hashKey() string  { return s.prefix + ":data" }
func (s *Store) orderKey() string { return s.prefix + ":order" }
func (s *Store) seqKey() string   { return s.prefix + ":seq" }

func (s *Store) List(ctx context.Context) ([]*models.AutomationRule, error) {
	ids, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rule ids: %w", err)
	}

	if len(ids) == 0 {
		return []*models.AutomationRule{}, nil
	}

	values, err := s.client.HMGet(ctx, s.hashKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	out := make([]*models.AutomationRule, 0, len(values))

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// order entry without a body; a concurrent delete is in flight
			continue
		}

		rule, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode rule %s: %w", ids[i], err)
		}

		out = append(out, rule)
	}

	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.AutomationRule, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, rules.ErrRuleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load rule: %w", err)
	}

	return decode(raw)
}

func (s *Store) Save(ctx context.Context, rule *models.AutomationRule) error {
	body, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate rule sequence: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(), rule.ID, body)
		// NX keeps the original position of an existing rule
		pipe.ZAddNX(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: rule.ID})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var removed *redis.IntCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, s.hashKey(), id)
		pipe.ZRem(ctx, s.orderKey(), id)

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}

	return removed.Val() > 0, nil
}

// Seed saves each rule that is not stored yet.
func (s *Store) Seed(ctx context.Context, seed []*models.AutomationRule) error {
	for _, rule := range seed {
		exists, err := s.client.HExists(ctx, s.hashKey(), rule.ID).Result()
		if err != nil {
			return fmt.Errorf("failed to check rule %s: %w", rule.ID, err)
		}

		if exists {
			continue
		}

		err = s.Save(ctx, rule)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func decode(raw string) (*models.AutomationRule, error) {
	var rule models.AutomationRule

	err := json.Unmarshal([]byte(raw), &rule)
	if err != nil {
		return nil, err
	}

	return &rule, nil
}
