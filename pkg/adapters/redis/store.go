// Package redis provides a Redis-backed StateStore and a distributed
// locker for multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/onrampd/onramp/pkg/domain"
)

// Store implements ports.StateStore on Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets an expiration for session records. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for session records.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "onramp:session:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(subjectID string) string {
	return s.prefix + subjectID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the record and its index entry in one pipeline. The record
// is a single SET, so readers never observe a partial write.
func (s *Store) Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(subjectID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), subjectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the record for a subject.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error) {
	val, err := s.client.Get(ctx, s.key(subjectID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load from redis: %w", err)
	}

	var state domain.ExecutionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Delete removes the record and its index entry.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(subjectID))
	pipe.SRem(ctx, s.indexKey(), subjectID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns every indexed subject id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	subjects, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return subjects, nil
}
