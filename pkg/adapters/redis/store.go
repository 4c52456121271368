package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/convoflow/convoflow/pkg/domain"
)

const defaultPrefix = "convoflow:"

// Store implements ports.StateStore backed by Redis.
// States are serialized as JSON under <prefix>session:<id>.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration // 0 means no expiration
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithTTL sets an expiration on stored sessions. Each Save refreshes it.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromClient creates a Store using an existing Redis client.
func NewFromClient(client *backend.Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New creates a Store with its own client for the given address.
func New(addr string, opts ...StoreOption) *Store {
	client := backend.NewClient(&backend.Options{Addr: addr})
	return NewFromClient(client, opts...)
}

// Client exposes the underlying Redis client, so callers can share one
// connection between the store and a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

// Save persists the state as JSON.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis error saving session %s: %w", sessionID, err)
	}
	return nil
}

// Load retrieves and deserializes the state.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ConversationState, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis error loading session %s: %w", sessionID, err)
	}

	var state domain.ConversationState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Delete removes the session key.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis error deleting session %s: %w", sessionID, err)
	}
	return nil
}

// List scans for all session keys under the prefix.
func (s *Store) List(ctx context.Context) ([]string, error) {
	pattern := s.prefix + "session:*"
	var sessions []string

	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		sessions = append(sessions, strings.TrimPrefix(iter.Val(), s.prefix+"session:"))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis error listing sessions: %w", err)
	}
	return sessions, nil
}
