package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/attarco/attar-backend/pkg/redis"
)

type signalKV interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	Publish(ctx context.Context, channel string, payload any) error
	CartKey(parts ...string) string
}

// changeEvent is published whenever a cart changes so other open views
// of the same cart can refetch.
type changeEvent struct {
	Identity string `json:"identity"`
	Revision int64  `json:"revision"`
}

// Signal maintains a monotonically increasing revision per cart identity
// and broadcasts changes over pub/sub. Readers compare revisions instead
// of timestamps, so concurrent bumps never regress.
type Signal struct {
	kv signalKV
}

// NewSignal builds a change signal over the provided Redis client.
func NewSignal(kv signalKV) (*Signal, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Signal{kv: kv}, nil
}

// Bump advances the identity's revision and broadcasts the change.
func (s *Signal) Bump(ctx context.Context, identity string) (int64, error) {
	if identity == "" {
		return 0, fmt.Errorf("identity is required")
	}
	revision, err := s.kv.Incr(ctx, s.kv.CartKey("rev", identity))
	if err != nil {
		return 0, fmt.Errorf("bumping cart revision: %w", err)
	}
	payload, err := json.Marshal(changeEvent{Identity: identity, Revision: revision})
	if err != nil {
		return revision, fmt.Errorf("encoding change event: %w", err)
	}
	if err := s.kv.Publish(ctx, s.kv.CartKey("changed"), payload); err != nil {
		return revision, fmt.Errorf("publishing change event: %w", err)
	}
	return revision, nil
}

// Current returns the identity's revision, zero when it has never changed.
func (s *Signal) Current(ctx context.Context, identity string) (int64, error) {
	if identity == "" {
		return 0, nil
	}
	raw, err := s.kv.Get(ctx, s.kv.CartKey("rev", identity))
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading cart revision: %w", err)
	}
	revision, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing cart revision: %w", err)
	}
	return revision, nil
}
