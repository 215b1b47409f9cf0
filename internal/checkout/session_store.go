package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/pkg/enums"
	"github.com/attarco/attar-backend/pkg/redis"
)

type sessionKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutKey(parts ...string) string
}

// Session is the checkout progress a user carries between steps. It lives
// in Redis and expires when checkout stalls.
type Session struct {
	Step      enums.CheckoutStep `json:"step"`
	Phone     string             `json:"phone,omitempty"`
	AddressID *uuid.UUID         `json:"address_id,omitempty"`
}

// SessionStore persists checkout sessions in Redis keyed by user.
type SessionStore struct {
	kv  sessionKV
	ttl time.Duration
}

// NewSessionStore builds a checkout session store with the provided TTL.
func NewSessionStore(kv sessionKV, ttl time.Duration) (*SessionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("checkout session ttl must be positive")
	}
	return &SessionStore{kv: kv, ttl: ttl}, nil
}

// Load returns the user's checkout session, nil when none is in progress.
func (s *SessionStore) Load(ctx context.Context, userID uuid.UUID) (*Session, error) {
	raw, err := s.kv.Get(ctx, s.kv.CheckoutKey(userID.String()))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkout session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decoding checkout session: %w", err)
	}
	return &session, nil
}

// Save overwrites the user's checkout session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, userID uuid.UUID, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding checkout session: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CheckoutKey(userID.String()), payload, s.ttl); err != nil {
		return fmt.Errorf("saving checkout session: %w", err)
	}
	return nil
}

// Delete removes the user's checkout session.
func (s *SessionStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.kv.Del(ctx, s.kv.CheckoutKey(userID.String())); err != nil {
		return fmt.Errorf("deleting checkout session: %w", err)
	}
	return nil
}
