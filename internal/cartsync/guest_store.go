package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/attarco/attar-backend/internal/cart"
	"github.com/attarco/attar-backend/pkg/redis"
)

type guestKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(parts ...string) string
}

// guestDocument is the JSON shape stored for an anonymous visitor's cart.
type guestDocument struct {
	Items   []cart.Line `json:"items"`
	SavedAt time.Time   `json:"saved_at"`
}

// GuestStore keeps anonymous carts in Redis keyed by browser session,
// expiring after the configured retention window.
type GuestStore struct {
	kv  guestKV
	ttl time.Duration
}

// NewGuestStore builds a guest cart store with the provided retention TTL.
func NewGuestStore(kv guestKV, ttl time.Duration) (*GuestStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest cart ttl must be positive")
	}
	return &GuestStore{kv: kv, ttl: ttl}, nil
}

// Load returns the guest cart lines for the session, or nil when the
// session has no stored cart.
func (s *GuestStore) Load(ctx context.Context, sessionID string) ([]cart.Line, error) {
	if sessionID == "" {
		return nil, nil
	}
	raw, err := s.kv.Get(ctx, s.kv.CartKey("guest", sessionID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading guest cart: %w", err)
	}
	var doc guestDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding guest cart: %w", err)
	}
	return doc.Items, nil
}

// Save overwrites the guest cart for the session and refreshes its TTL.
func (s *GuestStore) Save(ctx context.Context, sessionID string, lines []cart.Line) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	doc := guestDocument{Items: lines, SavedAt: time.Now().UTC()}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding guest cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey("guest", sessionID), payload, s.ttl); err != nil {
		return fmt.Errorf("saving guest cart: %w", err)
	}
	return nil
}

// Delete drops the guest cart for the session.
func (s *GuestStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.kv.Del(ctx, s.kv.CartKey("guest", sessionID)); err != nil {
		return fmt.Errorf("deleting guest cart: %w", err)
	}
	return nil
}
