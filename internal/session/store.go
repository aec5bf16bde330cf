// Package session keeps track of which user is logged in on this client and
// persists that identity across restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/suPer8Hu/message-app/internal/observability"
)

const DefaultKey = "activeUser"

// ValidUsers is the closed set of identities the service accepts.
var ValidUsers = []string{"A", "B"}

// Store wraps exactly one key of a Storage. The in-memory identity and the
// persisted one only change together, under mu.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	key     string
	valid   map[string]struct{}
	active  string
	log     *slog.Logger
}

type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if k := strings.TrimSpace(key); k != "" {
			s.key = k
		}
	}
}

// WithValidUsers overrides ValidUsers for Restore.
func WithValidUsers(users ...string) Option {
	return func(s *Store) {
		s.valid = toSet(users)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = observability.OrDiscard(l)
	}
}

func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		valid:   toSet(ValidUsers),
		log:     observability.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func toSet(users []string) map[string]struct{} {
	out := make(map[string]struct{}, len(users))
	for _, u := range users {
		out[u] = struct{}{}
	}
	return out
}

// Restore loads the persisted identity. A missing, unreadable or unknown value
// means no session; Restore never fails.
func (s *Store) Restore(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.storage.Get(ctx, s.key)
	switch {
	case errors.Is(err, ErrNotFound):
		s.active = ""
		return ""
	case err != nil:
		s.log.Warn("session restore failed, starting logged out", "key", s.key, "error", err)
		s.active = ""
		return ""
	}

	if _, ok := s.valid[v]; !ok {
		s.log.Warn("ignoring unknown persisted identity", "key", s.key, "value", v)
		s.active = ""
		return ""
	}

	s.active = v
	return v
}

// Set persists identity and then makes it the active one. If persisting
// fails the active identity is left as it was.
func (s *Store) Set(ctx context.Context, identity string) error {
	if identity == "" {
		return errors.New("session: empty identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, s.key, identity); err != nil {
		return fmt.Errorf("session: persist %q: %w", identity, err)
	}
	s.active = identity
	return nil
}

// Clear drops the active identity and removes it from storage. Memory is
// cleared even when the storage delete fails; that error is returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = ""
	if err := s.storage.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Active returns the in-memory identity, or "" when logged out.
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}
