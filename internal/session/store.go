// Package session persists anonymous participant profiles keyed by a
// client-supplied session ID, so a returning client can restore its display
// name and interests without re-entering them. Entries are bounded by a TTL
// refreshed on every write; an abandoned session disappears on its own.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatmitra/backend/internal/models"
)

// ErrNotFound is returned when no session exists for the given ID.
var ErrNotFound = errors.New("session not found")

// Store is the durable profile store consulted on restore_session. It never
// holds a live connection reference.
type Store interface {
	// Save writes (or overwrites) the profile for the session ID and
	// refreshes its expiry.
	Save(ctx context.Context, sessionID string, profile models.Profile) error
	// Load returns the saved profile, or ErrNotFound.
	Load(ctx context.Context, sessionID string) (models.Profile, error)
	// Delete removes a session immediately. Absent IDs are a no-op.
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	profile models.Profile
	savedAt time.Time
}

// MemoryStore is an in-process Store with TTL-based eviction. It backs
// deployments that run without Redis, and the hub tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates a MemoryStore whose entries expire ttl after their
// last write. A background reaper trims expired entries; Load also checks
// expiry so a stale entry is never returned even before the reaper runs.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
	go s.reapLoop()
	return s
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, profile models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{profile: profile, savedAt: time.Now()}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	if time.Since(e.savedAt) > s.ttl {
		delete(s.entries, sessionID)
		return models.Profile{}, ErrNotFound
	}
	return e.profile, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Count returns the number of stored sessions, including not-yet-reaped
// expired ones.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) reapLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for range ticker.C {
		s.reap()
	}
}

func (s *MemoryStore) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.entries {
		if now.Sub(e.savedAt) > s.ttl {
			delete(s.entries, id)
		}
	}
}
