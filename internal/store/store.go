// Package store owns the in-memory alert collection shared between command
// handling and the reconciliation loop.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minhtri/stockalert/internal/models"
)

// ErrIndexOutOfRange means a positional delete referenced a nonexistent slot.
var ErrIndexOutOfRange = errors.New("alert index out of range")

// Store keeps each owner's alerts in creation order under a single lock.
// Critical sections are short; notification delivery never happens under
// the lock.
type Store struct {
	mu     sync.RWMutex
	alerts map[int64][]*models.Alert
}

// New creates an empty store.
func New() *Store {
	return &Store{alerts: make(map[int64][]*models.Alert)}
}

// Create appends the alert to the owner's collection and returns its ID.
// A missing ID or CreatedAt is filled in. Duplicate symbol/target pairs are
// allowed on purpose.
func (s *Store) Create(owner int64, a *models.Alert) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.Owner = owner
	s.alerts[owner] = append(s.alerts[owner], a)
	return a.ID
}

// List returns a copy of the owner's alerts in creation order. An empty
// slice is a normal answer, not an error.
func (s *Store) List(owner int64) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, 0, len(s.alerts[owner]))
	for _, a := range s.alerts[owner] {
		out = append(out, a.Clone())
	}
	return out
}

// DeleteAt removes the owner's alert at the given zero-based position.
// Creation order is stable, so the position a caller saw in List still names
// the same alert absent concurrent mutation.
func (s *Store) DeleteAt(owner int64, i int) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.alerts[owner]
	if i < 0 || i >= len(list) {
		return models.Alert{}, ErrIndexOutOfRange
	}
	removed := list[i].Clone()
	s.alerts[owner] = append(list[:i], list[i+1:]...)
	return removed, nil
}

// Snapshot returns a point-in-time deep copy of every alert, keyed by owner.
// The reconciliation loop iterates over this copy so concurrent creates and
// deletes never move the ground under a tick.
func (s *Store) Snapshot() map[int64][]models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64][]models.Alert, len(s.alerts))
	for owner, list := range s.alerts {
		if len(list) == 0 {
			continue
		}
		copies := make([]models.Alert, 0, len(list))
		for _, a := range list {
			copies = append(copies, a.Clone())
		}
		out[owner] = copies
	}
	return out
}

// Apply atomically mutates the alert with the given ID in place. It reports
// whether the alert still existed; a false return means the alert was
// deleted between snapshot and mutation and the update is simply dropped.
func (s *Store) Apply(owner int64, id string, fn func(*models.Alert)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts[owner] {
		if a.ID == id {
			fn(a)
			return true
		}
	}
	return false
}

// Remove deletes the alert with the given ID and reports whether it existed.
func (s *Store) Remove(owner int64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.alerts[owner]
	for i, a := range list {
		if a.ID == id {
			s.alerts[owner] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the total alert count across all owners.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, list := range s.alerts {
		n += len(list)
	}
	return n
}
