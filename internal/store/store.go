package store

import (
	"sync"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

// Store keeps the most recent bunker snapshot in memory.
// All public methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	latest models.BunkerStatus
	ok     bool
}

// New creates an empty Store ready for use.
func New() *Store {
	return &Store{}
}

// Save replaces the current snapshot wholesale.
func (s *Store) Save(status models.BunkerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = clone(status)
	s.ok = true
}

// Latest returns the current snapshot, or false if nothing was saved yet.
func (s *Store) Latest() (models.BunkerStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ok {
		return models.BunkerStatus{}, false
	}
	return clone(s.latest), true
}

func clone(status models.BunkerStatus) models.BunkerStatus {
	status.Bunkers = append([]models.Bunker(nil), status.Bunkers...)
	return status
}
