package store

import (
	"sync"

	"invoice-backend/internal/models"
)

type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
	EventDeleted
	// EventCleared signals that the owner's snapshot was dropped (logout).
	EventCleared
)

// Event is one incremental change to an owner's collection. For EventDeleted
// and EventCleared only the identity (if any) is meaningful.
type Event struct {
	Kind    EventKind
	ID      string
	Invoice models.Invoice
}

// Subscription delivers change events for one owner until cancelled.
// Cancel is idempotent and safe to call from any goroutine.
type Subscription struct {
	C      <-chan Event
	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() { s.once.Do(s.cancel) }
