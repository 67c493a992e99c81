package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"invoice-backend/internal/logger"
	"invoice-backend/internal/models"
	"invoice-backend/internal/services"
)

// Store is the owner-scoped invoice collection. It persists through GORM
// (sqlite or postgres, whichever the DSN selects) and keeps an in-memory
// snapshot per owner so Get answers without a round trip and List can serve
// stale-but-available data when a read fails. Writes are whole-object
// replaces inside a transaction; concurrent updates to the same invoice are
// last-write-wins.
type Store struct {
	db  *gorm.DB
	svc *services.InvoiceService
	log zerolog.Logger

	mu        sync.RWMutex
	snapshots map[uint]map[string]models.Invoice
	loaded    map[uint]bool
	subs      map[uint]map[int]chan Event
	nextSub   int
}

func New(db *gorm.DB, svc *services.InvoiceService) *Store {
	return &Store{
		db:        db,
		svc:       svc,
		log:       logger.WithComponent("store"),
		snapshots: map[uint]map[string]models.Invoice{},
		loaded:    map[uint]bool{},
		subs:      map[uint]map[int]chan Event{},
	}
}

// List returns the owner's invoices ordered by creation timestamp descending.
// A failed read is logged and answered from the last known snapshot when one
// exists; only a failure before any snapshot was loaded surfaces as an error.
func (s *Store) List(ctx context.Context, owner uint) ([]models.Invoice, error) {
	if owner == 0 {
		return nil, ErrUnauthorized
	}
	var invs []models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("owner_id = ?", owner).
		Order("created_at desc").
		Find(&invs).Error
	if err != nil {
		s.mu.RLock()
		loaded := s.loaded[owner]
		s.mu.RUnlock()
		if loaded {
			s.log.Error().Err(err).Uint("owner", owner).Msg("list failed, serving last known snapshot")
			return s.snapshotList(owner), nil
		}
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	s.mu.Lock()
	m := make(map[string]models.Invoice, len(invs))
	for _, inv := range invs {
		m[inv.ID] = inv
	}
	s.snapshots[owner] = m
	s.loaded[owner] = true
	s.mu.Unlock()
	return invs, nil
}

// Get is a synchronous lookup against the in-memory snapshot. It never
// touches storage; an invoice not yet seen by List/Create is simply absent.
func (s *Store) Get(id string) (models.Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.snapshots {
		if inv, ok := m[id]; ok {
			return inv, true
		}
	}
	return models.Invoice{}, false
}

// Create builds a new invoice from form data and persists it.
func (s *Store) Create(ctx context.Context, owner uint, data models.InvoiceFormData) (models.Invoice, error) {
	if owner == 0 {
		return models.Invoice{}, ErrUnauthorized
	}
	inv := s.svc.BuildInvoice(data, "", time.Time{})
	inv.OwnerID = owner
	if err := s.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return models.Invoice{}, &PersistenceError{Op: "create", Err: err}
	}
	s.apply(owner, inv)
	s.publish(owner, Event{Kind: EventCreated, ID: inv.ID, Invoice: inv})
	return inv, nil
}

// Update replaces the invoice as a whole, preserving identity and the
// original creation timestamp. Unknown or foreign ids fail with ErrNotFound
// and leave both storage and snapshot untouched.
func (s *Store) Update(ctx context.Context, owner uint, id string, data models.InvoiceFormData) (models.Invoice, error) {
	if owner == 0 {
		return models.Invoice{}, ErrUnauthorized
	}
	existing, err := s.lookup(ctx, owner, id)
	if err != nil {
		return models.Invoice{}, err
	}
	inv := s.svc.BuildInvoice(data, existing.ID, existing.CreatedAt)
	inv.OwnerID = owner
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Items").Save(&inv).Error; err != nil {
			return err
		}
		if len(inv.Items) == 0 {
			return nil
		}
		return tx.Create(&inv.Items).Error
	})
	if err != nil {
		return models.Invoice{}, &PersistenceError{Op: "update", Err: err}
	}
	s.apply(owner, inv)
	s.publish(owner, Event{Kind: EventUpdated, ID: inv.ID, Invoice: inv})
	return inv, nil
}

// Delete removes the invoice and its items. Callers holding a "selected"
// reference to the deleted id must clear it themselves; the store does not
// track selection.
func (s *Store) Delete(ctx context.Context, owner uint, id string) error {
	if owner == 0 {
		return ErrUnauthorized
	}
	existing, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", existing.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Where("owner_id = ?", owner).Delete(&models.Invoice{}, "id = ?", existing.ID).Error
	})
	if err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	s.mu.Lock()
	delete(s.snapshots[owner], existing.ID)
	s.mu.Unlock()
	s.publish(owner, Event{Kind: EventDeleted, ID: existing.ID})
	return nil
}

// ClearOwner drops the owner's snapshot. Called when the owner identity is
// lost (logout); subscribers see an EventCleared.
func (s *Store) ClearOwner(owner uint) {
	s.mu.Lock()
	delete(s.snapshots, owner)
	delete(s.loaded, owner)
	s.mu.Unlock()
	s.publish(owner, Event{Kind: EventCleared})
}

// Subscribe registers for incremental change events on the owner's
// collection. The returned subscription's Cancel is idempotent. Slow
// consumers drop events rather than block writers.
func (s *Store) Subscribe(owner uint) *Subscription {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.nextSub++
	key := s.nextSub
	if s.subs[owner] == nil {
		s.subs[owner] = map[int]chan Event{}
	}
	s.subs[owner][key] = ch
	s.mu.Unlock()

	sub := &Subscription{C: ch}
	sub.cancel = func() {
		s.mu.Lock()
		if m, ok := s.subs[owner]; ok {
			delete(m, key)
		}
		s.mu.Unlock()
		close(ch)
	}
	return sub
}

func (s *Store) lookup(ctx context.Context, owner uint, id string) (models.Invoice, error) {
	s.mu.RLock()
	inv, ok := s.snapshots[owner][id]
	s.mu.RUnlock()
	if ok {
		return inv, nil
	}
	var found models.Invoice
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).First(&found, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invoice{}, ErrNotFound
		}
		return models.Invoice{}, &PersistenceError{Op: "lookup", Err: err}
	}
	return found, nil
}

func (s *Store) apply(owner uint, inv models.Invoice) {
	s.mu.Lock()
	if s.snapshots[owner] == nil {
		s.snapshots[owner] = map[string]models.Invoice{}
	}
	s.snapshots[owner][inv.ID] = inv
	s.mu.Unlock()
}

func (s *Store) publish(owner uint, ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs[owner] {
		select {
		case ch <- ev:
		default:
			s.log.Warn().Uint("owner", owner).Str("invoice", ev.ID).Msg("subscriber slow, event dropped")
		}
	}
}

func (s *Store) snapshotList(owner uint) []models.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Invoice, 0, len(s.snapshots[owner]))
	for _, inv := range s.snapshots[owner] {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
