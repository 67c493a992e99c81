package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"invoice-backend/internal/models"
	"invoice-backend/internal/services"
)

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Invoice{}, &models.InvoiceItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn, services.NewInvoiceService()), conn
}

func formData(number string) models.InvoiceFormData {
	return models.InvoiceFormData{
		InvoiceNumber: number,
		Date:          "2024-06-01",
		DueDate:       "2024-07-01",
		Status:        models.StatusDraft,
		Business:      models.Business{Name: "Studio Satu"},
		Customer:      models.Customer{Name: "PT Pelanggan"},
		Language:      models.LanguageID,
		Currency:      models.CurrencyIDR,
		Items: []models.InvoiceItem{
			{Description: "Jasa desain", Quantity: 2, UnitPrice: 100000, TaxRate: 10},
		},
	}
}

func TestCreateComputesAndPersists(t *testing.T) {
	s, conn := setupTestStore(t)
	ctx := context.Background()

	inv, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.ID == "" {
		t.Fatal("expected assigned identity")
	}
	if inv.Subtotal != 200000 || inv.TaxTotal != 20000 || inv.Total != 220000 {
		t.Fatalf("unexpected totals: %+v", inv)
	}
	if inv.BalanceDue != inv.Total {
		t.Fatalf("balanceDue %v != total %v without down payment", inv.BalanceDue, inv.Total)
	}

	var stored models.Invoice
	if err := conn.Preload("Items").First(&stored, "id = ?", inv.ID).Error; err != nil {
		t.Fatalf("load stored: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Description != "Jasa desain" {
		t.Fatalf("items not persisted: %+v", stored.Items)
	}
}

// Item tokens are unique within one invoice only; a second invoice reusing
// the same token must not steal the first invoice's rows.
func TestCreateReusedItemTokenKeepsInvoicesApart(t *testing.T) {
	s, conn := setupTestStore(t)
	ctx := context.Background()

	data := formData("INV-001")
	data.Items = []models.InvoiceItem{{ID: "it-1", Description: "Desain", Quantity: 1, UnitPrice: 100}}
	first, err := s.Create(ctx, 1, data)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}

	data = formData("INV-002")
	data.Items = []models.InvoiceItem{{ID: "it-1", Description: "Hosting", Quantity: 1, UnitPrice: 50}}
	second, err := s.Create(ctx, 2, data)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	var stored models.Invoice
	if err := conn.Preload("Items").First(&stored, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Description != "Desain" {
		t.Fatalf("first invoice items corrupted: %+v", stored.Items)
	}
	stored = models.Invoice{}
	if err := conn.Preload("Items").First(&stored, "id = ?", second.ID).Error; err != nil {
		t.Fatalf("reload second: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Description != "Hosting" {
		t.Fatalf("second invoice items wrong: %+v", stored.Items)
	}
}

func TestCreateWithoutOwner(t *testing.T) {
	s, _ := setupTestStore(t)
	if _, err := s.Create(context.Background(), 0, formData("INV-001")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		inv, err := s.Create(ctx, 1, formData(fmt.Sprintf("INV-%03d", i)))
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, inv.ID)
		time.Sleep(5 * time.Millisecond)
	}
	invs, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(invs) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(invs))
	}
	if invs[0].ID != ids[2] || invs[2].ID != ids[0] {
		t.Fatalf("expected newest-first order, got %v want reverse of %v", []string{invs[0].ID, invs[1].ID, invs[2].ID}, ids)
	}
}

func TestListScopedToOwner(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, 1, formData("INV-A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, 2, formData("INV-B")); err != nil {
		t.Fatalf("create: %v", err)
	}
	invs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(invs) != 1 || invs[0].InvoiceNumber != "INV-B" {
		t.Fatalf("owner scoping broken: %+v", invs)
	}
}

func TestUpdatePreservesIdentityAndCreatedAt(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	data := formData("INV-001-REV")
	data.Status = models.StatusPaid
	data.DownPaymentPercentage = 50
	updated, err := s.Update(ctx, 1, created.ID, data)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("identity changed: %q -> %q", created.ID, updated.ID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt moved: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.InvoiceNumber != "INV-001-REV" || updated.Status != models.StatusPaid {
		t.Fatalf("fields not replaced: %+v", updated)
	}
	if updated.DownPaymentAmount != 110000 || updated.BalanceDue != 110000 {
		t.Fatalf("totals not recomputed: %+v", updated)
	}
}

func TestUpdateUnknownIDLeavesSnapshotUntouched(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Update(ctx, 1, "does-not-exist", formData("INV-X")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Another owner's id is equally not-found.
	if _, err := s.Update(ctx, 99, created.ID, formData("INV-X")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	got, ok := s.Get(created.ID)
	if !ok || got.InvoiceNumber != "INV-001" {
		t.Fatalf("snapshot mutated by failed update: %+v", got)
	}
}

func TestUpdateReplacesItemsWholesale(t *testing.T) {
	s, conn := setupTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data := formData("INV-001")
	data.Items = []models.InvoiceItem{
		{Description: "Retainer", Quantity: 1, UnitPrice: 500},
		{Description: "Support", Quantity: 3, UnitPrice: 100},
	}
	if _, err := s.Update(ctx, 1, created.ID, data); err != nil {
		t.Fatalf("update: %v", err)
	}
	var count int64
	if err := conn.Model(&models.InvoiceItem{}).Where("invoice_id = ?", created.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 items after replace, got %d", count)
	}
}

func TestDelete(t *testing.T) {
	s, conn := setupTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Get(created.ID); ok {
		t.Fatal("deleted invoice still in snapshot")
	}
	var count int64
	conn.Model(&models.Invoice{}).Where("id = ?", created.ID).Count(&count)
	if count != 0 {
		t.Fatal("deleted invoice still in storage")
	}
	if err := s.Delete(ctx, 1, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete expected ErrNotFound, got %v", err)
	}
}

func TestGetIsSnapshotOnly(t *testing.T) {
	s, conn := setupTestStore(t)
	ctx := context.Background()

	// Insert behind the store's back; Get must not see it before a List.
	svc := services.NewInvoiceService()
	inv := svc.BuildInvoice(formData("INV-RAW"), "", time.Time{})
	inv.OwnerID = 1
	if err := conn.Create(&inv).Error; err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	if _, ok := s.Get(inv.ID); ok {
		t.Fatal("Get hit storage without a snapshot")
	}
	if _, err := s.List(ctx, 1); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, ok := s.Get(inv.ID); !ok {
		t.Fatal("Get missed after snapshot load")
	}
}

func TestClearOwnerEmptiesSnapshot(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.ClearOwner(1)
	if _, ok := s.Get(created.ID); ok {
		t.Fatal("snapshot not cleared on owner loss")
	}
}

func TestListServesStaleSnapshotOnReadFailure(t *testing.T) {
	s, conn := setupTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.List(ctx, 1); err != nil {
		t.Fatalf("initial list: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	_ = sqlDB.Close()

	invs, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("expected stale snapshot, got error %v", err)
	}
	if len(invs) != 1 || invs[0].ID != created.ID {
		t.Fatalf("stale snapshot wrong: %+v", invs)
	}
}

func TestSubscription(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	sub := s.Subscribe(1)

	created, err := s.Create(ctx, 1, formData("INV-001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ev := <-sub.C
	if ev.Kind != EventCreated || ev.ID != created.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}

	if _, err := s.Update(ctx, 1, created.ID, formData("INV-001-REV")); err != nil {
		t.Fatalf("update: %v", err)
	}
	ev = <-sub.C
	if ev.Kind != EventUpdated {
		t.Fatalf("expected update event, got %+v", ev)
	}

	if err := s.Delete(ctx, 1, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ev = <-sub.C
	if ev.Kind != EventDeleted || ev.ID != created.ID {
		t.Fatalf("expected delete event, got %+v", ev)
	}

	// Teardown is idempotent.
	sub.Cancel()
	sub.Cancel()
	if _, open := <-sub.C; open {
		t.Fatal("channel still open after cancel")
	}
}

func TestSubscriptionScopedToOwner(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	sub := s.Subscribe(2)
	defer sub.Cancel()

	if _, err := s.Create(ctx, 1, formData("INV-001")); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case ev := <-sub.C:
		t.Fatalf("owner 2 received owner 1's event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
