package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func beginSession(t *testing.T, store *storage.Store) *storage.Session {
	t.Helper()
	sess, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}
	t.Cleanup(func() { sess.Rollback() })
	return sess
}

func sampleExpense() core.Expense {
	return core.Expense{
		Title:       "Groceries",
		Category:    "Food",
		Amount:      140.50,
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: "weekly shop",
	}
}

func TestExpenseService_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, beginSession(t, store), sampleExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := svc.GetExpense(ctx, beginSession(t, store), created.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got != created {
		t.Fatalf("got %+v, want %+v", got, created)
	}
}

func TestExpenseService_CreateRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)
	ctx := context.Background()

	invalid := sampleExpense()
	invalid.Title = "   "

	if _, err := svc.CreateExpense(ctx, beginSession(t, store), invalid); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	expenses, err := svc.ListExpenses(ctx, beginSession(t, store))
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 0 {
		t.Fatalf("invalid expense must not be persisted, found %d rows", len(expenses))
	}
}

func TestExpenseService_ListAndTotal(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)
	ctx := context.Background()

	first := sampleExpense()
	first.Amount = 140.50
	second := sampleExpense()
	second.Amount = 200.50

	if _, err := svc.CreateExpense(ctx, beginSession(t, store), first); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, beginSession(t, store), second); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	sess := beginSession(t, store)
	expenses, err := svc.ListExpenses(ctx, sess)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(expenses))
	}

	total, err := svc.TotalExpenses(ctx, sess)
	if err != nil {
		t.Fatalf("TotalExpenses: %v", err)
	}
	if total != 341.0 {
		t.Fatalf("expected total 341.0, got %v", total)
	}
}

func TestExpenseService_UpdatePartial(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, beginSession(t, store), sampleExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	amount := 200.50
	patch := core.ExpensePatch{Amount: &amount}

	updated, err := svc.UpdateExpense(ctx, beginSession(t, store), created.ID, patch)
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if updated.Amount != 200.50 {
		t.Fatalf("amount not updated: %v", updated.Amount)
	}
	if updated.Title != created.Title || updated.Category != created.Category {
		t.Fatal("untouched fields must keep their values")
	}

	got, err := svc.GetExpense(ctx, beginSession(t, store), created.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got != updated {
		t.Fatalf("persisted %+v, want %+v", got, updated)
	}
}

func TestExpenseService_UpdateRejectsInvalidPatch(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, beginSession(t, store), sampleExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	empty := ""
	if _, err := svc.UpdateExpense(ctx, beginSession(t, store), created.ID, core.ExpensePatch{Title: &empty}); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	got, err := svc.GetExpense(ctx, beginSession(t, store), created.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Title != created.Title {
		t.Fatal("rejected update must leave stored row unchanged")
	}
}

func TestExpenseService_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)

	title := "Rent"
	_, err := svc.UpdateExpense(context.Background(), beginSession(t, store), 9999, core.ExpensePatch{Title: &title})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpenseService_Delete(t *testing.T) {
	store := newTestStore(t)
	svc := NewExpenseService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, beginSession(t, store), sampleExpense())
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	prior, err := svc.DeleteExpense(ctx, beginSession(t, store), created.ID)
	if err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if prior != created {
		t.Fatalf("expected deleted record's prior state, got %+v", prior)
	}
	if _, err := svc.DeleteExpense(ctx, beginSession(t, store), created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUserService_CreateAndLookup(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, beginSession(t, store), "  Ada@Example.com ", "hash-1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.Email != "ada@example.com" {
		t.Fatalf("email not normalized: %q", created.Email)
	}

	byEmail, err := svc.GetUserByEmail(ctx, beginSession(t, store), "ADA@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("lookup returned wrong user: %d", byEmail.ID)
	}

	byID, err := svc.GetUser(ctx, beginSession(t, store), created.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if byID.Email != created.Email {
		t.Fatalf("lookup returned wrong user: %q", byID.Email)
	}
}

func TestUserService_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, beginSession(t, store), "ada@example.com", "hash-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := svc.CreateUser(ctx, beginSession(t, store), "ada@example.com", "hash-2")
	if !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}
