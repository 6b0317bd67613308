package memory

import (
	"context"
	"testing"
	"time"

	"spendlog/internal/core"
)

func sample(id int64) core.Expense {
	return core.Expense{
		ID:       id,
		Title:    "Groceries",
		Category: "Food",
		Amount:   140.50,
		Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndRows(t *testing.T) {
	m := New()
	ctx := context.Background()

	ref, err := m.Append(ctx, sample(1))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref == "" {
		t.Fatal("expected non-empty row ref")
	}
	if _, err := m.Append(ctx, sample(2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := len(m.Rows()); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
}

func TestAppendReplacesSameID(t *testing.T) {
	m := New()
	ctx := context.Background()

	if _, err := m.Append(ctx, sample(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	updated := sample(1)
	updated.Amount = 200.50
	if _, err := m.Append(ctx, updated); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := m.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after replay, got %d", len(rows))
	}
	if rows[0].Amount != 200.50 {
		t.Fatalf("row not replaced: %v", rows[0].Amount)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	m := New()
	bad := sample(1)
	bad.Title = ""
	if _, err := m.Append(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
	if len(m.Rows()) != 0 {
		t.Fatal("invalid expense must not be stored")
	}
}

func TestRemove(t *testing.T) {
	m := New()
	ctx := context.Background()

	if _, err := m.Append(ctx, sample(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := m.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(m.Rows()) != 0 {
		t.Fatal("row not removed")
	}
	// unknown id is quietly ignored
	if err := m.Remove(ctx, 99); err != nil {
		t.Fatalf("Remove unknown: %v", err)
	}
}
