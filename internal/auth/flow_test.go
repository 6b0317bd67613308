package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

func newTestFlow(t *testing.T) *Flow {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewFlow(store, services.NewUserService(store), time.Hour, nil)
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	flow := newTestFlow(t)
	ctx := context.Background()

	user, err := flow.Register(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Password == "correct horse" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword(user.Password, "correct horse") {
		t.Fatal("stored hash does not verify against original password")
	}
	if CheckPassword(user.Password, "wrong") {
		t.Fatal("stored hash verifies against wrong password")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	flow := newTestFlow(t)
	ctx := context.Background()

	if _, err := flow.Register(ctx, "ada@example.com", "pw-one"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := flow.Register(ctx, "ada@example.com", "pw-two")
	if !errors.Is(err, core.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterEmptyInputs(t *testing.T) {
	flow := newTestFlow(t)
	ctx := context.Background()

	if _, err := flow.Register(ctx, "", "pw"); !errors.Is(err, core.ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
	if _, err := flow.Register(ctx, "ada@example.com", ""); !errors.Is(err, core.ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestLoginSuccessEstablishesSession(t *testing.T) {
	flow := newTestFlow(t)
	ctx := context.Background()

	registered, err := flow.Register(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, token, err := flow.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("logged in as wrong user: %d", user.ID)
	}
	if token == "" {
		t.Fatal("expected non-empty session token")
	}

	current, err := flow.CurrentUser(ctx, token)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if current.ID != registered.ID {
		t.Fatalf("session resolved wrong user: %d", current.ID)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	flow := newTestFlow(t)
	ctx := context.Background()

	if _, err := flow.Register(ctx, "ada@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, wrongPassword := flow.Login(ctx, "ada@example.com", "wrong")
	_, _, unknownEmail := flow.Login(ctx, "nobody@example.com", "wrong")

	if !errors.Is(wrongPassword, core.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, core.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatal("failure messages must not reveal which part was wrong")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	flow := newTestFlow(t)
	ctx := context.Background()

	if _, err := flow.Register(ctx, "ada@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, token, err := flow.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := flow.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := flow.CurrentUser(ctx, token); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
	if err := flow.Logout(ctx, token); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := flow.Logout(ctx, ""); err != nil {
		t.Fatalf("empty-token Logout: %v", err)
	}
}

func TestCurrentUserExpiredSession(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// TTL in the past makes every session expired on arrival.
	flow := NewFlow(store, services.NewUserService(store), -time.Minute, nil)
	ctx := context.Background()

	if _, err := flow.Register(ctx, "ada@example.com", "correct horse"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, token, err := flow.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := flow.CurrentUser(ctx, token); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected expired session to miss, got %v", err)
	}

	purged, err := flow.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged session, got %d", purged)
	}
}
