// Package services holds the application services sitting between the HTTP
// layer and storage. Each operation runs against a caller-provided Session;
// mutating operations commit the session themselves so that the follow-up
// side effects (event publishing) only happen for durable writes.
package services

import (
	"context"
	"fmt"
	"strings"

	"spendlog/internal/core"
	"spendlog/internal/storage"
)

// UserService orchestrates user lookups and creation.
type UserService struct {
	store *storage.Store
}

func NewUserService(store *storage.Store) *UserService {
	return &UserService{store: store}
}

// GetUser retrieves a user by id.
func (s *UserService) GetUser(ctx context.Context, sess *storage.Session, id int64) (core.User, error) {
	user, err := sess.GetUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, sess *storage.Session, email string) (core.User, error) {
	user, err := sess.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// CreateUser validates and persists a new user, committing the session.
// The password must already be hashed by the caller.
func (s *UserService) CreateUser(ctx context.Context, sess *storage.Session, email, passwordHash string) (core.User, error) {
	email = normalizeEmail(email)

	candidate := core.User{Email: email, Password: passwordHash}
	if err := candidate.Validate(); err != nil {
		return core.User{}, err
	}

	user, err := sess.InsertUser(ctx, email, passwordHash)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := sess.Commit(); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
