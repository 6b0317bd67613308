// Package auth implements registration, login, and cookie session handling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

// Flow ties the user service and the session table into the login and
// registration flows. Each operation runs its own storage session.
type Flow struct {
	store      *storage.Store
	users      *services.UserService
	sessionTTL time.Duration
	logger     *log.Logger
}

func NewFlow(store *storage.Store, users *services.UserService, sessionTTL time.Duration, logger *log.Logger) *Flow {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentAuth)
	}
	return &Flow{
		store:      store,
		users:      users,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Register creates a new account. A taken email surfaces as
// core.ErrDuplicateEmail for the handler to render as a field error.
func (f *Flow) Register(ctx context.Context, email, password string) (core.User, error) {
	if password == "" {
		return core.User{}, core.ErrEmptyPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	sess, err := f.store.Begin(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}
	defer sess.Rollback()

	user, err := f.users.CreateUser(ctx, sess, email, hash)
	if err != nil {
		return core.User{}, err
	}

	f.logger.InfoContext(ctx, "user registered",
		log.FieldOperation, log.OpRegister, log.FieldUserID, user.ID)
	return user, nil
}

// Login verifies credentials and, on success, establishes a session row and
// returns its token. Unknown email and wrong password both return
// core.ErrInvalidCredentials after one bcrypt comparison, so the two cases
// are indistinguishable to the caller and on the wire.
func (f *Flow) Login(ctx context.Context, email, password string) (core.User, string, error) {
	sess, err := f.store.Begin(ctx)
	if err != nil {
		return core.User{}, "", fmt.Errorf("login: %w", err)
	}
	defer sess.Rollback()

	user, err := f.users.GetUserByEmail(ctx, sess, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			compareDummy(password)
			f.logger.InfoContext(ctx, "login failed",
				log.FieldOperation, log.OpLogin)
			return core.User{}, "", core.ErrInvalidCredentials
		}
		return core.User{}, "", err
	}

	if !CheckPassword(user.Password, password) {
		f.logger.InfoContext(ctx, "login failed",
			log.FieldOperation, log.OpLogin)
		return core.User{}, "", core.ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := sess.InsertLoginSession(ctx, token, user.ID, time.Now().Add(f.sessionTTL)); err != nil {
		return core.User{}, "", fmt.Errorf("login: %w", err)
	}
	if err := sess.Commit(); err != nil {
		return core.User{}, "", fmt.Errorf("login: %w", err)
	}

	f.logger.InfoContext(ctx, "user logged in",
		log.FieldOperation, log.OpLogin, log.FieldUserID, user.ID)
	return user, token, nil
}

// CurrentUser resolves a session token to its user. Expired and unknown
// tokens return core.ErrNotFound.
func (f *Flow) CurrentUser(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, core.ErrNotFound
	}

	sess, err := f.store.Begin(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("current user: %w", err)
	}
	defer sess.Rollback()

	user, err := sess.LookupLoginSession(ctx, token, time.Now())
	if err != nil {
		return core.User{}, err
	}
	return user, nil
}

// Logout deletes the session row for token. Logging out an unknown or
// already removed token succeeds.
func (f *Flow) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sess, err := f.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer sess.Rollback()

	if err := sess.DeleteLoginSession(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := sess.Commit(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	f.logger.InfoContext(ctx, "user logged out",
		log.FieldOperation, log.OpLogout)
	return nil
}

// PurgeExpired removes expired session rows, returning the count removed.
func (f *Flow) PurgeExpired(ctx context.Context) (int64, error) {
	sess, err := f.store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	defer sess.Rollback()

	n, err := sess.PurgeExpiredLoginSessions(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if err := sess.Commit(); err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
