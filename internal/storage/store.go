// Package storage implements the persistence layer over SQLite.
//
// All row operations run inside a Session, a transaction-scoped unit of
// work. Callers acquire one Session per request, perform their operations,
// and either Commit or let a deferred Rollback release it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendlog/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Store wraps the SQLite connection pool.
type Store struct {
	db *sql.DB
}

// Open opens the database at dbPath, creating the parent directory if
// needed, and applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping verifies the database connection, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Session is a unit of work bounding a set of row operations that commit
// or roll back together.
type Session struct {
	tx   *sql.Tx
	done bool
}

// Begin starts a new unit of work.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Commit makes the session's changes durable.
func (sess *Session) Commit() error {
	if sess.done {
		return nil
	}
	sess.done = true
	if err := sess.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the session's changes. It is a no-op after Commit, so
// it is safe to defer unconditionally.
func (sess *Session) Rollback() error {
	if sess.done {
		return nil
	}
	sess.done = true
	if err := sess.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---- expense rows ----

// InsertExpense inserts a new expense row and returns it with its id set.
func (sess *Session) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := sess.tx.ExecContext(ctx,
		"INSERT INTO expense (title, category, amount, date, description) VALUES (?, ?, ?, ?, ?)",
		e.Title, e.Category, e.Amount, e.Date.Format(dateLayout), e.Description,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id
	return e, nil
}

// GetExpense retrieves a single expense by id.
func (sess *Session) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := sess.tx.QueryRowContext(ctx,
		"SELECT id, title, category, amount, date, description FROM expense WHERE id = ?", id)
	return scanExpense(row)
}

// ListExpenses returns all expenses ordered by date ascending.
func (sess *Session) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := sess.tx.QueryContext(ctx,
		"SELECT id, title, category, amount, date, description FROM expense ORDER BY date ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense overwrites every stored field of the row with e's values.
// Partial-update semantics live one level up, in the expense service.
func (sess *Session) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := sess.tx.ExecContext(ctx,
		"UPDATE expense SET title = ?, category = ?, amount = ?, date = ?, description = ? WHERE id = ?",
		e.Title, e.Category, e.Amount, e.Date.Format(dateLayout), e.Description, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteExpense removes the row with the given id.
func (sess *Session) DeleteExpense(ctx context.Context, id int64) error {
	res, err := sess.tx.ExecContext(ctx, "DELETE FROM expense WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SumExpenses returns the sum of all amounts, 0.0 when the table is empty.
func (sess *Session) SumExpenses(ctx context.Context) (float64, error) {
	var total float64
	err := sess.tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0.0) FROM expense").Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e           core.Expense
		date        time.Time
		description sql.NullString
	)
	// The date column has a DATE decltype, so the driver yields time.Time.
	if err := row.Scan(&e.ID, &e.Title, &e.Category, &e.Amount, &date, &description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	y, m, d := date.UTC().Date()
	e.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	e.Description = description.String
	return e, nil
}

// ---- user rows ----

// InsertUser persists a new user. The password must already be hashed.
// A duplicate email surfaces as core.ErrDuplicateEmail.
func (sess *Session) InsertUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	createdOn := time.Now().UTC()
	res, err := sess.tx.ExecContext(ctx,
		"INSERT INTO user (email, password, created_on, is_admin) VALUES (?, ?, ?, 0)",
		email, passwordHash, createdOn,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{
		ID:        id,
		Email:     email,
		Password:  passwordHash,
		CreatedOn: createdOn,
	}, nil
}

// GetUser retrieves a user by id.
func (sess *Session) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := sess.tx.QueryRowContext(ctx,
		"SELECT id, email, password, created_on, is_admin FROM user WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (sess *Session) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := sess.tx.QueryRowContext(ctx,
		"SELECT id, email, password, created_on, is_admin FROM user WHERE email = ?", email)
	return scanUser(row)
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedOn, &u.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// ---- login session rows ----

// InsertLoginSession stores a browser session token for a user.
func (sess *Session) InsertLoginSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := sess.tx.ExecContext(ctx,
		"INSERT INTO login_session (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert login session: %w", err)
	}
	return nil
}

// LookupLoginSession resolves an unexpired token to its user.
func (sess *Session) LookupLoginSession(ctx context.Context, token string, now time.Time) (core.User, error) {
	row := sess.tx.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password, u.created_on, u.is_admin
		FROM login_session s
		JOIN user u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, now.UTC(),
	)
	return scanUser(row)
}

// DeleteLoginSession removes a session token. Deleting an absent token is
// not an error, which keeps logout idempotent.
func (sess *Session) DeleteLoginSession(ctx context.Context, token string) error {
	if _, err := sess.tx.ExecContext(ctx,
		"DELETE FROM login_session WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete login session: %w", err)
	}
	return nil
}

// PurgeExpiredLoginSessions removes every expired session row.
func (sess *Session) PurgeExpiredLoginSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := sess.tx.ExecContext(ctx,
		"DELETE FROM login_session WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired login sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}
