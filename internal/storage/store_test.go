package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spendlog/internal/core"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	dbPath := filepath.Join(s.T().TempDir(), "test.db")
	store, err := Open(dbPath)
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) begin() *Session {
	sess, err := s.store.Begin(s.ctx)
	s.Require().NoError(err)
	return sess
}

func (s *StoreSuite) sampleExpense() core.Expense {
	return core.Expense{
		Title:       "Groceries",
		Category:    "Food",
		Amount:      140.50,
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: "weekly shop",
	}
}

func (s *StoreSuite) TestInsertAndGetExpense() {
	sess := s.begin()
	defer sess.Rollback()

	created, err := sess.InsertExpense(s.ctx, s.sampleExpense())
	s.Require().NoError(err)
	s.NotZero(created.ID)

	got, err := sess.GetExpense(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created, got)
}

func (s *StoreSuite) TestGetExpense_DateRoundTrip() {
	sess := s.begin()
	created, err := sess.InsertExpense(s.ctx, s.sampleExpense())
	s.Require().NoError(err)
	s.Require().NoError(sess.Commit())

	// Read through a fresh session so the value comes back off disk, where
	// the driver materializes the DATE column as time.Time.
	sess = s.begin()
	defer sess.Rollback()

	got, err := sess.GetExpense(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), got.Date)

	listed, err := sess.ListExpenses(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(got.Date, listed[0].Date)
}

func (s *StoreSuite) TestGetExpense_NotFound() {
	sess := s.begin()
	defer sess.Rollback()

	_, err := sess.GetExpense(s.ctx, 9999)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestListExpenses_OrderedByDate() {
	sess := s.begin()
	defer sess.Rollback()

	later := s.sampleExpense()
	later.Title = "Later"
	later.Date = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	earlier := s.sampleExpense()
	earlier.Title = "Earlier"
	earlier.Date = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := sess.InsertExpense(s.ctx, later)
	s.Require().NoError(err)
	_, err = sess.InsertExpense(s.ctx, earlier)
	s.Require().NoError(err)

	expenses, err := sess.ListExpenses(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(expenses, 2)
	s.Equal("Earlier", expenses[0].Title)
	s.Equal("Later", expenses[1].Title)
}

func (s *StoreSuite) TestListExpenses_Empty() {
	sess := s.begin()
	defer sess.Rollback()

	expenses, err := sess.ListExpenses(s.ctx)
	s.Require().NoError(err)
	s.Empty(expenses)
}

func (s *StoreSuite) TestUpdateExpense() {
	sess := s.begin()
	defer sess.Rollback()

	created, err := sess.InsertExpense(s.ctx, s.sampleExpense())
	s.Require().NoError(err)

	created.Amount = 200.50
	created.Description = ""
	s.Require().NoError(sess.UpdateExpense(s.ctx, created))

	got, err := sess.GetExpense(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(200.50, got.Amount)
	s.Empty(got.Description)
}

func (s *StoreSuite) TestUpdateExpense_NotFound() {
	sess := s.begin()
	defer sess.Rollback()

	e := s.sampleExpense()
	e.ID = 42
	s.ErrorIs(sess.UpdateExpense(s.ctx, e), core.ErrNotFound)
}

func (s *StoreSuite) TestDeleteExpense() {
	sess := s.begin()
	defer sess.Rollback()

	created, err := sess.InsertExpense(s.ctx, s.sampleExpense())
	s.Require().NoError(err)

	s.Require().NoError(sess.DeleteExpense(s.ctx, created.ID))
	_, err = sess.GetExpense(s.ctx, created.ID)
	s.ErrorIs(err, core.ErrNotFound)

	s.ErrorIs(sess.DeleteExpense(s.ctx, created.ID), core.ErrNotFound)
}

func (s *StoreSuite) TestSumExpenses() {
	sess := s.begin()
	defer sess.Rollback()

	total, err := sess.SumExpenses(s.ctx)
	s.Require().NoError(err)
	s.Equal(0.0, total)

	first := s.sampleExpense()
	first.Amount = 140.50
	second := s.sampleExpense()
	second.Amount = 200.50
	_, err = sess.InsertExpense(s.ctx, first)
	s.Require().NoError(err)
	_, err = sess.InsertExpense(s.ctx, second)
	s.Require().NoError(err)

	total, err = sess.SumExpenses(s.ctx)
	s.Require().NoError(err)
	s.InDelta(341.0, total, 0.001)
}

func (s *StoreSuite) TestCommitPersists() {
	sess := s.begin()
	created, err := sess.InsertExpense(s.ctx, s.sampleExpense())
	s.Require().NoError(err)
	s.Require().NoError(sess.Commit())

	// rollback after commit must be a harmless no-op
	s.Require().NoError(sess.Rollback())

	check := s.begin()
	defer check.Rollback()
	_, err = check.GetExpense(s.ctx, created.ID)
	s.NoError(err)
}

func (s *StoreSuite) TestRollbackDiscards() {
	sess := s.begin()
	created, err := sess.InsertExpense(s.ctx, s.sampleExpense())
	s.Require().NoError(err)
	s.Require().NoError(sess.Rollback())

	check := s.begin()
	defer check.Rollback()
	_, err = check.GetExpense(s.ctx, created.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestInsertUser_DuplicateEmail() {
	sess := s.begin()
	defer sess.Rollback()

	_, err := sess.InsertUser(s.ctx, "ada@example.com", "hash-1")
	s.Require().NoError(err)

	_, err = sess.InsertUser(s.ctx, "ada@example.com", "hash-2")
	s.ErrorIs(err, core.ErrDuplicateEmail)
}

func (s *StoreSuite) TestGetUserByEmail() {
	sess := s.begin()
	defer sess.Rollback()

	created, err := sess.InsertUser(s.ctx, "ada@example.com", "hash-1")
	s.Require().NoError(err)
	s.NotZero(created.ID)
	s.False(created.IsAdmin)

	got, err := sess.GetUserByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("hash-1", got.Password)

	byID, err := sess.GetUser(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(got.Email, byID.Email)

	_, err = sess.GetUserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestLoginSessions() {
	sess := s.begin()
	defer sess.Rollback()

	user, err := sess.InsertUser(s.ctx, "ada@example.com", "hash-1")
	s.Require().NoError(err)

	now := time.Now()
	s.Require().NoError(sess.InsertLoginSession(s.ctx, "tok-live", user.ID, now.Add(time.Hour)))
	s.Require().NoError(sess.InsertLoginSession(s.ctx, "tok-dead", user.ID, now.Add(-time.Hour)))

	got, err := sess.LookupLoginSession(s.ctx, "tok-live", now)
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)

	_, err = sess.LookupLoginSession(s.ctx, "tok-dead", now)
	s.ErrorIs(err, core.ErrNotFound)

	_, err = sess.LookupLoginSession(s.ctx, "tok-unknown", now)
	s.ErrorIs(err, core.ErrNotFound)

	purged, err := sess.PurgeExpiredLoginSessions(s.ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(1), purged)

	s.Require().NoError(sess.DeleteLoginSession(s.ctx, "tok-live"))
	_, err = sess.LookupLoginSession(s.ctx, "tok-live", now)
	s.ErrorIs(err, core.ErrNotFound)

	// deleting again stays quiet
	s.Require().NoError(sess.DeleteLoginSession(s.ctx, "tok-live"))
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "app.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}
