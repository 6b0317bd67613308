package services

import (
	"context"
	"fmt"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/storage"
)

// ExpenseService orchestrates expense operations across SQLite and AMQP.
type ExpenseService struct {
	store      *storage.Store
	amqpClient *amqp.Client
	logger     *log.Logger
}

func NewExpenseService(store *storage.Store, amqpClient *amqp.Client, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentExpense)
	}
	return &ExpenseService{
		store:      store,
		amqpClient: amqpClient,
		logger:     logger,
	}
}

// ListExpenses returns all expenses ordered by date.
func (s *ExpenseService) ListExpenses(ctx context.Context, sess *storage.Session) ([]core.Expense, error) {
	expenses, err := sess.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// GetExpense retrieves a single expense by id.
func (s *ExpenseService) GetExpense(ctx context.Context, sess *storage.Session, id int64) (core.Expense, error) {
	expense, err := sess.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return expense, nil
}

// TotalExpenses returns the sum of all expense amounts.
func (s *ExpenseService) TotalExpenses(ctx context.Context, sess *storage.Session) (float64, error) {
	total, err := sess.SumExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("total expenses: %w", err)
	}
	return total, nil
}

// CreateExpense validates and persists a new expense, then publishes a
// created event. Publish failures are logged, never surfaced: the expense
// is already saved locally.
func (s *ExpenseService) CreateExpense(ctx context.Context, sess *storage.Session, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := sess.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	if err := sess.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishCreated(ctx, created)
	return created, nil
}

// UpdateExpense applies a partial update to an existing expense. Fields
// left nil in the patch keep their stored values.
func (s *ExpenseService) UpdateExpense(ctx context.Context, sess *storage.Session, id int64, patch core.ExpensePatch) (core.Expense, error) {
	current, err := sess.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := sess.UpdateExpense(ctx, updated); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	if err := sess.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	s.publishUpdated(ctx, updated)
	return updated, nil
}

// DeleteExpense removes an expense and publishes a deleted event. It
// returns the record as it stood before deletion.
func (s *ExpenseService) DeleteExpense(ctx context.Context, sess *storage.Session, id int64) (core.Expense, error) {
	prior, err := sess.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense %d: %w", id, err)
	}

	if err := sess.DeleteExpense(ctx, id); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense %d: %w", id, err)
	}

	if err := sess.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense %d: %w", id, err)
	}

	s.publishDeleted(ctx, id)
	s.logger.InfoContext(ctx, "expense deleted",
		log.FieldExpenseID, id, log.FieldTitle, prior.Title, log.FieldAmount, prior.Amount)
	return prior, nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, e core.Expense) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishExpenseCreated(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish expense created event",
			log.FieldExpenseID, e.ID, log.FieldError, err)
	}
}

func (s *ExpenseService) publishUpdated(ctx context.Context, e core.Expense) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishExpenseUpdated(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish expense updated event",
			log.FieldExpenseID, e.ID, log.FieldError, err)
	}
}

func (s *ExpenseService) publishDeleted(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishExpenseDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish expense deleted event",
			log.FieldExpenseID, id, log.FieldError, err)
	}
}
