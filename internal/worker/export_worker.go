// Package worker mirrors expense changes from SQLite into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/sheets"
	"spendlog/internal/storage"
)

// ExportWorker consumes expense events and applies them to a spreadsheet
// mirror. A periodic reconcile sweep re-appends every stored expense as a
// backup for lost events; Append is idempotent per id, so replays converge.
type ExportWorker struct {
	store     *storage.Store
	mirror    sheets.ExpenseMirror
	client    *amqp.Client
	batchSize int
	interval  time.Duration
	logger    *log.Logger
}

func NewExportWorker(store *storage.Store, mirror sheets.ExpenseMirror, client *amqp.Client, batchSize int, interval time.Duration, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &ExportWorker{
		store:     store,
		mirror:    mirror,
		client:    client,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
	}
}

// Run consumes events and reconciles periodically until ctx is done.
func (w *ExportWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.client.ConsumeExpenseEvents(ctx, func(msg *amqp.ExpenseEventMessage) error {
			return w.HandleEvent(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.Reconcile(ctx); err != nil {
					w.logger.ErrorContext(ctx, "reconcile sweep failed", log.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent applies a single expense event to the mirror.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	w.logger.InfoContext(ctx, "processing expense event",
		"action", msg.Action, log.FieldExpenseID, msg.ID)

	switch msg.Action {
	case amqp.ActionDeleted:
		if err := w.mirror.Remove(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove expense %d from mirror: %w", msg.ID, err)
		}
		return nil

	case amqp.ActionCreated, amqp.ActionUpdated:
		expense, err := w.loadExpense(ctx, msg.ID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				// deleted between publish and delivery, drop the row instead
				if err := w.mirror.Remove(ctx, msg.ID); err != nil {
					return fmt.Errorf("remove stale expense %d: %w", msg.ID, err)
				}
				return nil
			}
			return err
		}

		ref, err := w.mirror.Append(ctx, expense)
		if err != nil {
			return fmt.Errorf("append expense %d to mirror: %w", msg.ID, err)
		}
		w.logger.InfoContext(ctx, "expense mirrored",
			log.FieldExpenseID, msg.ID, log.FieldSheetsRef, ref)
		return nil

	default:
		w.logger.WarnContext(ctx, "unknown event action dropped",
			"action", msg.Action, log.FieldExpenseID, msg.ID)
		return nil
	}
}

// Reconcile re-appends every stored expense to the mirror in batches. This
// recovers rows lost to missed events or mirror downtime.
func (w *ExportWorker) Reconcile(ctx context.Context) error {
	sess, err := w.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	expenses, err := sess.ListExpenses(ctx)
	sess.Rollback()
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	var synced, failed int
	for i, e := range expenses {
		if i > 0 && i%w.batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if _, err := w.mirror.Append(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "failed to mirror expense",
				log.FieldExpenseID, e.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "reconcile sweep completed",
		log.FieldOperation, log.OpExport, "total", len(expenses),
		"synced", synced, "errors", failed)
	return nil
}

func (w *ExportWorker) loadExpense(ctx context.Context, id int64) (core.Expense, error) {
	sess, err := w.store.Begin(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load expense %d: %w", id, err)
	}
	defer sess.Rollback()
	return sess.GetExpense(ctx, id)
}
