package sheets

import (
	"context"

	"spendlog/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// ExpenseAppender mirrors an expense into a spreadsheet row. The
	// returned rowRef identifies the written range.
	ExpenseAppender interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// ExpenseRemover removes the spreadsheet row holding the expense id.
	// Removing an id with no row is not an error.
	ExpenseRemover interface {
		Remove(ctx context.Context, id int64) error
	}

	// ExpenseMirror is the full surface the export worker needs.
	ExpenseMirror interface {
		ExpenseAppender
		ExpenseRemover
	}
)
