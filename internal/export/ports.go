package export

import (
	"context"

	"spendwise/internal/core"
)

// StatementWriter appends a committed expense to an external statement.
type StatementWriter interface {
	AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
}
