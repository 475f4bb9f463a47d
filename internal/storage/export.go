package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Export bookkeeping for the statement worker. Every created or updated
// expense starts as 'pending'; the worker moves it to 'synced' or 'error'.

// PendingExport identifies an expense row awaiting statement export.
type PendingExport struct {
	ExpenseID int64
	UserID    int64
	CreatedAt time.Time
}

// GetPendingExports returns up to limit expenses not yet exported,
// oldest first.
func (r *Repository) GetPendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, created_at FROM expenses
		 WHERE sync_status = 'pending'
		 ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var (
			p         PendingExport
			createdAt string
		)
		if err := rows.Scan(&p.ExpenseID, &p.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		p.CreatedAt = parseTimestamp(createdAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	return out, nil
}

// MarkExported marks an expense as successfully written to the statement.
func (r *Repository) MarkExported(ctx context.Context, expenseID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as exported", "expense_id", expenseID)
	return nil
}

// MarkExportError marks an expense as having failed export; the periodic
// sweep will not retry it until the status is reset manually.
func (r *Repository) MarkExportError(ctx context.Context, expenseID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = 'error' WHERE id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with export error", "expense_id", expenseID)
	return nil
}
