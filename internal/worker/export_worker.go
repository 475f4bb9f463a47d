package worker

import (
	"context"
	"fmt"
	"log/slog"

	"spendwise/internal/amqp"
	"spendwise/internal/export"
	"spendwise/internal/storage"
)

// ExportWorker writes committed expenses to the external statement. It
// consumes ledger events and, as a backup for lost messages, sweeps the
// pending rows periodically.
type ExportWorker struct {
	storage   *storage.Repository
	statement export.StatementWriter
	batchSize int
}

func NewExportWorker(storage *storage.Repository, statement export.StatementWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		statement: statement,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"action", msg.Action,
		"expense_id", msg.ExpenseID,
		"user_id", msg.UserID)

	switch msg.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		return w.exportExpense(ctx, msg.ExpenseID, msg.UserID)
	case amqp.ActionDeleted:
		// The row is gone from the ledger; the statement keeps its
		// history. Nothing to export.
		slog.InfoContext(ctx, "Expense deleted, no statement row to write",
			"expense_id", msg.ExpenseID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown ledger event action, dropping",
			"action", msg.Action, "expense_id", msg.ExpenseID)
		return nil
	}
}

func (w *ExportWorker) exportExpense(ctx context.Context, expenseID, userID int64) error {
	expense, err := w.storage.GetExpense(ctx, expenseID, userID)
	if err != nil {
		// Deleted between commit and consume. Not an error worth a requeue.
		slog.WarnContext(ctx, "Expense not found for export, skipping",
			"expense_id", expenseID, "error", err)
		return nil
	}

	rowRef, err := w.statement.AppendExpense(ctx, expense)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, expenseID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"expense_id", expenseID, "error", markErr)
		}
		return fmt.Errorf("append expense to statement: %w", err)
	}

	if err := w.storage.MarkExported(ctx, expenseID); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	slog.InfoContext(ctx, "Expense exported to statement",
		"expense_id", expenseID,
		"row_ref", rowRef)

	return nil
}

// ProcessPending exports any expenses that are still pending.
// This is a backup mechanism in case AMQP messages are lost
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ExpenseID, p.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense",
				"expense_id", p.ExpenseID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSweep exports pending expenses at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupSweep(ctx context.Context) error {
	pending, err := w.storage.GetPendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup sweep: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportExpense(ctx, p.ExpenseID, p.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense during startup",
				"expense_id", p.ExpenseID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sweep completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}
