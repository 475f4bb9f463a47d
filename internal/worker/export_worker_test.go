package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

type fakeStatement struct {
	appended []core.Expense
	err      error
}

func (f *fakeStatement) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, e)
	return fmt.Sprintf("Statement!A%d:E%d", len(f.appended), len(f.appended)), nil
}

func newWorkerFixture(t *testing.T) (*storage.Repository, core.User, core.Expense) {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(ctx, "Test User")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	expense, err := repo.CreateExpense(ctx, user.ID, core.ExpenseInput{
		Amount:      core.Money{Cents: 2550},
		Description: "Grocery shopping",
		CategoryID:  1,
		Date:        core.NewDate(2026, 8, 15),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}
	return repo, user, expense
}

func TestHandleLedgerEventCreated(t *testing.T) {
	repo, user, expense := newWorkerFixture(t)
	statement := &fakeStatement{}
	w := NewExportWorker(repo, statement, 10)
	ctx := context.Background()

	msg := amqp.NewLedgerEventMessage(amqp.ActionCreated, expense.ID, user.ID, expense.Amount.Cents)
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error: %v", err)
	}

	if len(statement.appended) != 1 || statement.appended[0].ID != expense.ID {
		t.Errorf("appended = %+v, want the created expense", statement.appended)
	}

	// The row is now synced and leaves the pending queue.
	pending, err := repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after export = %d rows, want 0", len(pending))
	}
}

func TestHandleLedgerEventDeletedIsNoop(t *testing.T) {
	repo, user, expense := newWorkerFixture(t)
	statement := &fakeStatement{}
	w := NewExportWorker(repo, statement, 10)

	msg := amqp.NewLedgerEventMessage(amqp.ActionDeleted, expense.ID, user.ID, expense.Amount.Cents)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error: %v", err)
	}
	if len(statement.appended) != 0 {
		t.Errorf("statement written for a delete event: %+v", statement.appended)
	}
}

func TestHandleLedgerEventMissingExpenseSkips(t *testing.T) {
	repo, user, _ := newWorkerFixture(t)
	statement := &fakeStatement{}
	w := NewExportWorker(repo, statement, 10)

	// Expense deleted between commit and consume: ack, don't requeue.
	msg := amqp.NewLedgerEventMessage(amqp.ActionCreated, 9999, user.ID, 1000)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent() error = %v, want nil", err)
	}
	if len(statement.appended) != 0 {
		t.Errorf("statement written for a missing expense: %+v", statement.appended)
	}
}

func TestHandleLedgerEventAppendFailureMarksError(t *testing.T) {
	repo, user, expense := newWorkerFixture(t)
	statement := &fakeStatement{err: errors.New("sheets unavailable")}
	w := NewExportWorker(repo, statement, 10)
	ctx := context.Background()

	msg := amqp.NewLedgerEventMessage(amqp.ActionCreated, expense.ID, user.ID, expense.Amount.Cents)
	if err := w.HandleLedgerEvent(ctx, msg); err == nil {
		t.Fatal("HandleLedgerEvent() returned nil, want error")
	}

	// The error status keeps the row out of the pending sweep.
	pending, err := repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failed export = %d rows, want 0", len(pending))
	}
}

func TestProcessPendingSweepsBacklog(t *testing.T) {
	repo, user, _ := newWorkerFixture(t)
	ctx := context.Background()

	// A second pending expense on top of the fixture's one.
	if _, err := repo.CreateExpense(ctx, user.ID, core.ExpenseInput{
		Amount:      core.Money{Cents: 1200},
		Description: "Bus ticket",
		CategoryID:  2,
		Date:        core.NewDate(2026, 8, 16),
	}); err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}

	statement := &fakeStatement{}
	w := NewExportWorker(repo, statement, 10)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error: %v", err)
	}
	if len(statement.appended) != 2 {
		t.Errorf("appended %d rows, want 2", len(statement.appended))
	}

	// A second sweep finds nothing left.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() second run error: %v", err)
	}
	if len(statement.appended) != 2 {
		t.Errorf("second sweep re-exported rows: %d total", len(statement.appended))
	}
}

func TestStartupSweepContinuesPastFailures(t *testing.T) {
	repo, user, _ := newWorkerFixture(t)
	ctx := context.Background()

	if _, err := repo.CreateExpense(ctx, user.ID, core.ExpenseInput{
		Amount:      core.Money{Cents: 1200},
		Description: "Bus ticket",
		CategoryID:  2,
		Date:        core.NewDate(2026, 8, 16),
	}); err != nil {
		t.Fatalf("CreateExpense() error: %v", err)
	}

	statement := &fakeStatement{err: errors.New("sheets unavailable")}
	w := NewExportWorker(repo, statement, 10)

	// Failures are logged per row; the sweep itself still succeeds.
	if err := w.StartupSweep(ctx); err != nil {
		t.Fatalf("StartupSweep() error: %v", err)
	}

	pending, err := repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failed sweep = %d rows, want 0 (marked error)", len(pending))
	}
}
