package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
)

// LedgerStore is the transactional store surface the ledger needs. Each
// mutation is one atomic unit covering the expense row and the owner's
// balance.
type LedgerStore interface {
	CreateExpense(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id, userID int64, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, userID int64) (core.Expense, error)
	GetExpense(ctx context.Context, id, userID int64) (core.Expense, error)
	ListExpenses(ctx context.Context, userID int64, f core.ExpenseFilter) ([]core.Expense, error)
}

// EventPublisher emits committed ledger mutations for downstream workers.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerService validates expense input and drives the atomic ledger
// operations, then notifies the export pipeline. Event publishing is
// best-effort: the mutation has already committed, so a publish failure
// never fails the request.
type LedgerService struct {
	store  LedgerStore
	events EventPublisher
	now    func() time.Time
}

func NewLedgerService(store LedgerStore, events EventPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// CreateExpense records a new expense and decrements the owner's balance
// in one atomic unit.
func (s *LedgerService) CreateExpense(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(s.now()); err != nil {
		return core.Expense{}, err
	}

	expense, err := s.store.CreateExpense(ctx, userID, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.publish(ctx, amqp.ActionCreated, expense)
	return expense, nil
}

// UpdateExpense applies new field values, adjusting the balance by the
// amount difference. Rejected in full on insufficient balance.
func (s *LedgerService) UpdateExpense(ctx context.Context, id, userID int64, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(s.now()); err != nil {
		return core.Expense{}, err
	}

	expense, err := s.store.UpdateExpense(ctx, id, userID, in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.ActionUpdated, expense)
	return expense, nil
}

// DeleteExpense removes the expense and refunds its amount.
func (s *LedgerService) DeleteExpense(ctx context.Context, id, userID int64) error {
	expense, err := s.store.DeleteExpense(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, amqp.ActionDeleted, expense)
	return nil
}

// GetExpense reads one expense owned by the user.
func (s *LedgerService) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	expense, err := s.store.GetExpense(ctx, id, userID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return expense, nil
}

// ListExpenses reads a user's expenses through the store filter.
func (s *LedgerService) ListExpenses(ctx context.Context, userID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *LedgerService) publish(ctx context.Context, action string, e core.Expense) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping ledger event",
			"action", action, "expense_id", e.ID)
		return
	}

	msg := amqp.NewLedgerEventMessage(action, e.ID, e.UserID, e.Amount.Cents)
	if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
		// The mutation is committed; the worker's periodic sweep picks
		// up anything a lost message leaves behind.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"action", action,
			"expense_id", e.ID,
			"user_id", e.UserID,
			"error", err)
	}
}
