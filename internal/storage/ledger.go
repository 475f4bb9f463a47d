package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"spendwise/internal/core"
)

// The three ledger operations below each run as one atomic unit: the
// expense row mutation and the balance adjustment either both commit or
// neither does. The balance check reads inside the same transaction, so
// two concurrent operations on one user cannot both pass against a stale
// balance (sqlite serializes writers; a conflicting writer surfaces as a
// busy error and the whole unit rolls back).

// CreateExpense inserts an expense and decrements the owner's balance.
// Rejects with core.ErrInsufficientBalance when the live balance cannot
// cover the amount, and with core.ErrCategoryNotFound when the category
// is not visible to the user.
func (r *Repository) CreateExpense(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin create expense: %w", err)
	}
	defer tx.Rollback()

	if err := categoryVisible(ctx, tx, in.CategoryID, userID); err != nil {
		return core.Expense{}, err
	}

	balance, err := balanceForUpdate(ctx, tx, userID)
	if err != nil {
		return core.Expense{}, err
	}
	if balance < in.Amount.Cents {
		return core.Expense{}, core.ErrInsufficientBalance
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, description, notes, expense_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, in.CategoryID, in.Amount.Cents, in.Description,
		nullable(in.Notes), dateString(in.Date))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}

	if err := applyBalanceDelta(ctx, tx, userID, -in.Amount.Cents); err != nil {
		return core.Expense{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", id,
		"user_id", userID,
		"amount_cents", in.Amount.Cents,
		"category_id", in.CategoryID)

	return r.GetExpense(ctx, id, userID)
}

// UpdateExpense applies new field values and adjusts the balance by the
// signed difference between new and old amount. A positive difference the
// balance cannot cover rejects the whole update; no fields are applied.
func (r *Repository) UpdateExpense(ctx context.Context, id, userID int64, in core.ExpenseInput) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin update expense: %w", err)
	}
	defer tx.Rollback()

	var oldAmount int64
	err = tx.QueryRowContext(ctx,
		`SELECT amount_cents FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&oldAmount)
	if errors.Is(err, sql.ErrNoRows) {
		// Ownership mismatch reads identically to non-existence.
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("read expense for update: %w", err)
	}

	if err := categoryVisible(ctx, tx, in.CategoryID, userID); err != nil {
		return core.Expense{}, err
	}

	difference := in.Amount.Cents - oldAmount
	if difference > 0 {
		balance, err := balanceForUpdate(ctx, tx, userID)
		if err != nil {
			return core.Expense{}, err
		}
		if balance < difference {
			return core.Expense{}, core.ErrInsufficientBalance
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses
		 SET amount_cents = ?, description = ?, notes = ?, category_id = ?,
		     expense_date = ?, sync_status = 'pending', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		in.Amount.Cents, in.Description, nullable(in.Notes), in.CategoryID,
		dateString(in.Date), id, userID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	if difference != 0 {
		if err := applyBalanceDelta(ctx, tx, userID, -difference); err != nil {
			return core.Expense{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit update expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense updated",
		"expense_id", id,
		"user_id", userID,
		"amount_cents", in.Amount.Cents,
		"difference_cents", difference)

	return r.GetExpense(ctx, id, userID)
}

// DeleteExpense removes the expense and refunds its amount to the owner's
// balance in the same atomic unit. Returns the deleted expense.
func (r *Repository) DeleteExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	deleted, err := r.GetExpense(ctx, id, userID)
	if err != nil {
		return core.Expense{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin delete expense: %w", err)
	}
	defer tx.Rollback()

	var amount int64
	err = tx.QueryRowContext(ctx,
		`SELECT amount_cents FROM expenses WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("read expense for delete: %w", err)
	}

	if err := applyBalanceDelta(ctx, tx, userID, amount); err != nil {
		return core.Expense{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted",
		"expense_id", id,
		"user_id", userID,
		"refund_cents", amount)

	return deleted, nil
}

// applyBalanceDelta is the balance mutator: it adjusts a user's balance by
// a signed cent delta inside the caller's transaction. Every expense-row
// mutation pairs with exactly one call to it.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, userID, delta int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents + ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, delta, userID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// balanceForUpdate reads the live balance inside the transaction so the
// sufficiency check and the mutation see the same value.
func balanceForUpdate(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var cents int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM users WHERE id = ?`, userID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return cents, nil
}

// categoryVisible enforces the owned-or-predefined rule even when the
// category collaborator's check was bypassed.
func categoryVisible(ctx context.Context, tx *sql.Tx, categoryID, userID int64) error {
	var one int64
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE id = ? AND (user_id = ? OR is_predefined = 1)`,
		categoryID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
