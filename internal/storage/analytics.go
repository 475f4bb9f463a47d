package storage

import (
	"context"
	"fmt"
	"time"

	"spendwise/internal/core"
)

// Read-only aggregate queries backing the analytics service. None of them
// mutate state; they run outside any ledger transaction.

// SumInRange totals a user's spend over [from, to] calendar dates,
// inclusive.
func (r *Repository) SumInRange(ctx context.Context, userID int64, from, to time.Time) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE user_id = ? AND expense_date BETWEEN ? AND ?`,
		userID, dateString(from), dateString(to)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses in range: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CategoryTotals sums spend per category within the window, largest first.
func (r *Repository) CategoryTotals(ctx context.Context, userID int64, from, to time.Time) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.color, SUM(e.amount_cents) AS total
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ? AND e.expense_date BETWEEN ? AND ?
		 GROUP BY c.id, c.name, c.color
		 ORDER BY total DESC, c.id ASC`,
		userID, dateString(from), dateString(to))
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()
	return collectCategoryTotals(rows)
}

// TopCategories returns the highest all-time spending categories,
// descending, ties broken by category id.
func (r *Repository) TopCategories(ctx context.Context, userID int64, limit int) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.color, SUM(e.amount_cents) AS total
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?
		 GROUP BY c.id, c.name, c.color
		 ORDER BY total DESC, c.id ASC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()
	return collectCategoryTotals(rows)
}

// DailyTotals sums spend per calendar day within the window, oldest first.
func (r *Repository) DailyTotals(ctx context.Context, userID int64, from, to time.Time) ([]core.DailyTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_date, SUM(amount_cents) AS total
		 FROM expenses
		 WHERE user_id = ? AND expense_date BETWEEN ? AND ?
		 GROUP BY expense_date
		 ORDER BY expense_date ASC`,
		userID, dateString(from), dateString(to))
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var out []core.DailyTotal
	for rows.Next() {
		var dt core.DailyTotal
		if err := rows.Scan(&dt.Date, &dt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		out = append(out, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	return out, nil
}

// MonthlyTotals sums spend per calendar month for expenses dated on or
// after since, chronologically ascending. Months with no spend produce no
// entry; present months keep their order.
func (r *Repository) MonthlyTotals(ctx context.Context, userID int64, since time.Time) ([]core.MonthlyTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(expense_date, 1, 7) AS ym, SUM(amount_cents) AS total
		 FROM expenses
		 WHERE user_id = ? AND expense_date >= ?
		 GROUP BY ym
		 ORDER BY ym ASC`,
		userID, dateString(since))
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyTotal
	for rows.Next() {
		var mt core.MonthlyTotal
		if err := rows.Scan(&mt.Month, &mt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		out = append(out, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return out, nil
}

type categoryTotalRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectCategoryTotals(rows categoryTotalRows) ([]core.CategoryTotal, error) {
	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Color, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	return out, nil
}
