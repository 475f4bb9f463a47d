package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendwise/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the sqlite-backed store for users, categories, and
// expenses. All ledger mutations run inside a single transaction so the
// balance and the expense rows can never diverge under partial failure.
type Repository struct {
	db *sql.DB
}

func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a user with the fixed initial balance. Account
// creation belongs to the auth collaborator; this exists for it and for
// tests.
func (r *Repository) CreateUser(ctx context.Context, name string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, balance_cents) VALUES (?, ?)`,
		name, core.InitialBalanceCents)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "name", name,
		"balance_cents", core.InitialBalanceCents)

	return r.GetUser(ctx, id)
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u         core.User
		createdAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, balance_cents, created_at, updated_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Balance.Cents, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTimestamp(createdAt)
	u.UpdatedAt = parseTimestamp(updatedAt)
	return u, nil
}

// Balance reads the live balance for analytics and ledger callers outside
// a transaction.
func (r *Repository) Balance(ctx context.Context, userID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance_cents FROM users WHERE id = ?`, userID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("read balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

const expenseColumns = `e.id, e.user_id, e.category_id, e.amount_cents, e.description,
	COALESCE(e.notes, ''), e.expense_date, e.created_at, e.updated_at,
	c.name, COALESCE(c.description, ''), c.color, c.is_predefined`

// GetExpense loads one expense with its resolved category, scoped to the
// owning user. An ownership mismatch reads the same as non-existence.
func (r *Repository) GetExpense(ctx context.Context, id, userID int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.id = ? AND e.user_id = ?`, id, userID)
	return scanExpense(row)
}

// ListExpenses returns a user's expenses, newest first, narrowed by the
// filter.
func (r *Repository) ListExpenses(ctx context.Context, userID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + `
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?`
	args := []any{userID}

	if f.CategoryID != nil {
		query += ` AND e.category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if f.MinAmountCents != nil {
		query += ` AND e.amount_cents >= ?`
		args = append(args, *f.MinAmountCents)
	}
	if f.MaxAmountCents != nil {
		query += ` AND e.amount_cents <= ?`
		args = append(args, *f.MaxAmountCents)
	}
	if !f.From.IsZero() {
		query += ` AND e.expense_date >= ?`
		args = append(args, dateString(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND e.expense_date <= ?`
		args = append(args, dateString(f.To))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		query += ` AND (e.description LIKE ? OR COALESCE(e.notes, '') LIKE ?)`
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY e.expense_date DESC, e.id DESC`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// GetCategory loads a category visible to the user (owned or predefined).
func (r *Repository) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	var (
		c          core.Category
		predefined int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(description, ''), color, is_predefined
		 FROM categories WHERE id = ? AND (user_id = ? OR is_predefined = 1)`,
		id, userID).
		Scan(&c.ID, &c.Name, &c.Description, &c.Color, &predefined)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Predefined = predefined == 1
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e          core.Expense
		cat        core.Category
		date       string
		createdAt  string
		updatedAt  string
		predefined int64
	)
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount.Cents,
		&e.Description, &e.Notes, &date, &createdAt, &updatedAt,
		&cat.Name, &cat.Description, &cat.Color, &predefined)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Date = parseDate(date)
	e.CreatedAt = parseTimestamp(createdAt)
	e.UpdatedAt = parseTimestamp(updatedAt)
	cat.ID = e.CategoryID
	cat.Predefined = predefined == 1
	e.Category = &cat
	return e, nil
}

func dateString(t time.Time) string {
	return t.Format("2006-01-02")
}

func parseDate(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimestamp handles sqlite's CURRENT_TIMESTAMP text format.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
