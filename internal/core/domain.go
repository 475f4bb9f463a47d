package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// InitialBalanceCents is the fixed starting balance credited to every
	// account at creation (1000.00). The spending rate metric is computed
	// against this constant, never against the live balance.
	InitialBalanceCents int64 = 100_000

	// MaxAmountCents caps a single expense at 999999.99.
	MaxAmountCents int64 = 99_999_999

	// MaxDescriptionLen is the maximum description length in characters.
	MaxDescriptionLen = 255
)

type (
	Money struct {
		Cents int64
	}

	// User is the account owning a balance. It is created by the
	// authentication layer; this package only ever adjusts its balance
	// through ledger operations.
	User struct {
		ID        int64
		Name      string
		Balance   Money
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Category is a spending category, either owned by a user or
	// globally predefined (seeded by migrations).
	Category struct {
		ID          int64
		Name        string
		Description string
		Color       string
		Predefined  bool
	}

	// Expense is a single ledger entry. Its amount is coupled to the
	// owning user's balance: every mutation of Amount goes through a
	// ledger operation that adjusts the balance by the same delta.
	Expense struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      Money
		Description string
		Notes       string
		Date        time.Time // calendar date, midnight UTC
		Category    *Category // resolved on reads
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// ExpenseInput carries the caller-settable fields for create and
	// update operations.
	ExpenseInput struct {
		Amount      Money
		Description string
		Notes       string
		CategoryID  int64
		Date        time.Time
	}

	// ExpenseFilter narrows a ListExpenses read. Nil pointer fields are
	// not applied.
	ExpenseFilter struct {
		CategoryID     *int64
		MinAmountCents *int64
		MaxAmountCents *int64
		From           time.Time
		To             time.Time
		Search         string
		Limit          int
		Offset         int
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 255 characters)")
	ErrInvalidExpenseDate  = errors.New("invalid expense date")
	ErrFutureExpenseDate   = errors.New("expense date is in the future")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrExpenseNotFound     = errors.New("expense not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the decimal money value for display and serialization.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Decimal() float64 {
	return float64(m.Cents) / 100.0
}

// Validate checks the domain constraints on the input fields. today is the
// reference date for the no-future-expenses rule; only the calendar date is
// compared, not the time of day.
func (in ExpenseInput) Validate(today time.Time) error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(in.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if in.CategoryID <= 0 {
		return ErrCategoryNotFound
	}
	if in.Date.IsZero() {
		return ErrInvalidExpenseDate
	}
	if DateOnly(in.Date).After(DateOnly(today)) {
		return ErrFutureExpenseDate
	}
	return nil
}

// DateOnly truncates t to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date from year, month, day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
