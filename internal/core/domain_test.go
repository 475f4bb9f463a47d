package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	tests := []struct {
		name    string
		cents   int64
		wantErr bool
	}{
		{"one cent", 1, false},
		{"typical amount", 2550, false},
		{"max amount", MaxAmountCents, false},
		{"zero", 0, true},
		{"negative", -100, true},
		{"over max", MaxAmountCents + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Money{Cents: tt.cents}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Money{%d}.Validate() error = %v, wantErr %v", tt.cents, err, tt.wantErr)
			}
		})
	}
}

func TestMoneyDecimal(t *testing.T) {
	m := Money{Cents: 2550}
	if got := m.Decimal(); got != 25.50 {
		t.Errorf("Decimal() = %v, want 25.50", got)
	}
}

func TestExpenseInputValidate(t *testing.T) {
	today := NewDate(2026, 8, 28)

	valid := ExpenseInput{
		Amount:      Money{Cents: 2550},
		Description: "Grocery shopping",
		CategoryID:  1,
		Date:        NewDate(2026, 8, 27),
	}

	tests := []struct {
		name    string
		mutate  func(in *ExpenseInput)
		wantErr error
	}{
		{"valid input", func(in *ExpenseInput) {}, nil},
		{"today is allowed", func(in *ExpenseInput) { in.Date = today }, nil},
		{"zero amount", func(in *ExpenseInput) { in.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(in *ExpenseInput) { in.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"amount over cap", func(in *ExpenseInput) { in.Amount = Money{Cents: MaxAmountCents + 1} }, ErrInvalidAmount},
		{"empty description", func(in *ExpenseInput) { in.Description = "" }, ErrEmptyDescription},
		{"whitespace description", func(in *ExpenseInput) { in.Description = "   " }, ErrEmptyDescription},
		{"description too long", func(in *ExpenseInput) { in.Description = strings.Repeat("x", 256) }, ErrDescriptionTooLong},
		{"description at limit", func(in *ExpenseInput) { in.Description = strings.Repeat("x", 255) }, nil},
		{"missing category", func(in *ExpenseInput) { in.CategoryID = 0 }, ErrCategoryNotFound},
		{"zero date", func(in *ExpenseInput) { in.Date = time.Time{} }, ErrInvalidExpenseDate},
		{"future date", func(in *ExpenseInput) { in.Date = NewDate(2026, 8, 29) }, ErrFutureExpenseDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.Validate(today)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseInputValidateIgnoresTimeOfDay(t *testing.T) {
	// A date later in the day than now but on the same calendar day is
	// not a future expense.
	now := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	in := ExpenseInput{
		Amount:      Money{Cents: 100},
		Description: "Coffee",
		CategoryID:  1,
		Date:        time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC),
	}
	if err := in.Validate(now); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2026, 8, 28, 17, 45, 12, 999, time.UTC)
	want := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if got := DateOnly(in); !got.Equal(want) {
		t.Errorf("DateOnly() = %v, want %v", got, want)
	}
}
