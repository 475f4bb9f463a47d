package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spendwise/internal/core"
)

// categoryJSON is the resolved category embedded in an expense response.
type categoryJSON struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// expenseJSON is the wire shape of one ledger entry. Amounts travel as
// decimal values; cents stay internal.
type expenseJSON struct {
	ID          int64         `json:"id"`
	Amount      float64       `json:"amount"`
	Description string        `json:"description"`
	Notes       string        `json:"notes,omitempty"`
	ExpenseDate string        `json:"expense_date"`
	Category    *categoryJSON `json:"category,omitempty"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	out := expenseJSON{
		ID:          e.ID,
		Amount:      e.Amount.Decimal(),
		Description: e.Description,
		Notes:       e.Notes,
		ExpenseDate: e.Date.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.Category != nil {
		out.Category = &categoryJSON{
			ID:    e.Category.ID,
			Name:  e.Category.Name,
			Color: e.Category.Color,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeDomainError maps domain sentinels to HTTP statuses. Anything not
// recognized is a storage or infrastructure failure and becomes a 500
// without leaking internals.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, core.ErrInvalidExpenseDate),
		errors.Is(err, core.ErrFutureExpenseDate):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient balance")
	case errors.Is(err, core.ErrCategoryNotFound):
		writeError(w, http.StatusUnprocessableEntity, "category not found")
	case errors.Is(err, core.ErrExpenseNotFound):
		writeError(w, http.StatusNotFound, "expense not found")
	case errors.Is(err, core.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
