package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendwise/internal/core"
)

// expenseRequest is the JSON body accepted by create and update. The
// amount arrives as a decimal number or string and is converted to cents
// before it touches the domain.
type expenseRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
	CategoryID  int64           `json:"category_id"`
	ExpenseDate string          `json:"expense_date"`
}

// rawAmount accepts both "25.50" and 25.5 wire forms.
func rawAmount(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}

// authUserID resolves the acting user from the X-User-ID header set by
// the gateway. Zero means unauthenticated.
func authUserID(r *http.Request) int64 {
	raw := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseExpenseRequest(r *http.Request) (core.ExpenseInput, string) {
	var req expenseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return core.ExpenseInput{}, "invalid request body"
	}

	cents, err := core.ParseDecimalToCents(rawAmount(req.Amount))
	if err != nil {
		return core.ExpenseInput{}, "invalid amount"
	}

	date, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return core.ExpenseInput{}, "invalid expense_date, expected YYYY-MM-DD"
	}

	return core.ExpenseInput{
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(req.Description),
		Notes:       strings.TrimSpace(req.Notes),
		CategoryID:  req.CategoryID,
		Date:        date,
	}, ""
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	in, msg := parseExpenseRequest(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	expense, err := s.ledger.CreateExpense(r.Context(), userID, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateAnalytics(userID)
	writeJSON(w, http.StatusCreated, toExpenseJSON(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	in, msg := parseExpenseRequest(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	expense, err := s.ledger.UpdateExpense(r.Context(), id, userID, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateAnalytics(userID)
	writeJSON(w, http.StatusOK, toExpenseJSON(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), id, userID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateAnalytics(userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "expense deleted"})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	expense, err := s.ledger.GetExpense(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseJSON(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	filter, msg := parseExpenseFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), userID, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out, "count": len(out)})
}

func parseExpenseFilter(r *http.Request) (core.ExpenseFilter, string) {
	q := r.URL.Query()
	var f core.ExpenseFilter

	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return f, "invalid category_id"
		}
		f.CategoryID = &id
	}

	if raw := q.Get("min_amount"); raw != "" {
		cents, err := core.ParseDecimalToCents(raw)
		if err != nil {
			return f, "invalid min_amount"
		}
		f.MinAmountCents = &cents
	}

	if raw := q.Get("max_amount"); raw != "" {
		cents, err := core.ParseDecimalToCents(raw)
		if err != nil {
			return f, "invalid max_amount"
		}
		f.MaxAmountCents = &cents
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, "invalid from date, expected YYYY-MM-DD"
		}
		f.From = t
	}

	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, "invalid to date, expected YYYY-MM-DD"
		}
		f.To = t
	}

	f.Search = strings.TrimSpace(q.Get("search"))

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			return f, "invalid limit"
		}
		f.Limit = n
	}

	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, "invalid offset"
		}
		f.Offset = n
	}

	return f, ""
}
