package http

import (
	"fmt"
	"net/http"

	"spendwise/internal/core"
)

// Analytics responses render all monetary values as rounded decimals.

type categoryTotalJSON struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	Total      float64 `json:"total"`
}

type summaryJSON struct {
	Period         string              `json:"period"`
	From           string              `json:"from"`
	To             string              `json:"to"`
	InitialBalance float64             `json:"initial_balance"`
	CurrentBalance float64             `json:"current_balance"`
	TotalSpent     float64             `json:"total_spent"`
	SpendingRate   float64             `json:"spending_rate"`
	ByCategory     []categoryTotalJSON `json:"by_category"`
	DailySpending  []dailyTotalJSON    `json:"daily_spending"`
}

type dailyTotalJSON struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

type monthlyTotalJSON struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

type trendsJSON struct {
	MonthlySpending []monthlyTotalJSON  `json:"monthly_spending"`
	TopCategories   []categoryTotalJSON `json:"top_categories"`
}

type budgetStatusJSON struct {
	CurrentBalance           float64 `json:"current_balance"`
	MonthlySpent             float64 `json:"monthly_spent"`
	DaysPassed               int     `json:"days_passed"`
	DaysRemaining            int     `json:"days_remaining"`
	AvgDailySpending         float64 `json:"avg_daily_spending"`
	ProjectedMonthlySpending float64 `json:"projected_monthly_spending"`
	BudgetHealth             string  `json:"budget_health"`
}

func toCategoryTotalsJSON(in []core.CategoryTotal) []categoryTotalJSON {
	out := make([]categoryTotalJSON, 0, len(in))
	for _, ct := range in {
		out = append(out, categoryTotalJSON{
			CategoryID: ct.CategoryID,
			Name:       ct.Name,
			Color:      ct.Color,
			Total:      ct.Total.Decimal(),
		})
	}
	return out
}

func toSummaryJSON(s core.Summary) summaryJSON {
	daily := make([]dailyTotalJSON, 0, len(s.Daily))
	for _, d := range s.Daily {
		daily = append(daily, dailyTotalJSON{Date: d.Date, Total: d.Total.Decimal()})
	}
	return summaryJSON{
		Period:         string(s.Period),
		From:           s.From.Format("2006-01-02"),
		To:             s.To.Format("2006-01-02"),
		InitialBalance: s.InitialBalance.Decimal(),
		CurrentBalance: s.CurrentBalance.Decimal(),
		TotalSpent:     s.TotalSpent.Decimal(),
		SpendingRate:   core.Round2(s.SpendingRate),
		ByCategory:     toCategoryTotalsJSON(s.ByCategory),
		DailySpending:  daily,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	period := core.ParsePeriod(r.URL.Query().Get("period"))
	cacheKey := fmt.Sprintf("u:%d:summary:%s", userID, period)

	if cached, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, toSummaryJSON(cached))
		return
	}

	summary, err := s.analytics.Summary(r.Context(), userID, period)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Set(cacheKey, summary)
	writeJSON(w, http.StatusOK, toSummaryJSON(summary))
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	cacheKey := fmt.Sprintf("u:%d:trends", userID)
	if cached, ok := s.trendsCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, toTrendsJSON(cached))
		return
	}

	trends, err := s.analytics.Trends(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.trendsCache.Set(cacheKey, trends)
	writeJSON(w, http.StatusOK, toTrendsJSON(trends))
}

func toTrendsJSON(t core.Trends) trendsJSON {
	monthly := make([]monthlyTotalJSON, 0, len(t.MonthlySpending))
	for _, m := range t.MonthlySpending {
		monthly = append(monthly, monthlyTotalJSON{Month: m.Month, Total: m.Total.Decimal()})
	}
	return trendsJSON{
		MonthlySpending: monthly,
		TopCategories:   toCategoryTotalsJSON(t.TopCategories),
	}
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	userID := authUserID(r)
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
		return
	}

	cacheKey := fmt.Sprintf("u:%d:budget", userID)
	if cached, ok := s.budgetCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, toBudgetStatusJSON(cached))
		return
	}

	status, err := s.analytics.BudgetStatus(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.budgetCache.Set(cacheKey, status)
	writeJSON(w, http.StatusOK, toBudgetStatusJSON(status))
}

func toBudgetStatusJSON(b core.BudgetStatus) budgetStatusJSON {
	return budgetStatusJSON{
		CurrentBalance:           b.CurrentBalance.Decimal(),
		MonthlySpent:             b.MonthlySpent.Decimal(),
		DaysPassed:               b.DaysPassed,
		DaysRemaining:            b.DaysRemaining,
		AvgDailySpending:         b.AvgDailySpending,
		ProjectedMonthlySpending: b.ProjectedMonthlySpending,
		BudgetHealth:             string(b.Health),
	}
}
