package core

import (
	"math"
	"time"
)

// Period selects the calendar window of a Summary query.
type Period string

const (
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// ParsePeriod maps a query value to a Period. Unrecognized values fall
// back to month.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodMonth, PeriodQuarter, PeriodYear:
		return Period(s)
	default:
		return PeriodMonth
	}
}

// Range resolves the period to its [from, to] calendar-date window
// anchored to now: start and end of the current month, quarter, or year.
func (p Period) Range(now time.Time) (from, to time.Time) {
	y, m, _ := now.Date()
	switch p {
	case PeriodQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		from = time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 3, -1)
	case PeriodYear:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		from = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	}
	return from, to
}

// BudgetHealth classifies projected monthly spend against the live balance.
type BudgetHealth string

const (
	HealthCritical  BudgetHealth = "critical"
	HealthWarning   BudgetHealth = "warning"
	HealthGood      BudgetHealth = "good"
	HealthExcellent BudgetHealth = "excellent"
)

// ClassifyBudgetHealth evaluates the four-level classification in strict
// priority order: a non-positive balance is critical regardless of the
// projection.
func ClassifyBudgetHealth(balance Money, projectedMonthlySpending float64) BudgetHealth {
	b := balance.Decimal()
	switch {
	case b <= 0:
		return HealthCritical
	case projectedMonthlySpending > b:
		return HealthWarning
	case b > projectedMonthlySpending*2:
		return HealthExcellent
	default:
		return HealthGood
	}
}

type (
	// CategoryTotal is an amount aggregated by category.
	CategoryTotal struct {
		CategoryID int64
		Name       string
		Color      string
		Total      Money
	}

	// DailyTotal is an amount aggregated by calendar day (YYYY-MM-DD).
	DailyTotal struct {
		Date  string
		Total Money
	}

	// MonthlyTotal is an amount aggregated by calendar month (YYYY-MM).
	MonthlyTotal struct {
		Month string
		Total Money
	}

	// Summary is the windowed spending overview for one user.
	Summary struct {
		Period         Period
		From, To       time.Time
		InitialBalance Money
		CurrentBalance Money
		TotalSpent     Money
		// SpendingRate is total spend in the period as a percentage of
		// the fixed initial balance, not of the current balance.
		SpendingRate float64
		ByCategory   []CategoryTotal
		Daily        []DailyTotal
	}

	// Trends holds the trailing monthly series and the all-time top
	// categories.
	Trends struct {
		MonthlySpending []MonthlyTotal
		TopCategories   []CategoryTotal
	}

	// BudgetStatus is the current-month run-rate projection.
	BudgetStatus struct {
		CurrentBalance           Money
		MonthlySpent             Money
		DaysPassed               int
		DaysRemaining            int
		AvgDailySpending         float64
		ProjectedMonthlySpending float64
		Health                   BudgetHealth
	}
)

// SpendingRate computes spend as a percentage of the fixed initial balance.
// Zero spend yields a rate of exactly 0.
func SpendingRate(totalSpent Money) float64 {
	if totalSpent.Cents <= 0 {
		return 0
	}
	return totalSpent.Decimal() / (Money{Cents: InitialBalanceCents}).Decimal() * 100
}

// Round2 rounds a monetary output to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
