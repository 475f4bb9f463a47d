package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
)

// trailingMonths is the window of the monthly spending trend, inclusive
// of the partial current month.
const trailingMonths = 6

// topCategoryLimit caps the all-time top category ranking.
const topCategoryLimit = 5

// AnalyticsStore is the read-only aggregate surface backing analytics.
type AnalyticsStore interface {
	Balance(ctx context.Context, userID int64) (core.Money, error)
	SumInRange(ctx context.Context, userID int64, from, to time.Time) (core.Money, error)
	CategoryTotals(ctx context.Context, userID int64, from, to time.Time) ([]core.CategoryTotal, error)
	DailyTotals(ctx context.Context, userID int64, from, to time.Time) ([]core.DailyTotal, error)
	MonthlyTotals(ctx context.Context, userID int64, since time.Time) ([]core.MonthlyTotal, error)
	TopCategories(ctx context.Context, userID int64, limit int) ([]core.CategoryTotal, error)
}

// AnalyticsService derives windowed spending views. It never mutates
// state; its reads fan out concurrently and accept whatever point-in-time
// consistency the store provides.
type AnalyticsService struct {
	store AnalyticsStore
	now   func() time.Time
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{
		store: store,
		now:   time.Now,
	}
}

// Summary computes the period overview: total spend, live balance,
// per-category and per-day breakdowns, and the spending rate against the
// fixed initial balance.
func (s *AnalyticsService) Summary(ctx context.Context, userID int64, period core.Period) (core.Summary, error) {
	from, to := period.Range(s.now())

	sum := core.Summary{
		Period:         period,
		From:           from,
		To:             to,
		InitialBalance: core.Money{Cents: core.InitialBalanceCents},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.CurrentBalance, err = s.store.Balance(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		sum.TotalSpent, err = s.store.SumInRange(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		sum.ByCategory, err = s.store.CategoryTotals(gctx, userID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		sum.Daily, err = s.store.DailyTotals(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("summary for period %s: %w", period, err)
	}

	sum.SpendingRate = core.SpendingRate(sum.TotalSpent)
	return sum, nil
}

// Trends returns the trailing six-month spending series and the all-time
// top five categories.
func (s *AnalyticsService) Trends(ctx context.Context, userID int64) (core.Trends, error) {
	since := s.now().AddDate(0, -trailingMonths, 0)

	var trends core.Trends
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trends.MonthlySpending, err = s.store.MonthlyTotals(gctx, userID, since)
		return err
	})
	g.Go(func() error {
		var err error
		trends.TopCategories, err = s.store.TopCategories(gctx, userID, topCategoryLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Trends{}, fmt.Errorf("trends: %w", err)
	}
	return trends, nil
}

// BudgetStatus projects the current-month run rate across the full month
// and classifies budget health against the live balance.
func (s *AnalyticsService) BudgetStatus(ctx context.Context, userID int64) (core.BudgetStatus, error) {
	now := s.now()
	from, to := core.PeriodMonth.Range(now)
	daysInMonth := to.Day()
	daysPassed := now.Day()

	var (
		balance core.Money
		spent   core.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = s.store.Balance(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		spent, err = s.store.SumInRange(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.BudgetStatus{}, fmt.Errorf("budget status: %w", err)
	}

	var avgDaily float64
	if daysPassed > 0 {
		avgDaily = spent.Decimal() / float64(daysPassed)
	}
	projected := avgDaily * float64(daysInMonth)

	return core.BudgetStatus{
		CurrentBalance:           balance,
		MonthlySpent:             spent,
		DaysPassed:               daysPassed,
		DaysRemaining:            daysInMonth - daysPassed,
		AvgDailySpending:         core.Round2(avgDaily),
		ProjectedMonthlySpending: core.Round2(projected),
		Health:                   core.ClassifyBudgetHealth(balance, projected),
	}, nil
}
