package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

// Overall-health weights: budget usage dominates, savings progress and net
// worth temper it.
const (
	weightBudget   = 0.5
	weightSavings  = 0.3
	weightNetWorth = 0.2
)

const recentExpenseLimit = 10

// CompleteOverview composes every derivation into the dashboard payload for
// the current period. It is the engine's widest fan-out and carries the
// whole-dashboard cache entry with the shortest summary TTL. Concurrent
// misses collapse into one recomputation.
func (e *Engine) CompleteOverview(ctx context.Context, userID uuid.UUID) (core.DashboardOverview, error) {
	period := core.CurrentPeriod(e.clock())

	key := dashboardKey(userID, period)
	if v, ok := e.cacheGet(key); ok {
		if o, ok := v.(core.DashboardOverview); ok {
			return o, nil
		}
	}

	v, err, _ := e.sf.Do(key, func() (any, error) {
		overview, err := e.buildOverview(ctx, userID, period)
		if err != nil {
			return core.DashboardOverview{}, err
		}
		e.cacheSet(key, overview, e.ttl.Dashboard)
		return overview, nil
	})
	if err != nil {
		return core.DashboardOverview{}, err
	}
	return v.(core.DashboardOverview), nil
}

func (e *Engine) buildOverview(ctx context.Context, userID uuid.UUID, period core.Period) (core.DashboardOverview, error) {
	categories, err := e.store.CategoriesForUser(ctx, userID)
	if err != nil {
		return core.DashboardOverview{}, fmt.Errorf("load categories: %w", err)
	}
	expenses, err := e.store.ExpensesInPeriod(ctx, userID, period, uuid.Nil)
	if err != nil {
		return core.DashboardOverview{}, fmt.Errorf("load expenses: %w", err)
	}
	accounts, err := e.store.AccountsForUser(ctx, userID)
	if err != nil {
		return core.DashboardOverview{}, fmt.Errorf("load accounts: %w", err)
	}
	goals, err := e.store.SavingsGoalsForUser(ctx, userID)
	if err != nil {
		return core.DashboardOverview{}, fmt.Errorf("load savings goals: %w", err)
	}
	income, err := e.IncomeSummary(ctx, userID)
	if err != nil {
		return core.DashboardOverview{}, err
	}

	netWorth := decimal.Zero
	for _, a := range accounts {
		netWorth = netWorth.Add(a.Balance)
	}

	metrics := make([]core.CategoryMetric, len(categories))
	for i, c := range categories {
		metrics[i] = ComputeCategoryMetric(e.policy, c, expenses, period)
	}

	goalProgress := make([]core.GoalProgress, len(goals))
	for i, g := range goals {
		goalProgress[i] = ComputeGoalProgress(g, expenses, period)
	}

	progress := e.monthlyProgress(metrics, period)

	allocation := core.AllocationResult{
		TotalBudgetedAfterChange: progress.TotalBudgeted,
		UserIncome:               income.MonthlyTotal,
		RemainingIncome:          income.MonthlyTotal.Sub(progress.TotalBudgeted),
		IsValid:                  progress.TotalBudgeted.LessThanOrEqual(income.MonthlyTotal),
	}
	if !allocation.IsValid {
		overage := progress.TotalBudgeted.Sub(income.MonthlyTotal)
		allocation.Explanation = fmt.Sprintf(
			"total budgets of $%s would exceed your $%s monthly income by $%s",
			progress.TotalBudgeted.StringFixed(2), income.MonthlyTotal.StringFixed(2), overage.StringFixed(2))
	}

	score, overall := e.overallHealth(progress, goalProgress, netWorth)

	return core.DashboardOverview{
		UserID:          userID,
		Period:          period,
		NetWorth:        netWorth,
		Categories:      metrics,
		RecentExpenses:  recentExpenses(expenses),
		MonthlyProgress: progress,
		Income:          income,
		SavingsGoals:    goalProgress,
		Allocation:      allocation,
		OverallHealth:   overall,
		OverallScore:    score,
	}, nil
}

// MonthlyProgress returns the cached aggregate budgeted-vs-spent view with
// the month-end projection for the current period.
func (e *Engine) MonthlyProgress(ctx context.Context, userID uuid.UUID) (core.MonthlyProgress, error) {
	period := core.CurrentPeriod(e.clock())

	key := progressKey(userID, period)
	if v, ok := e.cacheGet(key); ok {
		if p, ok := v.(core.MonthlyProgress); ok {
			return p, nil
		}
	}

	categories, err := e.store.CategoriesForUser(ctx, userID)
	if err != nil {
		return core.MonthlyProgress{}, fmt.Errorf("load categories: %w", err)
	}
	expenses, err := e.store.ExpensesInPeriod(ctx, userID, period, uuid.Nil)
	if err != nil {
		return core.MonthlyProgress{}, fmt.Errorf("load expenses: %w", err)
	}

	metrics := make([]core.CategoryMetric, len(categories))
	for i, c := range categories {
		metrics[i] = ComputeCategoryMetric(e.policy, c, expenses, period)
	}

	progress := e.monthlyProgress(metrics, period)
	e.cacheSet(key, progress, e.ttl.Metric)
	return progress, nil
}

func (e *Engine) monthlyProgress(metrics []core.CategoryMetric, period core.Period) core.MonthlyProgress {
	budgeted := decimal.Zero
	spent := decimal.Zero
	for _, m := range metrics {
		budgeted = budgeted.Add(m.MonthlyLimit)
		spent = spent.Add(m.CurrentSpent)
	}

	pct := percentageUsed(spent, budgeted)

	status := core.HealthExcellent
	if budgeted.IsPositive() {
		status = e.policy.Classify(pct)
	}

	return core.MonthlyProgress{
		Period:         period,
		TotalBudgeted:  budgeted,
		TotalSpent:     spent,
		ProjectedSpend: ProjectMonthSpend(spent, period, e.clock()),
		PercentageUsed: pct,
		HealthStatus:   status,
	}
}

// ProjectMonthSpend extrapolates the period's spend linearly from elapsed
// days. A finished period projects to its actual spend; a period that has
// not started projects to zero.
func ProjectMonthSpend(spent decimal.Decimal, period core.Period, now time.Time) decimal.Decimal {
	if !now.Before(period.End()) {
		return spent
	}
	if now.Before(period.Start()) {
		return decimal.Zero
	}

	elapsed := now.Sub(period.Start()).Hours() / 24
	if elapsed < 1 {
		elapsed = 1
	}
	days := decimal.NewFromInt(int64(period.Days()))
	return spent.Div(decimal.NewFromFloat(elapsed)).Mul(days).Round(2)
}

// overallHealth blends budget usage, savings progress and net worth into one
// usage-like score (higher is worse) and classifies it with the lenient
// policy reserved for the composite indicator.
func (e *Engine) overallHealth(progress core.MonthlyProgress, goals []core.GoalProgress, netWorth decimal.Decimal) (float64, core.HealthStatus) {
	budgetUsage := progress.PercentageUsed
	if budgetUsage > 100 {
		budgetUsage = 100
	}

	// Savings contributes how far goals still are from complete. No goals
	// means nothing to penalize.
	savingsGap := 0.0
	if len(goals) > 0 {
		totalPct := 0.0
		for _, g := range goals {
			totalPct += g.PercentageComplete
		}
		savingsGap = 100 - totalPct/float64(len(goals))
	}

	netWorthPenalty := 0.0
	switch {
	case netWorth.IsNegative():
		netWorthPenalty = 100
	case netWorth.IsZero():
		netWorthPenalty = 50
	}

	score := weightBudget*budgetUsage + weightSavings*savingsGap + weightNetWorth*netWorthPenalty
	return score, e.overall.Classify(score)
}

func recentExpenses(expenses []core.Expense) []core.Expense {
	recent := append([]core.Expense(nil), expenses...)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > recentExpenseLimit {
		recent = recent[:recentExpenseLimit]
	}
	return recent
}
