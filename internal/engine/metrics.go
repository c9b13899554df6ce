package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

var hundred = decimal.NewFromInt(100)

// ComputeCategoryMetric derives the spend, remaining and health figures for
// one category from its expenses. Expenses outside the period window are
// ignored. Pure; never fails for well-formed input.
func ComputeCategoryMetric(policy core.HealthPolicy, category core.BudgetCategory, expenses []core.Expense, period core.Period) core.CategoryMetric {
	spent := decimal.Zero
	for _, e := range expenses {
		if e.CategoryID != category.ID || !period.Contains(e.Date) {
			continue
		}
		spent = spent.Add(e.Amount)
	}

	pct := percentageUsed(spent, category.MonthlyLimit)

	status := core.HealthExcellent
	if category.MonthlyLimit.IsPositive() {
		status = policy.Classify(pct)
	}

	return core.CategoryMetric{
		CategoryID:     category.ID,
		CategoryName:   category.Name,
		Period:         period,
		MonthlyLimit:   category.MonthlyLimit,
		CurrentSpent:   spent,
		Remaining:      category.MonthlyLimit.Sub(spent),
		PercentageUsed: pct,
		HealthStatus:   status,
		IsEssential:    category.IsEssential,
	}
}

// percentageUsed returns spent/limit*100 rounded to two decimals, unclamped
// so overage messaging keeps the raw figure. A non-positive limit yields 0
// rather than dividing by zero.
func percentageUsed(spent, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		return 0
	}
	return spent.Div(limit).Mul(hundred).Round(2).InexactFloat64()
}

// CategoryMetric returns the cached metric for one category and period,
// recomputing it from the entity store on a miss. Concurrent misses for the
// same key collapse into a single recomputation.
func (e *Engine) CategoryMetric(ctx context.Context, userID, categoryID uuid.UUID, period core.Period) (core.CategoryMetric, error) {
	key := metricKey(userID, categoryID, period)
	if v, ok := e.cacheGet(key); ok {
		if m, ok := v.(core.CategoryMetric); ok {
			return m, nil
		}
	}

	v, err, _ := e.sf.Do(key, func() (any, error) {
		category, err := e.store.CategoryByID(ctx, userID, categoryID)
		if err != nil {
			return core.CategoryMetric{}, fmt.Errorf("resolve category: %w", err)
		}
		expenses, err := e.store.ExpensesInPeriod(ctx, userID, period, categoryID)
		if err != nil {
			return core.CategoryMetric{}, fmt.Errorf("load expenses: %w", err)
		}

		metric := ComputeCategoryMetric(e.policy, category, expenses, period)
		e.cacheSet(key, metric, e.ttl.Metric)
		return metric, nil
	})
	if err != nil {
		return core.CategoryMetric{}, err
	}
	return v.(core.CategoryMetric), nil
}
