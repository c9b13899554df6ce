package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

// Pay-frequency multipliers to a monthly equivalent (52/12 and 26/12,
// rounded to the product's usual two decimals).
var (
	weeklyFactor   = decimal.RequireFromString("4.33")
	biweeklyFactor = decimal.RequireFromString("2.17")
)

// MonthlyEquivalent normalizes one income amount to its monthly figure.
// Unrecognized frequencies contribute zero; edges are expected to reject
// them up front with core.ParseFrequency.
func MonthlyEquivalent(amount decimal.Decimal, frequency core.Frequency) decimal.Decimal {
	switch frequency {
	case core.Weekly:
		return amount.Mul(weeklyFactor)
	case core.BiWeekly:
		return amount.Mul(biweeklyFactor)
	case core.Monthly:
		return amount
	default:
		return decimal.Zero
	}
}

// TotalMonthlyIncome sums the monthly equivalents of all sources.
func TotalMonthlyIncome(sources []core.IncomeSource) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sources {
		total = total.Add(MonthlyEquivalent(s.Amount, s.Frequency))
	}
	return total
}

// IncomeSummary returns the user's monthly-equivalent income, cached.
func (e *Engine) IncomeSummary(ctx context.Context, userID uuid.UUID) (core.IncomeSummary, error) {
	key := incomeKey(userID)
	if v, ok := e.cacheGet(key); ok {
		if s, ok := v.(core.IncomeSummary); ok {
			return s, nil
		}
	}

	sources, err := e.store.IncomeSourcesForUser(ctx, userID)
	if err != nil {
		return core.IncomeSummary{}, fmt.Errorf("load income sources: %w", err)
	}

	summary := core.IncomeSummary{
		MonthlyTotal: TotalMonthlyIncome(sources),
		SourceCount:  len(sources),
	}
	e.cacheSet(key, summary, e.ttl.Metric)
	return summary, nil
}
