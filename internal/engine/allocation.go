package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

// ValidateAllocation checks whether the user's category limits, after adding
// proposedDelta, still fit inside their monthly income. excludeCategoryID
// (uuid.Nil for none) leaves one category out of the current total so an
// edited category's old limit does not double-count against its new one.
//
// The check is advisory: it reports, callers decide whether to block the
// write. It is not cached; a single sum over the user's categories is cheaper
// than the invalidation traffic category edits would generate.
func (e *Engine) ValidateAllocation(ctx context.Context, userID uuid.UUID, proposedDelta decimal.Decimal, excludeCategoryID uuid.UUID) (core.AllocationResult, error) {
	categories, err := e.store.CategoriesForUser(ctx, userID)
	if err != nil {
		return core.AllocationResult{}, fmt.Errorf("load categories: %w", err)
	}

	currentTotal := decimal.Zero
	for _, c := range categories {
		if c.ID == excludeCategoryID {
			continue
		}
		currentTotal = currentTotal.Add(c.MonthlyLimit)
	}

	income, err := e.IncomeSummary(ctx, userID)
	if err != nil {
		return core.AllocationResult{}, err
	}

	newTotal := currentTotal.Add(proposedDelta)
	result := core.AllocationResult{
		TotalBudgetedAfterChange: newTotal,
		UserIncome:               income.MonthlyTotal,
		RemainingIncome:          income.MonthlyTotal.Sub(newTotal),
		IsValid:                  newTotal.LessThanOrEqual(income.MonthlyTotal),
	}

	if !result.IsValid {
		overage := newTotal.Sub(income.MonthlyTotal)
		result.Explanation = fmt.Sprintf(
			"total budgets of $%s would exceed your $%s monthly income by $%s",
			newTotal.StringFixed(2), income.MonthlyTotal.StringFixed(2), overage.StringFixed(2))
	}

	return result, nil
}
