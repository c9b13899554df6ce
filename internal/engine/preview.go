package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

// PreviewImpact computes what one hypothetical expense would do to a
// category's budget without committing it. asOf selects the period (zero
// means now). Fails with core.ErrNotFound when the category does not belong
// to the user.
//
// Each distinct amount gets its own cache entry under the category's key
// prefix; invalidation clears the whole prefix since exact amounts are not
// known at invalidation time.
func (e *Engine) PreviewImpact(ctx context.Context, userID, categoryID uuid.UUID, hypotheticalAmount decimal.Decimal, asOf time.Time) (core.ImpactPreview, error) {
	if !hypotheticalAmount.IsPositive() {
		return core.ImpactPreview{}, core.ErrInvalidAmount
	}
	if asOf.IsZero() {
		asOf = e.clock()
	}
	period := core.PeriodOf(asOf)

	key := previewKey(userID, categoryID, period, hypotheticalAmount)
	if v, ok := e.cacheGet(key); ok {
		if p, ok := v.(core.ImpactPreview); ok {
			return p, nil
		}
	}

	metric, err := e.CategoryMetric(ctx, userID, categoryID, period)
	if err != nil {
		return core.ImpactPreview{}, fmt.Errorf("current metric: %w", err)
	}

	resulting := metric.CurrentSpent.Add(hypotheticalAmount)
	remaining := metric.MonthlyLimit.Sub(resulting)
	pct := percentageUsed(resulting, metric.MonthlyLimit)

	status := core.HealthExcellent
	if metric.MonthlyLimit.IsPositive() {
		status = e.policy.Classify(pct)
	}

	preview := core.ImpactPreview{
		CategoryID:         categoryID,
		HypotheticalAmount: hypotheticalAmount,
		ResultingSpent:     resulting,
		Remaining:          remaining,
		PercentageUsed:     pct,
		HealthStatus:       status,
		EncouragementLevel: status.Encouragement(),
		NarrativeMessage:   narrative(metric.CategoryName, metric.IsEssential, status, remaining),
	}
	e.cacheSet(key, preview, e.ttl.Preview)
	return preview, nil
}

// narrative builds the human-readable impact line from the category kind,
// the post-expense health status and the signed remaining amount.
func narrative(name string, essential bool, status core.HealthStatus, remaining decimal.Decimal) string {
	kind := "flexible"
	if essential {
		kind = "essential"
	}

	var amount string
	if remaining.IsNegative() {
		amount = fmt.Sprintf("$%s over budget", remaining.Abs().StringFixed(2))
	} else {
		amount = fmt.Sprintf("$%s remaining", remaining.StringFixed(2))
	}

	switch status {
	case core.HealthExcellent:
		return fmt.Sprintf("Plenty of room in your %s %s budget: %s.", kind, name, amount)
	case core.HealthGood:
		return fmt.Sprintf("Your %s %s budget is on track with %s.", kind, name, amount)
	case core.HealthAttention:
		return fmt.Sprintf("This would bring your %s %s budget close to its limit: %s.", kind, name, amount)
	default:
		return fmt.Sprintf("This would put your %s %s budget at %s.", kind, name, amount)
	}
}
