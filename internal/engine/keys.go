package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

// Cache keys are "kind:user:scope:period" composites, with the preview kind
// carrying the hypothetical amount as a trailing segment. Invalidation always
// targets a kind:user or kind:user:scope prefix, never an exact amount key.
const (
	kindMetric    = "metric"
	kindPreview   = "preview"
	kindDashboard = "dashboard"
	kindProgress  = "progress"
	kindGoal      = "goal"
	kindIncome    = "income"
)

const scopeAll = "all"

func metricKey(userID, categoryID uuid.UUID, p core.Period) string {
	return kindMetric + ":" + userID.String() + ":" + categoryID.String() + ":" + p.Key()
}

func previewKey(userID, categoryID uuid.UUID, p core.Period, amount decimal.Decimal) string {
	return kindPreview + ":" + userID.String() + ":" + categoryID.String() + ":" + p.Key() + ":" + amount.StringFixed(2)
}

func dashboardKey(userID uuid.UUID, p core.Period) string {
	return kindDashboard + ":" + userID.String() + ":" + scopeAll + ":" + p.Key()
}

func progressKey(userID uuid.UUID, p core.Period) string {
	return kindProgress + ":" + userID.String() + ":" + scopeAll + ":" + p.Key()
}

func goalKey(userID, goalID uuid.UUID, p core.Period) string {
	return kindGoal + ":" + userID.String() + ":" + goalID.String() + ":" + p.Key()
}

func incomeKey(userID uuid.UUID) string {
	return kindIncome + ":" + userID.String() + ":" + scopeAll + ":" + scopeAll
}

// userPrefix addresses every key of one kind for one user.
func userPrefix(kind string, userID uuid.UUID) string {
	return kind + ":" + userID.String() + ":"
}

// scopePrefix addresses every key of one kind under one category or goal,
// across periods and (for previews) amounts.
func scopePrefix(kind string, userID, scopeID uuid.UUID) string {
	return kind + ":" + userID.String() + ":" + scopeID.String() + ":"
}
