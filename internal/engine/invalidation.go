package engine

import (
	"github.com/google/uuid"

	"budgetpulse/internal/cache"
	applog "budgetpulse/internal/log"
)

// Invalidator removes every cache entry whose derivation depends on a
// mutated entity. Each On* method is a sequential loop of independent,
// idempotent clears: clearing twice is harmless, so no ordering or
// transactional guarantees are needed. Invalidation runs synchronously,
// before the mutation's result is returned, so the next read is guaranteed a
// miss and fresh data. TTLs bound staleness if a notification is ever missed.
type Invalidator struct {
	cache  cache.Store
	logger *applog.Logger
}

func NewInvalidator(store cache.Store, logger *applog.Logger) *Invalidator {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentCache)
	}
	return &Invalidator{cache: store, logger: logger}
}

// OnCategoryChanged clears everything derived from any of the user's
// categories. Category edits move limits, which feed metrics, previews, the
// monthly progress and the dashboard.
func (i *Invalidator) OnCategoryChanged(userID uuid.UUID) {
	i.clear("category",
		userPrefix(kindMetric, userID),
		userPrefix(kindPreview, userID),
		userPrefix(kindProgress, userID),
		userPrefix(kindDashboard, userID),
	)
}

// OnExpenseChanged clears the touched category's metric and preview entries
// (previews by prefix, since their keys embed amounts), the user's monthly
// progress and dashboard, and, for expenses tagged as goal contributions,
// the goal's progress entries.
func (i *Invalidator) OnExpenseChanged(userID, categoryID, savingsGoalID uuid.UUID) {
	prefixes := []string{
		scopePrefix(kindMetric, userID, categoryID),
		scopePrefix(kindPreview, userID, categoryID),
		userPrefix(kindProgress, userID),
		userPrefix(kindDashboard, userID),
	}
	if savingsGoalID != uuid.Nil {
		prefixes = append(prefixes, scopePrefix(kindGoal, userID, savingsGoalID))
	}
	i.clear("expense", prefixes...)
}

// OnIncomeChanged clears the income summary and the aggregates that embed it.
func (i *Invalidator) OnIncomeChanged(userID uuid.UUID) {
	i.clear("income",
		userPrefix(kindIncome, userID),
		userPrefix(kindDashboard, userID),
	)
}

// OnSavingsGoalChanged clears the user's goal progress entries and the
// dashboard aggregates that embed them.
func (i *Invalidator) OnSavingsGoalChanged(userID uuid.UUID) {
	i.clear("savings_goal",
		userPrefix(kindGoal, userID),
		userPrefix(kindDashboard, userID),
	)
}

func (i *Invalidator) clear(entity string, prefixes ...string) {
	if i.cache == nil {
		return
	}
	removed := 0
	for _, p := range prefixes {
		removed += i.cache.RemoveByPrefix(p)
	}
	i.logger.Debug("Invalidated cache entries",
		"entity", entity, "prefixes", len(prefixes), "removed", removed)
}
