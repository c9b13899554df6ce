package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
	applog "budgetpulse/internal/log"
)

// ComputeGoalProgress derives progress figures for one savings goal from its
// tagged expenses in the period. Pure.
func ComputeGoalProgress(goal core.SavingsGoal, expenses []core.Expense, period core.Period) core.GoalProgress {
	contributions := decimal.Zero
	for _, e := range expenses {
		if e.SavingsGoalID != goal.ID || !period.Contains(e.Date) {
			continue
		}
		contributions = contributions.Add(e.Amount)
	}

	pct := 0.0
	if goal.TargetAmount.IsPositive() {
		pct = goal.CurrentProgress.Div(goal.TargetAmount).Mul(hundred).Round(2).InexactFloat64()
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
	}

	return core.GoalProgress{
		GoalID:               goal.ID,
		Name:                 goal.Name,
		TargetAmount:         goal.TargetAmount,
		CurrentProgress:      goal.CurrentProgress,
		PercentageComplete:   pct,
		MonthlyContributions: contributions,
		MonthlySavingsTarget: goal.MonthlySavingsTarget,
	}
}

// GoalProgress returns cached progress for one goal in the current period.
func (e *Engine) GoalProgress(ctx context.Context, userID, goalID uuid.UUID) (core.GoalProgress, error) {
	period := core.CurrentPeriod(e.clock())

	key := goalKey(userID, goalID, period)
	if v, ok := e.cacheGet(key); ok {
		if p, ok := v.(core.GoalProgress); ok {
			return p, nil
		}
	}

	goal, err := e.store.SavingsGoalByID(ctx, userID, goalID)
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("resolve goal: %w", err)
	}
	expenses, err := e.store.ExpensesInPeriod(ctx, userID, period, uuid.Nil)
	if err != nil {
		return core.GoalProgress{}, fmt.Errorf("load expenses: %w", err)
	}

	progress := ComputeGoalProgress(goal, expenses, period)
	e.cacheSet(key, progress, e.ttl.Goal)
	return progress, nil
}

// RecordContribution adds amount to a goal's progress. This is the one
// mutating operation in the core: it persists the increment, then
// synchronously invalidates the goal's cached progress and every dashboard
// aggregate that embeds it, so the next read misses and recomputes.
func (e *Engine) RecordContribution(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) error {
	if e.contrib == nil {
		return errors.New("no goal contributor configured")
	}
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	if _, err := e.store.SavingsGoalByID(ctx, userID, goalID); err != nil {
		return fmt.Errorf("resolve goal: %w", err)
	}

	if err := e.contrib.AddGoalProgress(ctx, userID, goalID, amount); err != nil {
		return fmt.Errorf("record contribution: %w", err)
	}

	e.inval.OnSavingsGoalChanged(userID)
	e.logger.InfoContext(ctx, "Recorded goal contribution",
		applog.FieldUserID, userID,
		applog.FieldGoalID, goalID,
		applog.FieldAmount, amount.StringFixed(2))
	return nil
}
