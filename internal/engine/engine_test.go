package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/cache"
	"budgetpulse/internal/core"
	"budgetpulse/internal/memory"
)

// Mid-March noon keeps projection and period math deterministic.
var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func testPeriod() core.Period { return core.CurrentPeriod(testNow) }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New().WithClock(testClock)
	eng := New(Config{
		Store:       store,
		Contributor: store,
		Cache:       cache.NewTTLStore(256),
		Clock:       testClock,
	})
	return eng, store
}

func seedCategory(t *testing.T, store *memory.Store, userID uuid.UUID, name, limit string, essential bool) core.BudgetCategory {
	t.Helper()
	c, err := store.PutCategory(context.Background(), core.BudgetCategory{
		UserID:       userID,
		Name:         name,
		MonthlyLimit: d(limit),
		IsEssential:  essential,
	})
	if err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return c
}

func seedExpense(t *testing.T, store *memory.Store, userID, categoryID uuid.UUID, amount string, date time.Time) core.Expense {
	t.Helper()
	e, err := store.PutExpense(context.Background(), core.Expense{
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     d(amount),
		Date:       date,
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}
	return e
}

func seedIncome(t *testing.T, store *memory.Store, userID uuid.UUID, name, amount string, freq core.Frequency) core.IncomeSource {
	t.Helper()
	src, err := store.PutIncomeSource(context.Background(), core.IncomeSource{
		UserID:    userID,
		Name:      name,
		Amount:    d(amount),
		Frequency: freq,
	})
	if err != nil {
		t.Fatalf("seed income %s: %v", name, err)
	}
	return src
}

func seedGoal(t *testing.T, store *memory.Store, userID uuid.UUID, name, target, progress string) core.SavingsGoal {
	t.Helper()
	g, err := store.PutSavingsGoal(context.Background(), core.SavingsGoal{
		UserID:          userID,
		Name:            name,
		TargetAmount:    d(target),
		CurrentProgress: d(progress),
	})
	if err != nil {
		t.Fatalf("seed goal %s: %v", name, err)
	}
	return g
}

func seedAccount(t *testing.T, store *memory.Store, userID uuid.UUID, name, balance string) core.Account {
	t.Helper()
	a, err := store.PutAccount(context.Background(), core.Account{
		UserID:  userID,
		Name:    name,
		Balance: d(balance),
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	return a
}
