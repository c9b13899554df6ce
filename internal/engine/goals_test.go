package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
	"budgetpulse/internal/memory"
)

func TestComputeGoalProgress(t *testing.T) {
	goal := core.SavingsGoal{
		ID:              uuid.New(),
		Name:            "Emergency fund",
		TargetAmount:    d("10000"),
		CurrentProgress: d("2500"),
	}
	period := testPeriod()

	expenses := []core.Expense{
		{SavingsGoalID: goal.ID, Amount: d("200"), Date: testNow.AddDate(0, 0, -3)},
		{SavingsGoalID: goal.ID, Amount: d("100"), Date: testNow.AddDate(0, 0, -1)},
		// Untagged expense, ignored
		{Amount: d("50"), Date: testNow},
		// Tagged but outside the period, ignored
		{SavingsGoalID: goal.ID, Amount: d("400"), Date: testNow.AddDate(0, -1, 0)},
	}

	p := ComputeGoalProgress(goal, expenses, period)

	if p.PercentageComplete != 25 {
		t.Errorf("PercentageComplete = %v, want 25", p.PercentageComplete)
	}
	if !p.MonthlyContributions.Equal(d("300")) {
		t.Errorf("MonthlyContributions = %s, want 300", p.MonthlyContributions)
	}
}

func TestComputeGoalProgressClamped(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		progress string
		want     float64
	}{
		{"overfunded clamps to 100", "1000", "1500", 100},
		{"exactly complete", "1000", "1000", 100},
		{"zero target yields zero", "0", "500", 0},
		{"negative progress clamps to zero", "1000", "-50", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			goal := core.SavingsGoal{
				ID:              uuid.New(),
				TargetAmount:    d(tc.target),
				CurrentProgress: d(tc.progress),
			}
			p := ComputeGoalProgress(goal, nil, testPeriod())
			if p.PercentageComplete != tc.want {
				t.Errorf("PercentageComplete = %v, want %v", p.PercentageComplete, tc.want)
			}
		})
	}
}

func TestGoalProgressCached(t *testing.T) {
	eng, store := newTestEngine(t)
	userID := uuid.New()
	goal := seedGoal(t, store, userID, "Vacation", "3000", "600")

	ctx := context.Background()
	p, err := eng.GoalProgress(ctx, userID, goal.ID)
	if err != nil {
		t.Fatalf("GoalProgress: %v", err)
	}
	if p.PercentageComplete != 20 {
		t.Errorf("PercentageComplete = %v, want 20", p.PercentageComplete)
	}

	// Direct store change is invisible until goal invalidation
	if err := store.AddGoalProgress(ctx, userID, goal.ID, d("900")); err != nil {
		t.Fatalf("AddGoalProgress: %v", err)
	}
	p, err = eng.GoalProgress(ctx, userID, goal.ID)
	if err != nil {
		t.Fatalf("GoalProgress: %v", err)
	}
	if p.PercentageComplete != 20 {
		t.Errorf("cached PercentageComplete = %v, want 20", p.PercentageComplete)
	}

	eng.Invalidator().OnSavingsGoalChanged(userID)
	p, err = eng.GoalProgress(ctx, userID, goal.ID)
	if err != nil {
		t.Fatalf("GoalProgress: %v", err)
	}
	if p.PercentageComplete != 50 {
		t.Errorf("PercentageComplete after invalidation = %v, want 50", p.PercentageComplete)
	}
}

func TestGoalProgressUnknownGoal(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.GoalProgress(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordContribution(t *testing.T) {
	eng, store := newTestEngine(t)
	userID := uuid.New()
	goal := seedGoal(t, store, userID, "Vacation", "3000", "600")

	ctx := context.Background()

	// Warm the cache so the invalidation is observable
	if _, err := eng.GoalProgress(ctx, userID, goal.ID); err != nil {
		t.Fatalf("GoalProgress: %v", err)
	}

	if err := eng.RecordContribution(ctx, userID, goal.ID, d("400")); err != nil {
		t.Fatalf("RecordContribution: %v", err)
	}

	// The next read must see the committed increment, not the cached snapshot
	p, err := eng.GoalProgress(ctx, userID, goal.ID)
	if err != nil {
		t.Fatalf("GoalProgress: %v", err)
	}
	if !p.CurrentProgress.Equal(d("1000")) {
		t.Errorf("CurrentProgress = %s, want 1000", p.CurrentProgress)
	}
}

func TestRecordContributionRejectsBadInput(t *testing.T) {
	eng, store := newTestEngine(t)
	userID := uuid.New()
	goal := seedGoal(t, store, userID, "Vacation", "3000", "0")

	ctx := context.Background()

	if err := eng.RecordContribution(ctx, userID, goal.ID, decimal.Zero); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount: err = %v, want ErrInvalidAmount", err)
	}
	if err := eng.RecordContribution(ctx, userID, goal.ID, d("-5")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative amount: err = %v, want ErrInvalidAmount", err)
	}
	if err := eng.RecordContribution(ctx, userID, uuid.New(), d("10")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown goal: err = %v, want ErrNotFound", err)
	}

	// Foreign goal behaves like a missing one
	other := seedGoal(t, store, uuid.New(), "Theirs", "1000", "0")
	if err := eng.RecordContribution(ctx, userID, other.ID, d("10")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign goal: err = %v, want ErrNotFound", err)
	}
}

func TestRecordContributionWithoutContributor(t *testing.T) {
	eng := New(Config{Store: memory.New().WithClock(testClock), Clock: testClock})

	err := eng.RecordContribution(context.Background(), uuid.New(), uuid.New(), d("10"))
	if err == nil {
		t.Fatal("expected error without a contributor")
	}
}
