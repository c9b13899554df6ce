package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

func TestCompleteOverview(t *testing.T) {
	eng, store := newTestEngine(t)
	userID := uuid.New()

	seedIncome(t, store, userID, "Salary", "5000", core.Monthly)
	groceries := seedCategory(t, store, userID, "Groceries", "500", true)
	rent := seedCategory(t, store, userID, "Rent", "2000", true)
	seedExpense(t, store, userID, groceries.ID, "150", testNow.AddDate(0, 0, -2))
	seedExpense(t, store, userID, rent.ID, "2000", testNow.AddDate(0, 0, -10))
	seedGoal(t, store, userID, "Emergency fund", "1000", "500")
	seedAccount(t, store, userID, "Checking", "2500")

	overview, err := eng.CompleteOverview(context.Background(), userID)
	if err != nil {
		t.Fatalf("CompleteOverview: %v", err)
	}

	if overview.Period != testPeriod() {
		t.Errorf("Period = %v, want %v", overview.Period, testPeriod())
	}
	if !overview.NetWorth.Equal(d("2500")) {
		t.Errorf("NetWorth = %s, want 2500", overview.NetWorth)
	}
	if len(overview.Categories) != 2 {
		t.Fatalf("Categories = %d, want 2", len(overview.Categories))
	}
	if len(overview.RecentExpenses) != 2 {
		t.Errorf("RecentExpenses = %d, want 2", len(overview.RecentExpenses))
	}
	if len(overview.SavingsGoals) != 1 {
		t.Fatalf("SavingsGoals = %d, want 1", len(overview.SavingsGoals))
	}

	progress := overview.MonthlyProgress
	if !progress.TotalBudgeted.Equal(d("2500")) {
		t.Errorf("TotalBudgeted = %s, want 2500", progress.TotalBudgeted)
	}
	if !progress.TotalSpent.Equal(d("2150")) {
		t.Errorf("TotalSpent = %s, want 2150", progress.TotalSpent)
	}
	if progress.PercentageUsed != 86 {
		t.Errorf("PercentageUsed = %v, want 86", progress.PercentageUsed)
	}
	if progress.HealthStatus != core.HealthAttention {
		t.Errorf("monthly HealthStatus = %s, want attention", progress.HealthStatus)
	}

	if !overview.Allocation.IsValid {
		t.Errorf("Allocation should be valid, got %q", overview.Allocation.Explanation)
	}
	if !overview.Income.MonthlyTotal.Equal(d("5000")) {
		t.Errorf("Income.MonthlyTotal = %s, want 5000", overview.Income.MonthlyTotal)
	}

	// 0.5*86 usage + 0.3*50 savings gap + 0.2*0 positive net worth
	if overview.OverallScore != 58 {
		t.Errorf("OverallScore = %v, want 58", overview.OverallScore)
	}
	if overview.OverallHealth != core.HealthExcellent {
		t.Errorf("OverallHealth = %s, want excellent", overview.OverallHealth)
	}
}

func TestCompleteOverviewEmptyUser(t *testing.T) {
	eng, _ := newTestEngine(t)

	overview, err := eng.CompleteOverview(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CompleteOverview: %v", err)
	}
	if len(overview.Categories) != 0 || len(overview.SavingsGoals) != 0 {
		t.Error("expected empty collections for an unknown user")
	}
	// No budget and no goals, but a zero net worth still carries its penalty
	if overview.OverallScore != 10 {
		t.Errorf("OverallScore = %v, want 10", overview.OverallScore)
	}
}

func TestOverallHealth(t *testing.T) {
	eng, _ := newTestEngine(t)

	cases := []struct {
		name       string
		usage      float64
		goals      []core.GoalProgress
		netWorth   string
		wantScore  float64
		wantStatus core.HealthStatus
	}{
		{
			name:       "all healthy",
			usage:      40,
			goals:      []core.GoalProgress{{PercentageComplete: 100}},
			netWorth:   "1000",
			wantScore:  20,
			wantStatus: core.HealthExcellent,
		},
		{
			name:       "overspent clamps usage at 100",
			usage:      150,
			goals:      []core.GoalProgress{{PercentageComplete: 100}},
			netWorth:   "1000",
			wantScore:  50,
			wantStatus: core.HealthExcellent,
		},
		{
			name:       "negative net worth",
			usage:      100,
			goals:      []core.GoalProgress{{PercentageComplete: 0}},
			netWorth:   "-500",
			wantScore:  100,
			wantStatus: core.HealthAttention,
		},
		{
			name:       "no goals removes the savings term",
			usage:      100,
			goals:      nil,
			netWorth:   "1000",
			wantScore:  50,
			wantStatus: core.HealthExcellent,
		},
		{
			name:       "zero net worth takes half penalty",
			usage:      90,
			goals:      []core.GoalProgress{{PercentageComplete: 20}, {PercentageComplete: 60}},
			netWorth:   "0",
			wantScore:  73,
			wantStatus: core.HealthGood,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			progress := core.MonthlyProgress{PercentageUsed: tc.usage}
			score, status := eng.overallHealth(progress, tc.goals, d(tc.netWorth))
			if score != tc.wantScore {
				t.Errorf("score = %v, want %v", score, tc.wantScore)
			}
			if status != tc.wantStatus {
				t.Errorf("status = %s, want %s", status, tc.wantStatus)
			}
		})
	}
}

func TestMonthlyProgressProjection(t *testing.T) {
	eng, store := newTestEngine(t)
	userID := uuid.New()
	category := seedCategory(t, store, userID, "Groceries", "500", true)
	seedExpense(t, store, userID, category.ID, "145", testNow.AddDate(0, 0, -3))

	progress, err := eng.MonthlyProgress(context.Background(), userID)
	if err != nil {
		t.Fatalf("MonthlyProgress: %v", err)
	}
	// 145 over 14.5 elapsed days extrapolated to 31
	if !progress.ProjectedSpend.Equal(d("310.00")) {
		t.Errorf("ProjectedSpend = %s, want 310.00", progress.ProjectedSpend)
	}
}

func TestProjectMonthSpend(t *testing.T) {
	march := core.Period{Year: 2025, Month: 3}

	cases := []struct {
		name  string
		spent string
		now   time.Time
		want  string
	}{
		{"mid month extrapolates", "145", testNow, "310.00"},
		{"finished month keeps actual", "145", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "145"},
		{"future month projects zero", "145", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), "0"},
		{"first day floors elapsed at one", "20", time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC), "620.00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProjectMonthSpend(d(tc.spent), march, tc.now)
			if !got.Equal(d(tc.want)) {
				t.Errorf("ProjectMonthSpend = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRecentExpensesSortedAndLimited(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < recentExpenseLimit+3; i++ {
		expenses = append(expenses, core.Expense{
			ID:     uuid.New(),
			Amount: decimal.NewFromInt(int64(i)),
			Date:   testNow.AddDate(0, 0, -i),
		})
	}

	recent := recentExpenses(expenses)

	if len(recent) != recentExpenseLimit {
		t.Fatalf("len = %d, want %d", len(recent), recentExpenseLimit)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Date.After(recent[i-1].Date) {
			t.Fatal("recent expenses not sorted newest first")
		}
	}
	if !recent[0].Date.Equal(testNow) {
		t.Errorf("newest expense date = %v, want %v", recent[0].Date, testNow)
	}
}
