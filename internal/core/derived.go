package core

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Derived views computed by the engine. All of them are ephemeral: they live
// only in the cache and are recomputed from the entities above on demand.
type (
	CategoryMetric struct {
		CategoryID     uuid.UUID       `json:"categoryId"`
		CategoryName   string          `json:"categoryName"`
		Period         Period          `json:"period"`
		MonthlyLimit   decimal.Decimal `json:"monthlyLimit"`
		CurrentSpent   decimal.Decimal `json:"currentSpent"`
		Remaining      decimal.Decimal `json:"remaining"`
		PercentageUsed float64         `json:"percentageUsed"`
		HealthStatus   HealthStatus    `json:"healthStatus"`
		IsEssential    bool            `json:"isEssential"`
	}

	ImpactPreview struct {
		CategoryID         uuid.UUID          `json:"categoryId"`
		HypotheticalAmount decimal.Decimal    `json:"hypotheticalAmount"`
		ResultingSpent     decimal.Decimal    `json:"resultingSpent"`
		Remaining          decimal.Decimal    `json:"remaining"`
		PercentageUsed     float64            `json:"percentageUsed"`
		HealthStatus       HealthStatus       `json:"healthStatus"`
		EncouragementLevel EncouragementLevel `json:"encouragementLevel"`
		NarrativeMessage   string             `json:"narrativeMessage"`
	}

	AllocationResult struct {
		TotalBudgetedAfterChange decimal.Decimal `json:"totalBudgetedAfterChange"`
		UserIncome               decimal.Decimal `json:"userIncome"`
		RemainingIncome          decimal.Decimal `json:"remainingIncome"`
		IsValid                  bool            `json:"isValid"`
		Explanation              string          `json:"explanation,omitempty"`
	}

	GoalProgress struct {
		GoalID               uuid.UUID       `json:"goalId"`
		Name                 string          `json:"name"`
		TargetAmount         decimal.Decimal `json:"targetAmount"`
		CurrentProgress      decimal.Decimal `json:"currentProgress"`
		PercentageComplete   float64         `json:"percentageComplete"`
		MonthlyContributions decimal.Decimal `json:"monthlyContributions"`
		MonthlySavingsTarget decimal.Decimal `json:"monthlySavingsTarget"`
	}

	// MonthlyProgress is the aggregate budgeted-vs-spent view for one period,
	// including the linear month-end spending projection.
	MonthlyProgress struct {
		Period         Period          `json:"period"`
		TotalBudgeted  decimal.Decimal `json:"totalBudgeted"`
		TotalSpent     decimal.Decimal `json:"totalSpent"`
		ProjectedSpend decimal.Decimal `json:"projectedSpend"`
		PercentageUsed float64         `json:"percentageUsed"`
		HealthStatus   HealthStatus    `json:"healthStatus"`
	}

	IncomeSummary struct {
		MonthlyTotal decimal.Decimal `json:"monthlyTotal"`
		SourceCount  int             `json:"sourceCount"`
	}

	DashboardOverview struct {
		UserID          uuid.UUID        `json:"userId"`
		Period          Period           `json:"period"`
		NetWorth        decimal.Decimal  `json:"netWorth"`
		Categories      []CategoryMetric `json:"categories"`
		RecentExpenses  []Expense        `json:"recentExpenses"`
		MonthlyProgress MonthlyProgress  `json:"monthlyProgress"`
		Income          IncomeSummary    `json:"income"`
		SavingsGoals    []GoalProgress   `json:"savingsGoals"`
		Allocation      AllocationResult `json:"allocation"`
		OverallHealth   HealthStatus     `json:"overallHealth"`
		OverallScore    float64          `json:"overallScore"`
	}
)
