package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Weekly   Frequency = "weekly"
	BiWeekly Frequency = "bi-weekly"
	Monthly  Frequency = "monthly"
)

type (
	// Frequency is how often an income source pays out.
	Frequency string

	BudgetCategory struct {
		ID           uuid.UUID       `json:"id"`
		UserID       uuid.UUID       `json:"userId"`
		Name         string          `json:"name"`
		MonthlyLimit decimal.Decimal `json:"monthlyLimit"`
		IsEssential  bool            `json:"isEssential"`
		Color        string          `json:"color,omitempty"`
		Icon         string          `json:"icon,omitempty"`
	}

	Expense struct {
		ID            uuid.UUID       `json:"id"`
		UserID        uuid.UUID       `json:"userId"`
		CategoryID    uuid.UUID       `json:"categoryId"`
		Amount        decimal.Decimal `json:"amount"`
		Date          time.Time       `json:"date"`
		Description   string          `json:"description,omitempty"`
		SavingsGoalID uuid.UUID       `json:"savingsGoalId,omitempty"` // zero when not a goal contribution
	}

	IncomeSource struct {
		ID        uuid.UUID       `json:"id"`
		UserID    uuid.UUID       `json:"userId"`
		Name      string          `json:"name"`
		Amount    decimal.Decimal `json:"amount"`
		Frequency Frequency       `json:"frequency"`
	}

	SavingsGoal struct {
		ID                   uuid.UUID       `json:"id"`
		UserID               uuid.UUID       `json:"userId"`
		Name                 string          `json:"name"`
		TargetAmount         decimal.Decimal `json:"targetAmount"`
		CurrentProgress      decimal.Decimal `json:"currentProgress"`
		MonthlySavingsTarget decimal.Decimal `json:"monthlySavingsTarget,omitempty"` // zero when no target set
		UpdatedAt            time.Time       `json:"updatedAt"`
	}

	Account struct {
		ID      uuid.UUID       `json:"id"`
		UserID  uuid.UUID       `json:"userId"`
		Name    string          `json:"name"`
		Balance decimal.Decimal `json:"balance"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidLimit     = errors.New("monthly limit must be positive")
	ErrFutureDate       = errors.New("expense date cannot be in the future")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidFrequency = errors.New("invalid income frequency")
)

// ParseFrequency validates a raw frequency value at the edges (HTTP, storage)
// so bad data is rejected before it reaches the income aggregator.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Weekly, BiWeekly, Monthly:
		return f, nil
	default:
		return "", ErrInvalidFrequency
	}
}

func (c BudgetCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.MonthlyLimit.IsPositive() {
		return ErrInvalidLimit
	}
	return nil
}

// Validate checks an expense against now; the caller supplies the clock so
// date checks stay deterministic in tests.
func (e Expense) Validate(now time.Time) error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.CategoryID == uuid.Nil {
		return errors.New("expense requires a category")
	}
	if e.Date.After(now) {
		return ErrFutureDate
	}
	return nil
}

func (s IncomeSource) Validate() error {
	if !s.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return err
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
