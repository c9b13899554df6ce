// Package memory is the in-memory entity store used by the demo backend and
// the test suites. It mirrors the SQLite repository's behavior, including
// ownership checks on lookups.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/core"
)

type Store struct {
	mu         sync.Mutex
	categories map[uuid.UUID]core.BudgetCategory
	expenses   map[uuid.UUID]core.Expense
	incomes    map[uuid.UUID]core.IncomeSource
	goals      map[uuid.UUID]core.SavingsGoal
	accounts   map[uuid.UUID]core.Account
	clock      func() time.Time
}

func New() *Store {
	return &Store{
		categories: make(map[uuid.UUID]core.BudgetCategory),
		expenses:   make(map[uuid.UUID]core.Expense),
		incomes:    make(map[uuid.UUID]core.IncomeSource),
		goals:      make(map[uuid.UUID]core.SavingsGoal),
		accounts:   make(map[uuid.UUID]core.Account),
		clock:      time.Now,
	}
}

// WithClock overrides the store's clock for deterministic tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) CategoriesForUser(_ context.Context, userID uuid.UUID) ([]core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.BudgetCategory
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CategoryByID(_ context.Context, userID, categoryID uuid.UUID) (core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok || c.UserID != userID {
		return core.BudgetCategory{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ExpensesInPeriod(_ context.Context, userID uuid.UUID, period core.Period, categoryID uuid.UUID) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID != userID || !period.Contains(e.Date) {
			continue
		}
		if categoryID != uuid.Nil && e.CategoryID != categoryID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) IncomeSourcesForUser(_ context.Context, userID uuid.UUID) ([]core.IncomeSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.IncomeSource
	for _, src := range s.incomes {
		if src.UserID == userID {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SavingsGoalsForUser(_ context.Context, userID uuid.UUID) ([]core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.SavingsGoal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SavingsGoalByID(_ context.Context, userID, goalID uuid.UUID) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) AccountsForUser(_ context.Context, userID uuid.UUID) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) PutCategory(_ context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	if err := c.Validate(); err != nil {
		return core.BudgetCategory{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, categoryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok || c.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.categories, categoryID)
	return nil
}

func (s *Store) PutExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(s.clock()); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[e.CategoryID]
	if !ok || c.UserID != e.UserID {
		return core.Expense{}, core.ErrNotFound
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.expenses[e.ID] = e
	return e, nil
}

// DeleteExpense removes the expense and returns it so callers can target
// their invalidation.
func (s *Store) DeleteExpense(_ context.Context, userID, expenseID uuid.UUID) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[expenseID]
	if !ok || e.UserID != userID {
		return core.Expense{}, core.ErrNotFound
	}
	delete(s.expenses, expenseID)
	return e, nil
}

func (s *Store) PutIncomeSource(_ context.Context, src core.IncomeSource) (core.IncomeSource, error) {
	if err := src.Validate(); err != nil {
		return core.IncomeSource{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	s.incomes[src.ID] = src
	return src, nil
}

func (s *Store) DeleteIncomeSource(_ context.Context, userID, sourceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.incomes[sourceID]
	if !ok || src.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.incomes, sourceID)
	return nil
}

func (s *Store) PutSavingsGoal(_ context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.UpdatedAt = s.clock()
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) DeleteSavingsGoal(_ context.Context, userID, goalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.goals, goalID)
	return nil
}

func (s *Store) PutAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.accounts[a.ID] = a
	return a, nil
}

// AddGoalProgress increments a goal's progress; progress never decreases on
// its own.
func (s *Store) AddGoalProgress(_ context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return core.ErrNotFound
	}
	g.CurrentProgress = g.CurrentProgress.Add(amount)
	g.UpdatedAt = s.clock()
	s.goals[goalID] = g
	return nil
}
