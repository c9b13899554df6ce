// Package storage is the SQLite entity-store adapter. Amounts are stored as
// decimal strings and dates as RFC 3339 so no precision is lost round-tripping.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"budgetpulse/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CategoriesForUser(ctx context.Context, userID uuid.UUID) ([]core.BudgetCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, monthly_limit, is_essential, color, icon
		 FROM budget_categories WHERE user_id = ? ORDER BY name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CategoryByID(ctx context.Context, userID, categoryID uuid.UUID) (core.BudgetCategory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, monthly_limit, is_essential, color, icon
		 FROM budget_categories WHERE id = ? AND user_id = ?`,
		categoryID.String(), userID.String())

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetCategory{}, core.ErrNotFound
	}
	return c, err
}

func (r *SQLiteRepository) ExpensesInPeriod(ctx context.Context, userID uuid.UUID, period core.Period, categoryID uuid.UUID) ([]core.Expense, error) {
	query := `SELECT id, user_id, category_id, amount, expense_date, description, savings_goal_id
		 FROM expenses
		 WHERE user_id = ? AND expense_date >= ? AND expense_date < ?`
	args := []any{
		userID.String(),
		period.Start().Format(time.RFC3339),
		period.End().Format(time.RFC3339),
	}
	if categoryID != uuid.Nil {
		query += ` AND category_id = ?`
		args = append(args, categoryID.String())
	}
	query += ` ORDER BY expense_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e                              core.Expense
			id, owner, category, amt, date string
			goal                           sql.NullString
		)
		if err := rows.Scan(&id, &owner, &category, &amt, &date, &e.Description, &goal); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse expense id: %w", err)
		}
		if e.UserID, err = uuid.Parse(owner); err != nil {
			return nil, fmt.Errorf("parse expense user id: %w", err)
		}
		if e.CategoryID, err = uuid.Parse(category); err != nil {
			return nil, fmt.Errorf("parse expense category id: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("parse expense amount: %w", err)
		}
		if e.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parse expense date: %w", err)
		}
		if goal.Valid && goal.String != "" {
			if e.SavingsGoalID, err = uuid.Parse(goal.String); err != nil {
				return nil, fmt.Errorf("parse expense goal id: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) IncomeSourcesForUser(ctx context.Context, userID uuid.UUID) ([]core.IncomeSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount, frequency
		 FROM income_sources WHERE user_id = ? ORDER BY name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query income sources: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeSource
	for rows.Next() {
		var (
			s                     core.IncomeSource
			id, owner, amt, freq string
		)
		if err := rows.Scan(&id, &owner, &s.Name, &amt, &freq); err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse income source id: %w", err)
		}
		if s.UserID, err = uuid.Parse(owner); err != nil {
			return nil, fmt.Errorf("parse income source user id: %w", err)
		}
		if s.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("parse income amount: %w", err)
		}
		s.Frequency = core.Frequency(freq)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SavingsGoalsForUser(ctx context.Context, userID uuid.UUID) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, target_amount, current_progress, monthly_savings_target, updated_at
		 FROM savings_goals WHERE user_id = ? ORDER BY name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SavingsGoalByID(ctx context.Context, userID, goalID uuid.UUID) (core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, target_amount, current_progress, monthly_savings_target, updated_at
		 FROM savings_goals WHERE id = ? AND user_id = ?`,
		goalID.String(), userID.String())

	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrNotFound
	}
	return g, err
}

func (r *SQLiteRepository) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, balance FROM accounts WHERE user_id = ? ORDER BY name`,
		userID.String())
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			a              core.Account
			id, owner, bal string
		)
		if err := rows.Scan(&id, &owner, &a.Name, &bal); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		if a.UserID, err = uuid.Parse(owner); err != nil {
			return nil, fmt.Errorf("parse account user id: %w", err)
		}
		if a.Balance, err = decimal.NewFromString(bal); err != nil {
			return nil, fmt.Errorf("parse account balance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) PutCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	if err := c.Validate(); err != nil {
		return core.BudgetCategory{}, err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_categories (id, user_id, name, monthly_limit, is_essential, color, icon)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, monthly_limit = excluded.monthly_limit,
		   is_essential = excluded.is_essential, color = excluded.color, icon = excluded.icon`,
		c.ID.String(), c.UserID.String(), c.Name, c.MonthlyLimit.String(),
		boolToInt(c.IsEssential), c.Color, c.Icon)
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("upsert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_categories WHERE id = ? AND user_id = ?`,
		categoryID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) PutExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(time.Now()); err != nil {
		return core.Expense{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	// The category must exist and belong to the same user
	if _, err := r.CategoryByID(ctx, e.UserID, e.CategoryID); err != nil {
		return core.Expense{}, err
	}
	goal := ""
	if e.SavingsGoalID != uuid.Nil {
		goal = e.SavingsGoalID.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category_id, amount, expense_date, description, savings_goal_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.UserID.String(), e.CategoryID.String(),
		e.Amount.String(), e.Date.UTC().Format(time.RFC3339), e.Description, goal)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) (core.Expense, error) {
	expenses, err := r.expenseByID(ctx, userID, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`,
		expenseID.String(), userID.String()); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) expenseByID(ctx context.Context, userID, expenseID uuid.UUID) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT category_id, amount, expense_date, description, savings_goal_id
		 FROM expenses WHERE id = ? AND user_id = ?`,
		expenseID.String(), userID.String())

	var (
		e                   core.Expense
		category, amt, date string
		goal                sql.NullString
	)
	err := row.Scan(&category, &amt, &date, &e.Description, &goal)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.ID = expenseID
	e.UserID = userID
	if e.CategoryID, err = uuid.Parse(category); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense category id: %w", err)
	}
	if e.Amount, err = decimal.NewFromString(amt); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense amount: %w", err)
	}
	if e.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date: %w", err)
	}
	if goal.Valid && goal.String != "" {
		if e.SavingsGoalID, err = uuid.Parse(goal.String); err != nil {
			return core.Expense{}, fmt.Errorf("parse expense goal id: %w", err)
		}
	}
	return e, nil
}

func (r *SQLiteRepository) PutIncomeSource(ctx context.Context, s core.IncomeSource) (core.IncomeSource, error) {
	if err := s.Validate(); err != nil {
		return core.IncomeSource{}, err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO income_sources (id, user_id, name, amount, frequency)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, amount = excluded.amount, frequency = excluded.frequency`,
		s.ID.String(), s.UserID.String(), s.Name, s.Amount.String(), string(s.Frequency))
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("upsert income source: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteIncomeSource(ctx context.Context, userID, sourceID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM income_sources WHERE id = ? AND user_id = ?`,
		sourceID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) PutSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (id, user_id, name, target_amount, current_progress, monthly_savings_target, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, target_amount = excluded.target_amount,
		   monthly_savings_target = excluded.monthly_savings_target, updated_at = excluded.updated_at`,
		g.ID.String(), g.UserID.String(), g.Name, g.TargetAmount.String(),
		g.CurrentProgress.String(), g.MonthlySavingsTarget.String(),
		g.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("upsert savings goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM savings_goals WHERE id = ? AND user_id = ?`,
		goalID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	return requireRow(res)
}

// AddGoalProgress increments current_progress inside a transaction so
// concurrent contributions never lose an update. The addition happens in Go
// to keep decimal exactness; the row stays locked for the duration.
func (r *SQLiteRepository) AddGoalProgress(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var progress string
	err = tx.QueryRowContext(ctx,
		`SELECT current_progress FROM savings_goals WHERE id = ? AND user_id = ?`,
		goalID.String(), userID.String()).Scan(&progress)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read goal progress: %w", err)
	}

	current, err := decimal.NewFromString(progress)
	if err != nil {
		return fmt.Errorf("parse goal progress: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE savings_goals SET current_progress = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		current.Add(amount).String(), time.Now().UTC().Format(time.RFC3339),
		goalID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("update goal progress: %w", err)
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (core.BudgetCategory, error) {
	var (
		c                core.BudgetCategory
		id, owner, limit string
		essential        int
	)
	err := row.Scan(&id, &owner, &c.Name, &limit, &essential, &c.Color, &c.Icon)
	if err != nil {
		return core.BudgetCategory{}, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("parse category id: %w", err)
	}
	if c.UserID, err = uuid.Parse(owner); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("parse category user id: %w", err)
	}
	if c.MonthlyLimit, err = decimal.NewFromString(limit); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("parse category limit: %w", err)
	}
	c.IsEssential = essential != 0
	return c, nil
}

func scanGoal(row scanner) (core.SavingsGoal, error) {
	var (
		g                                             core.SavingsGoal
		id, owner, target, progress, monthly, updated string
	)
	err := row.Scan(&id, &owner, &g.Name, &target, &progress, &monthly, &updated)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if g.ID, err = uuid.Parse(id); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal id: %w", err)
	}
	if g.UserID, err = uuid.Parse(owner); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal user id: %w", err)
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal target: %w", err)
	}
	if g.CurrentProgress, err = decimal.NewFromString(progress); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal progress: %w", err)
	}
	if g.MonthlySavingsTarget, err = decimal.NewFromString(monthly); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal monthly target: %w", err)
	}
	if g.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse goal updated at: %w", err)
	}
	return g, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
