// Package services holds the write path: persist the mutation, run the
// invalidation fan-out synchronously so the next read misses, then publish
// the change event best-effort for other processes.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budgetpulse/internal/amqp"
	"budgetpulse/internal/core"
	"budgetpulse/internal/engine"
	applog "budgetpulse/internal/log"
)

// EntityWriter is the mutation surface of the entity store, implemented by
// storage.SQLiteRepository and memory.Store.
type EntityWriter interface {
	PutCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error)
	DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error
	PutExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) (core.Expense, error)
	PutIncomeSource(ctx context.Context, s core.IncomeSource) (core.IncomeSource, error)
	DeleteIncomeSource(ctx context.Context, userID, sourceID uuid.UUID) error
	PutSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
	DeleteSavingsGoal(ctx context.Context, userID, goalID uuid.UUID) error
}

// ContributionRecorder persists a goal contribution and invalidates the
// local caches it touches, implemented by engine.Engine.
type ContributionRecorder interface {
	RecordContribution(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) error
}

// ChangePublisher broadcasts entity-change events to other processes,
// implemented by amqp.Client. May be nil when no broker is configured.
type ChangePublisher interface {
	PublishEntityChanged(ctx context.Context, msg *amqp.EntityChangedMessage) error
}

// MutationService orders every write as: store, invalidate, publish. The
// invalidation runs before the result is returned; the publish never fails
// the request.
type MutationService struct {
	store     EntityWriter
	goals     ContributionRecorder
	inval     *engine.Invalidator
	publisher ChangePublisher
	logger    *applog.Logger
}

func NewMutationService(store EntityWriter, goals ContributionRecorder, inval *engine.Invalidator, publisher ChangePublisher, logger *applog.Logger) *MutationService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentApp)
	}
	return &MutationService{
		store:     store,
		goals:     goals,
		inval:     inval,
		publisher: publisher,
		logger:    logger,
	}
}

// SaveCategory creates or updates a budget category and clears every
// derivation its limit feeds.
func (s *MutationService) SaveCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	saved, err := s.store.PutCategory(ctx, c)
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("save category: %w", err)
	}

	s.inval.OnCategoryChanged(saved.UserID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntityCategory, saved.UserID, saved.ID, uuid.Nil))
	return saved, nil
}

func (s *MutationService) DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	if err := s.store.DeleteCategory(ctx, userID, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.inval.OnCategoryChanged(userID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntityCategory, userID, categoryID, uuid.Nil))
	return nil
}

// CreateExpense persists an expense and clears the touched category's
// metrics and previews, the monthly progress and the dashboard.
func (s *MutationService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.store.PutExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.inval.OnExpenseChanged(saved.UserID, saved.CategoryID, saved.SavingsGoalID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntityExpense, saved.UserID, saved.CategoryID, saved.SavingsGoalID))

	s.logger.InfoContext(ctx, "Expense created",
		applog.FieldUserID, saved.UserID,
		applog.FieldCategoryID, saved.CategoryID,
		applog.FieldAmount, saved.Amount.StringFixed(2))
	return saved, nil
}

func (s *MutationService) DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) error {
	deleted, err := s.store.DeleteExpense(ctx, userID, expenseID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.inval.OnExpenseChanged(userID, deleted.CategoryID, deleted.SavingsGoalID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntityExpense, userID, deleted.CategoryID, deleted.SavingsGoalID))
	return nil
}

func (s *MutationService) SaveIncomeSource(ctx context.Context, src core.IncomeSource) (core.IncomeSource, error) {
	saved, err := s.store.PutIncomeSource(ctx, src)
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("save income source: %w", err)
	}

	s.inval.OnIncomeChanged(saved.UserID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntityIncomeSource, saved.UserID, uuid.Nil, uuid.Nil))
	return saved, nil
}

func (s *MutationService) DeleteIncomeSource(ctx context.Context, userID, sourceID uuid.UUID) error {
	if err := s.store.DeleteIncomeSource(ctx, userID, sourceID); err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}

	s.inval.OnIncomeChanged(userID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntityIncomeSource, userID, uuid.Nil, uuid.Nil))
	return nil
}

func (s *MutationService) SaveSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	saved, err := s.store.PutSavingsGoal(ctx, g)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("save savings goal: %w", err)
	}

	s.inval.OnSavingsGoalChanged(saved.UserID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntitySavingsGoal, saved.UserID, uuid.Nil, saved.ID))
	return saved, nil
}

func (s *MutationService) DeleteSavingsGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	if err := s.store.DeleteSavingsGoal(ctx, userID, goalID); err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}

	s.inval.OnSavingsGoalChanged(userID)
	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntitySavingsGoal, userID, uuid.Nil, goalID))
	return nil
}

// RecordContribution adds amount to a goal's saved progress. The engine
// persists the increment and clears its own caches; the publish here lets
// peer processes drop their mirrored goal and dashboard entries too.
func (s *MutationService) RecordContribution(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) error {
	if err := s.goals.RecordContribution(ctx, userID, goalID, amount); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewEntityChangedMessage(amqp.EntitySavingsGoal, userID, uuid.Nil, goalID))
	return nil
}

func (s *MutationService) publish(ctx context.Context, msg *amqp.EntityChangedMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntityChanged(ctx, msg); err != nil {
		// The local invalidation already ran; remote caches fall back to TTL
		s.logger.ErrorContext(ctx, "Failed to publish change event",
			applog.FieldEntity, msg.Entity,
			applog.FieldUserID, msg.UserID,
			applog.FieldError, err)
	}
}
