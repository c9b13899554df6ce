// Package engine computes derived budget-health views (category metrics,
// impact previews, allocation checks, savings progress, dashboard overviews)
// and keeps a keyed TTL cache of them coherent as entities change.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"budgetpulse/internal/cache"
	"budgetpulse/internal/core"
	applog "budgetpulse/internal/log"
)

// EntityReader is the narrow read surface the engine needs from the entity
// store. Implementations: storage.SQLiteRepository, memory.Store.
type EntityReader interface {
	// CategoriesForUser returns all budget categories owned by the user.
	CategoriesForUser(ctx context.Context, userID uuid.UUID) ([]core.BudgetCategory, error)

	// CategoryByID returns the category or core.ErrNotFound when it does not
	// exist or belongs to another user.
	CategoryByID(ctx context.Context, userID, categoryID uuid.UUID) (core.BudgetCategory, error)

	// ExpensesInPeriod returns the user's expenses inside [period.Start,
	// period.End), optionally filtered by category (uuid.Nil means all).
	ExpensesInPeriod(ctx context.Context, userID uuid.UUID, period core.Period, categoryID uuid.UUID) ([]core.Expense, error)

	IncomeSourcesForUser(ctx context.Context, userID uuid.UUID) ([]core.IncomeSource, error)

	SavingsGoalsForUser(ctx context.Context, userID uuid.UUID) ([]core.SavingsGoal, error)

	// SavingsGoalByID returns the goal or core.ErrNotFound.
	SavingsGoalByID(ctx context.Context, userID, goalID uuid.UUID) (core.SavingsGoal, error)

	AccountsForUser(ctx context.Context, userID uuid.UUID) ([]core.Account, error)
}

// GoalContributor persists goal contributions, the one mutation the engine
// performs itself.
type GoalContributor interface {
	AddGoalProgress(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) error
}

// TTLConfig holds per-derivation-kind cache lifetimes. Amount-sensitive
// previews stay short; summaries are costlier to recompute and live longer.
type TTLConfig struct {
	Preview   time.Duration
	Metric    time.Duration
	Goal      time.Duration
	Dashboard time.Duration
}

// DefaultTTL returns the stock lifetimes.
func DefaultTTL() TTLConfig {
	return TTLConfig{
		Preview:   5 * time.Minute,
		Metric:    15 * time.Minute,
		Goal:      15 * time.Minute,
		Dashboard: 3 * time.Minute,
	}
}

// Config wires an Engine. Zero-value fields fall back to defaults.
type Config struct {
	Store       EntityReader
	Contributor GoalContributor // optional; RecordContribution fails without it
	Cache       cache.Store     // optional; nil degrades to always-miss
	TTL         TTLConfig
	Policy      core.HealthPolicy // category/preview classification
	Overall     core.HealthPolicy // dashboard overall-health classification
	Clock       func() time.Time
	Logger      *applog.Logger
}

// Engine is the budget-health aggregation core. It is safe for concurrent
// use; concurrent misses on the same key are collapsed through singleflight.
type Engine struct {
	store   EntityReader
	contrib GoalContributor
	cache   cache.Store
	inval   *Invalidator
	ttl     TTLConfig
	policy  core.HealthPolicy
	overall core.HealthPolicy
	clock   func() time.Time
	sf      singleflight.Group
	logger  *applog.Logger
}

func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Policy == (core.HealthPolicy{}) {
		cfg.Policy = core.StrictPolicy
	}
	if cfg.Overall == (core.HealthPolicy{}) {
		cfg.Overall = core.LenientPolicy
	}
	if cfg.TTL == (TTLConfig{}) {
		cfg.TTL = DefaultTTL()
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentEngine)
	}
	return &Engine{
		store:   cfg.Store,
		contrib: cfg.Contributor,
		cache:   cfg.Cache,
		inval:   NewInvalidator(cfg.Cache, cfg.Logger),
		ttl:     cfg.TTL,
		policy:  cfg.Policy,
		overall: cfg.Overall,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
}

// Invalidator exposes the engine's invalidation coordinator so the write
// path (services, worker) can fan out entity-change notifications.
func (e *Engine) Invalidator() *Invalidator {
	return e.inval
}

// cacheGet treats a nil or failing cache as empty: the read path never
// depends on the cache being up.
func (e *Engine) cacheGet(key string) (any, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(key)
}

func (e *Engine) cacheSet(key string, value any, ttl time.Duration) {
	if e.cache == nil {
		return
	}
	e.cache.Set(key, value, ttl)
}
