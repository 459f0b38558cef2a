// Package services holds the application services that sit between the
// HTTP layer and storage. Read paths degrade through tiered fallback
// chains so a missing view or join never takes a feature down.
package services

import (
	"context"
	"fmt"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/fallback"
	"budgetme/internal/log"
)

// BudgetStore is the persistence surface the budget service needs.
type BudgetStore interface {
	ListBudgetDetails(ctx context.Context, userID string) ([]core.Budget, error)
	ListBudgetsJoined(ctx context.Context, userID string) ([]core.Budget, error)
	ListBudgetsBare(ctx context.Context, userID string) ([]core.Budget, error)
	GetBudget(ctx context.Context, userID, budgetID string) (core.Budget, error)
	CreateBudget(ctx context.Context, b *core.Budget) error
	UpdateBudget(ctx context.Context, b *core.Budget) error
	DeleteBudget(ctx context.Context, userID, budgetID string) error
}

// AlertPublisher receives budget threshold events. Implementations
// must not block.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, b core.Budget)
}

type BudgetService struct {
	store  BudgetStore
	events AlertPublisher
	log    *log.Logger
	now    func() time.Time
}

func NewBudgetService(store BudgetStore, events AlertPublisher, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:  store,
		events: events,
		log:    logger.WithComponent(log.ComponentBudget),
		now:    time.Now,
	}
}

// List returns the user's budgets with derived fields filled in, along
// with the tier that served them. Every tier yields identical field
// values for the same underlying rows.
func (s *BudgetService) List(ctx context.Context, userID string) ([]core.Budget, fallback.Tier, error) {
	res := fallback.Run(ctx, s.log, "list budgets",
		fallback.Attempt[[]core.Budget]{Source: fallback.TierView, Run: func(ctx context.Context) ([]core.Budget, error) {
			return s.store.ListBudgetDetails(ctx, userID)
		}},
		fallback.Attempt[[]core.Budget]{Source: fallback.TierJoined, Run: func(ctx context.Context) ([]core.Budget, error) {
			return s.store.ListBudgetsJoined(ctx, userID)
		}},
		fallback.Attempt[[]core.Budget]{Source: fallback.TierTable, Run: func(ctx context.Context) ([]core.Budget, error) {
			return s.store.ListBudgetsBare(ctx, userID)
		}},
	)
	if !res.Ok() {
		return nil, res.Source, core.NewFetchError("unable to load budgets", res.Err)
	}

	now := s.now()
	budgets := res.Data
	if res.Source != fallback.TierView {
		for i := range budgets {
			budgets[i].Enrich(now)
		}
	}

	for _, b := range budgets {
		if b.StatusIndicator == core.IndicatorWarning || b.StatusIndicator == core.IndicatorCritical {
			s.publishAlert(ctx, b)
		}
	}

	s.log.InfoContext(ctx, "budgets listed",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpList,
		log.FieldTier, string(res.Source),
		"count", len(budgets),
	)
	return budgets, res.Source, nil
}

func (s *BudgetService) publishAlert(ctx context.Context, b core.Budget) {
	if s.events == nil {
		return
	}
	s.events.PublishBudgetAlert(ctx, b)
}

func (s *BudgetService) Get(ctx context.Context, userID, budgetID string) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return core.Budget{}, err
	}
	b.Enrich(s.now())
	return b, nil
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.AlertThreshold == 0 {
		b.AlertThreshold = 0.8
	}
	if b.Period == "" {
		b.Period = "monthly"
	}
	if b.StartDate.IsZero() {
		b.StartDate = s.now()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.NewValidationError("invalid budget", err)
	}
	if err := s.store.CreateBudget(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.Enrich(s.now())

	s.log.InfoContext(ctx, "budget created",
		log.FieldUserID, b.UserID,
		log.FieldOperation, log.OpCreate,
		log.FieldBudgetID, b.ID,
		log.FieldAmount, b.Amount,
	)
	return b, nil
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.NewValidationError("invalid budget", err)
	}
	if err := s.store.UpdateBudget(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	s.log.InfoContext(ctx, "budget updated",
		log.FieldUserID, b.UserID,
		log.FieldBudgetID, b.ID,
		log.FieldOperation, log.OpUpdate,
	)
	return s.Get(ctx, b.UserID, b.ID)
}

func (s *BudgetService) Delete(ctx context.Context, userID, budgetID string) error {
	if err := s.store.DeleteBudget(ctx, userID, budgetID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "budget deleted",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpDelete,
		log.FieldBudgetID, budgetID,
	)
	return nil
}
