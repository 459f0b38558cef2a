package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/fallback"
	"budgetme/internal/log"
)

// GoalStore is the persistence surface the goal service needs.
type GoalStore interface {
	ListGoalDetails(ctx context.Context, userID string) ([]core.Goal, error)
	ListGoalsJoined(ctx context.Context, userID string) ([]core.Goal, error)
	ListGoalsBare(ctx context.Context, userID string) ([]core.Goal, error)
	GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error)
	CreateGoal(ctx context.Context, g *core.Goal) error
	UpdateGoalStatus(ctx context.Context, userID, goalID string, status core.GoalStatus) error
	DeleteGoal(ctx context.Context, userID, goalID string) error
	ContributeToGoal(ctx context.Context, userID, goalID string, amount float64, date time.Time, notes string) (core.Goal, error)
}

// GoalEventPublisher receives goal completion events.
type GoalEventPublisher interface {
	PublishGoalCompleted(ctx context.Context, g core.Goal)
}

type GoalService struct {
	store  GoalStore
	events GoalEventPublisher
	log    *log.Logger
	now    func() time.Time
}

func NewGoalService(store GoalStore, events GoalEventPublisher, logger *log.Logger) *GoalService {
	return &GoalService{
		store:  store,
		events: events,
		log:    logger.WithComponent(log.ComponentGoal),
		now:    time.Now,
	}
}

// List returns the user's goals with progress fields filled in, along
// with the tier that served them.
func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, fallback.Tier, error) {
	res := fallback.Run(ctx, s.log, "list goals",
		fallback.Attempt[[]core.Goal]{Source: fallback.TierView, Run: func(ctx context.Context) ([]core.Goal, error) {
			return s.store.ListGoalDetails(ctx, userID)
		}},
		fallback.Attempt[[]core.Goal]{Source: fallback.TierJoined, Run: func(ctx context.Context) ([]core.Goal, error) {
			return s.store.ListGoalsJoined(ctx, userID)
		}},
		fallback.Attempt[[]core.Goal]{Source: fallback.TierTable, Run: func(ctx context.Context) ([]core.Goal, error) {
			return s.store.ListGoalsBare(ctx, userID)
		}},
	)
	if !res.Ok() {
		return nil, res.Source, core.NewFetchError("unable to load goals", res.Err)
	}

	goals := res.Data
	if res.Source != fallback.TierView {
		for i := range goals {
			goals[i].Enrich()
		}
	}

	s.log.InfoContext(ctx, "goals listed",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpList,
		log.FieldTier, string(res.Source),
		"count", len(goals),
	)
	return goals, res.Source, nil
}

func (s *GoalService) Get(ctx context.Context, userID, goalID string) (core.Goal, error) {
	g, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	g.Enrich()
	return g, nil
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.Status == "" {
		g.Status = core.GoalNotStarted
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, core.NewValidationError("invalid goal", err)
	}
	if err := s.store.CreateGoal(ctx, &g); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	g.Enrich()

	s.log.InfoContext(ctx, "goal created",
		log.FieldUserID, g.UserID,
		log.FieldOperation, log.OpCreate,
		log.FieldGoalID, g.ID,
		log.FieldAmount, g.TargetAmount,
	)
	return g, nil
}

// Contribute adds amount to the goal. The contribution is rejected when
// it would push progress past the target; landing exactly on the target
// completes the goal.
func (s *GoalService) Contribute(ctx context.Context, userID, goalID string, amount float64, notes string) (core.Goal, error) {
	if amount <= 0 {
		return core.Goal{}, core.NewValidationError("contribution amount must be positive", core.ErrInvalidAmount)
	}

	g, err := s.store.ContributeToGoal(ctx, userID, goalID, amount, s.now(), notes)
	if err != nil {
		var excess *core.ContributionExcessError
		switch {
		case errors.As(err, &excess):
			verr := core.NewValidationError(
				fmt.Sprintf("contribution would exceed goal target, maximum allowed is %.2f", excess.MaxAllowed), err)
			verr.WithContext("max_allowed", excess.MaxAllowed)
			return core.Goal{}, verr
		case errors.Is(err, core.ErrContributionExcess):
			return core.Goal{}, core.NewValidationError("contribution would exceed goal target", err)
		case errors.Is(err, core.ErrGoalNotActive):
			return core.Goal{}, core.NewValidationError("goal is not accepting contributions", err)
		default:
			return core.Goal{}, err
		}
	}
	g.Enrich()

	s.log.InfoContext(ctx, "contribution applied",
		log.FieldUserID, userID,
		log.FieldGoalID, goalID,
		log.FieldOperation, log.OpContribute,
		log.FieldAmount, amount,
	)

	if g.Status == core.GoalCompleted && s.events != nil {
		s.events.PublishGoalCompleted(ctx, g)
	}
	return g, nil
}

func (s *GoalService) Cancel(ctx context.Context, userID, goalID string) error {
	return s.store.UpdateGoalStatus(ctx, userID, goalID, core.GoalCancelled)
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	if err := s.store.DeleteGoal(ctx, userID, goalID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "goal deleted",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpDelete,
		log.FieldGoalID, goalID,
	)
	return nil
}
