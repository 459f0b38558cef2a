package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/fallback"
)

// fakeGoalStore enforces the same contribution rule as the conditional
// UPDATE in the real store.
type fakeGoalStore struct {
	viewErr error
	joinErr error
	goals   map[string]*core.Goal

	completed []string
}

func newFakeGoalStore(goals ...core.Goal) *fakeGoalStore {
	m := make(map[string]*core.Goal, len(goals))
	for i := range goals {
		g := goals[i]
		m[g.ID] = &g
	}
	return &fakeGoalStore{goals: m}
}

func (f *fakeGoalStore) list() []core.Goal {
	out := make([]core.Goal, 0, len(f.goals))
	for _, g := range f.goals {
		out = append(out, *g)
	}
	return out
}

func (f *fakeGoalStore) ListGoalDetails(ctx context.Context, userID string) ([]core.Goal, error) {
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	out := f.list()
	for i := range out {
		out[i].Enrich()
	}
	return out, nil
}

func (f *fakeGoalStore) ListGoalsJoined(ctx context.Context, userID string) ([]core.Goal, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return f.list(), nil
}

func (f *fakeGoalStore) ListGoalsBare(ctx context.Context, userID string) ([]core.Goal, error) {
	return f.list(), nil
}

func (f *fakeGoalStore) GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error) {
	g, ok := f.goals[goalID]
	if !ok {
		return core.Goal{}, core.NewNotFoundError("goal", goalID)
	}
	return *g, nil
}

func (f *fakeGoalStore) CreateGoal(ctx context.Context, g *core.Goal) error {
	g.ID = "new-goal"
	f.goals[g.ID] = g
	return nil
}

func (f *fakeGoalStore) UpdateGoalStatus(ctx context.Context, userID, goalID string, status core.GoalStatus) error {
	g, ok := f.goals[goalID]
	if !ok {
		return core.NewNotFoundError("goal", goalID)
	}
	g.Status = status
	return nil
}

func (f *fakeGoalStore) DeleteGoal(ctx context.Context, userID, goalID string) error {
	delete(f.goals, goalID)
	return nil
}

func (f *fakeGoalStore) ContributeToGoal(ctx context.Context, userID, goalID string, amount float64, date time.Time, notes string) (core.Goal, error) {
	g, ok := f.goals[goalID]
	if !ok {
		return core.Goal{}, core.NewNotFoundError("goal", goalID)
	}
	if g.Status != core.GoalNotStarted && g.Status != core.GoalInProgress {
		return core.Goal{}, core.ErrGoalNotActive
	}
	if g.CurrentAmount+amount > g.TargetAmount {
		return core.Goal{}, &core.ContributionExcessError{
			MaxAllowed: g.TargetAmount - g.CurrentAmount,
		}
	}
	g.CurrentAmount += amount
	if g.CurrentAmount >= g.TargetAmount {
		g.Status = core.GoalCompleted
	} else {
		g.Status = core.GoalInProgress
	}
	return *g, nil
}

func TestContributeRejectionStatesMaxAllowed(t *testing.T) {
	g := activeGoal()
	g.TargetAmount = 1000
	g.CurrentAmount = 900
	store := newFakeGoalStore(g)
	svc := NewGoalService(store, nil, testLogger())

	_, err := svc.Contribute(context.Background(), "u1", "g1", 200, "")
	if !core.IsCode(err, core.CodeValidation) {
		t.Fatalf("Contribute() err = %v, want code %s", err, core.CodeValidation)
	}
	se := core.AsServiceError(err)
	if !strings.Contains(se.Message, "100.00") {
		t.Errorf("message = %q, want the maximum allowed contribution (100.00) stated", se.Message)
	}
	if got, ok := se.Context["max_allowed"].(float64); !ok || got != 100 {
		t.Errorf("context max_allowed = %v, want 100", se.Context["max_allowed"])
	}
}

type captureCompletions struct {
	goals []core.Goal
}

func (c *captureCompletions) PublishGoalCompleted(ctx context.Context, g core.Goal) {
	c.goals = append(c.goals, g)
}

func activeGoal() core.Goal {
	return core.Goal{
		ID:            "g1",
		UserID:        "u1",
		Name:          "Emergency fund",
		TargetAmount:  1000,
		CurrentAmount: 400,
		Status:        core.GoalInProgress,
	}
}

func TestGoalContribute(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantErr    string
		wantTotal  float64
		wantStatus core.GoalStatus
	}{
		{"normal contribution", 100, "", 500, core.GoalInProgress},
		{"lands exactly on target", 600, "", 1000, core.GoalCompleted},
		{"would exceed target", 601, core.CodeValidation, 400, core.GoalInProgress},
		{"zero amount", 0, core.CodeValidation, 400, core.GoalInProgress},
		{"negative amount", -50, core.CodeValidation, 400, core.GoalInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeGoalStore(activeGoal())
			svc := NewGoalService(store, nil, testLogger())

			got, err := svc.Contribute(context.Background(), "u1", "g1", tt.amount, "")
			if tt.wantErr != "" {
				if !core.IsCode(err, tt.wantErr) {
					t.Fatalf("Contribute() err = %v, want code %s", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Contribute() error = %v", err)
				}
				if got.CurrentAmount != tt.wantTotal {
					t.Errorf("CurrentAmount = %v, want %v", got.CurrentAmount, tt.wantTotal)
				}
				if got.Status != tt.wantStatus {
					t.Errorf("Status = %v, want %v", got.Status, tt.wantStatus)
				}
			}

			// The stored goal never exceeds its target.
			stored, _ := store.GetGoal(context.Background(), "u1", "g1")
			if stored.CurrentAmount > stored.TargetAmount {
				t.Errorf("stored CurrentAmount %v exceeds target %v", stored.CurrentAmount, stored.TargetAmount)
			}
			if stored.CurrentAmount != tt.wantTotal {
				t.Errorf("stored CurrentAmount = %v, want %v", stored.CurrentAmount, tt.wantTotal)
			}
		})
	}
}

func TestGoalContribute_CompletionPublishesEvent(t *testing.T) {
	store := newFakeGoalStore(activeGoal())
	events := &captureCompletions{}
	svc := NewGoalService(store, events, testLogger())

	if _, err := svc.Contribute(context.Background(), "u1", "g1", 600, ""); err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}
	if len(events.goals) != 1 {
		t.Fatalf("completion events = %d, want 1", len(events.goals))
	}
	if events.goals[0].ID != "g1" {
		t.Errorf("completed goal = %q, want g1", events.goals[0].ID)
	}
}

func TestGoalContribute_InactiveGoal(t *testing.T) {
	g := activeGoal()
	g.Status = core.GoalCancelled
	svc := NewGoalService(newFakeGoalStore(g), nil, testLogger())

	_, err := svc.Contribute(context.Background(), "u1", "g1", 10, "")
	if !core.IsCode(err, core.CodeValidation) {
		t.Errorf("Contribute(cancelled goal) err = %v, want VALIDATION_ERROR", err)
	}
	if !errors.Is(core.AsServiceError(err).Unwrap(), core.ErrGoalNotActive) {
		t.Errorf("cause = %v, want ErrGoalNotActive", err)
	}
}

func TestGoalList_TierFallthrough(t *testing.T) {
	store := newFakeGoalStore(activeGoal())
	store.viewErr = errors.New("view missing")
	svc := NewGoalService(store, nil, testLogger())

	goals, tier, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if tier != fallback.TierJoined {
		t.Errorf("tier = %v, want %v", tier, fallback.TierJoined)
	}
	if len(goals) != 1 {
		t.Fatalf("len = %d, want 1", len(goals))
	}
	if goals[0].ProgressPercent != 40 {
		t.Errorf("ProgressPercent = %v, want 40 after enrichment", goals[0].ProgressPercent)
	}
}
