package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"budgetme/internal/core"
)

// ListGoalDetails reads goals from the goal_details view.
func (s *Store) ListGoalDetails(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, status,
		       target_date, family_id, is_family_goal, created_at,
		       remaining, progress_percent
		FROM goal_details
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goal_details: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var (
			g          core.Goal
			status     string
			targetDate *time.Time
			familyID   *string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
			&status, &targetDate, &familyID, &g.IsFamilyGoal, &g.CreatedAt,
			&g.Remaining, &g.ProgressPercent); err != nil {
			return nil, fmt.Errorf("scan goal_details row: %w", err)
		}
		g.Status = core.GoalStatus(status)
		if targetDate != nil {
			g.TargetDate = *targetDate
		}
		if familyID != nil {
			g.FamilyID = *familyID
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// ListGoalsJoined reads goals with progress reconciled against the
// contribution transactions that fed them. Serves as the middle tier
// when the goal_details view is unavailable.
func (s *Store) ListGoalsJoined(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.user_id, g.name, g.target_amount,
		       GREATEST(g.current_amount, COALESCE(SUM(t.amount), 0)),
		       g.status, g.target_date, g.family_id, g.is_family_goal, g.created_at
		FROM goals g
		LEFT JOIN transactions t ON t.goal_id = g.id AND t.tx_type = 'contribution'
		WHERE g.user_id = $1
		GROUP BY g.id
		ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals with contributions: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// ListGoalsBare reads the goals table alone. Derived fields are left
// for the service layer.
func (s *Store) ListGoalsBare(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, status,
		       target_date, family_id, is_family_goal, created_at
		FROM goals
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanGoal(row pgx.Row) (core.Goal, error) {
	var (
		g          core.Goal
		status     string
		targetDate *time.Time
		familyID   *string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&status, &targetDate, &familyID, &g.IsFamilyGoal, &g.CreatedAt)
	if err != nil {
		return core.Goal{}, fmt.Errorf("scan goal row: %w", err)
	}
	g.Status = core.GoalStatus(status)
	if targetDate != nil {
		g.TargetDate = *targetDate
	}
	if familyID != nil {
		g.FamilyID = *familyID
	}
	return g, nil
}

func (s *Store) GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, status,
		       target_date, family_id, is_family_goal, created_at
		FROM goals
		WHERE id = $1 AND user_id = $2`, goalID, userID)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Goal{}, core.NewNotFoundError("goal", goalID)
		}
		return core.Goal{}, err
	}
	return g, nil
}

func (s *Store) CreateGoal(ctx context.Context, g *core.Goal) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = core.GoalNotStarted
	}
	var familyID *string
	if g.FamilyID != "" {
		familyID = &g.FamilyID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO goals (id, user_id, name, target_amount, current_amount, status,
		                   target_date, family_id, is_family_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		g.ID, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, string(g.Status),
		nullableTime(g.TargetDate), familyID, g.IsFamilyGoal)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (s *Store) UpdateGoalStatus(ctx context.Context, userID, goalID string, status core.GoalStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE goals SET status = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3`, string(status), goalID, userID)
	if err != nil {
		return fmt.Errorf("update goal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("goal", goalID)
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("goal", goalID)
	}
	return nil
}

// ContributeToGoal atomically adds amount to the goal and records the
// matching transaction. The conditional UPDATE keeps current_amount
// within target_amount; reaching the target flips the status to
// completed. Returns the goal as it stands after the contribution.
func (s *Store) ContributeToGoal(ctx context.Context, userID, goalID string, amount float64, date time.Time, notes string) (core.Goal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin contribution tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		g      core.Goal
		status string
	)
	err = tx.QueryRow(ctx, `
		UPDATE goals
		SET current_amount = current_amount + $1,
		    status = CASE
		        WHEN current_amount + $1 >= target_amount THEN 'completed'
		        ELSE 'in_progress'
		    END,
		    updated_at = now()
		WHERE id = $2 AND user_id = $3
		  AND status IN ('not_started', 'in_progress')
		  AND current_amount + $1 <= target_amount
		RETURNING id, user_id, name, target_amount, current_amount, status,
		          created_at, is_family_goal`,
		amount, goalID, userID).
		Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &status,
			&g.CreatedAt, &g.IsFamilyGoal)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing goal from a rejected contribution.
		existing, getErr := s.GetGoal(ctx, userID, goalID)
		if getErr != nil {
			return core.Goal{}, getErr
		}
		if existing.Status != core.GoalNotStarted && existing.Status != core.GoalInProgress {
			return core.Goal{}, core.ErrGoalNotActive
		}
		return core.Goal{}, &core.ContributionExcessError{
			MaxAllowed: existing.TargetAmount - existing.CurrentAmount,
		}
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("apply contribution: %w", err)
	}
	g.Status = core.GoalStatus(status)

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, occurred_on, amount, tx_type, category, goal_id, notes)
		VALUES ($1, $2, $3, $4, $5, '', $6, $7)`,
		uuid.NewString(), userID, date, amount, string(core.Contribution), goalID, notes)
	if err != nil {
		return core.Goal{}, fmt.Errorf("record contribution transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.Goal{}, fmt.Errorf("commit contribution: %w", err)
	}
	return g, nil
}

// GoalExists reports whether the goal belongs to the user. Used as an
// ownership check before attaching transactions to a goal.
func (s *Store) GoalExists(ctx context.Context, userID, goalID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM goals WHERE id = $1 AND user_id = $2)`,
		goalID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check goal ownership: %w", err)
	}
	return exists, nil
}
