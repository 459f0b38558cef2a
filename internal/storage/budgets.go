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

// ListBudgetDetails reads budgets from the budget_details view, which
// carries every derived field precomputed.
func (s *Store) ListBudgetDetails(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, category_id, category_name, amount, spent, period,
		       start_date, end_date, alert_threshold, remaining, percentage_used,
		       status_indicator, period_status, days_remaining
		FROM budget_details
		WHERE user_id = $1
		ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budget_details: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			catID    *string
			endDate  *time.Time
			status   string
			pStatus  string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &catID, &b.CategoryName, &b.Amount,
			&b.Spent, &b.Period, &b.StartDate, &endDate, &b.AlertThreshold,
			&b.Remaining, &b.PercentageUsed, &status, &pStatus, &b.DaysRemaining); err != nil {
			return nil, fmt.Errorf("scan budget_details row: %w", err)
		}
		if catID != nil {
			b.CategoryID = *catID
		}
		if endDate != nil {
			b.EndDate = *endDate
		}
		b.StatusIndicator = core.StatusIndicator(status)
		b.PeriodStatus = core.PeriodStatus(pStatus)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ListBudgetsJoined reads budgets joined with category names. Derived
// fields are left for the service layer to compute.
func (s *Store) ListBudgetsJoined(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.amount,
		       b.spent, b.period, b.start_date, b.end_date, b.alert_threshold
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = $1
		ORDER BY b.start_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets with categories: %w", err)
	}
	defer rows.Close()
	return scanBudgets(rows)
}

// ListBudgetsBare reads the budgets table alone.
func (s *Store) ListBudgetsBare(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, category_id, '', amount, spent, period,
		       start_date, end_date, alert_threshold
		FROM budgets
		WHERE user_id = $1
		ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()
	return scanBudgets(rows)
}

func scanBudgets(rows pgx.Rows) ([]core.Budget, error) {
	var budgets []core.Budget
	for rows.Next() {
		var (
			b       core.Budget
			catID   *string
			endDate *time.Time
		)
		if err := rows.Scan(&b.ID, &b.UserID, &catID, &b.CategoryName, &b.Amount,
			&b.Spent, &b.Period, &b.StartDate, &endDate, &b.AlertThreshold); err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		if catID != nil {
			b.CategoryID = *catID
		}
		if endDate != nil {
			b.EndDate = *endDate
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *Store) GetBudget(ctx context.Context, userID, budgetID string) (core.Budget, error) {
	var (
		b       core.Budget
		catID   *string
		endDate *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT b.id, b.user_id, b.category_id, COALESCE(c.name, ''), b.amount,
		       b.spent, b.period, b.start_date, b.end_date, b.alert_threshold
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.id = $1 AND b.user_id = $2`, budgetID, userID).
		Scan(&b.ID, &b.UserID, &catID, &b.CategoryName, &b.Amount,
			&b.Spent, &b.Period, &b.StartDate, &endDate, &b.AlertThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Budget{}, core.NewNotFoundError("budget", budgetID)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if catID != nil {
		b.CategoryID = *catID
	}
	if endDate != nil {
		b.EndDate = *endDate
	}
	return b, nil
}

func (s *Store) CreateBudget(ctx context.Context, b *core.Budget) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	var endDate *time.Time
	if !b.EndDate.IsZero() {
		endDate = &b.EndDate
	}
	var catID *string
	if b.CategoryID != "" {
		catID = &b.CategoryID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO budgets (id, user_id, category_id, amount, period, start_date, end_date, alert_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.UserID, catID, b.Amount, b.Period, b.StartDate, endDate, b.AlertThreshold)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *core.Budget) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE budgets
		SET amount = $1, period = $2, start_date = $3, end_date = $4,
		    alert_threshold = $5, updated_at = now()
		WHERE id = $6 AND user_id = $7`,
		b.Amount, b.Period, b.StartDate, nullableTime(b.EndDate), b.AlertThreshold, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("budget", b.ID)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, budgetID, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewNotFoundError("budget", budgetID)
	}
	return nil
}

// AddSpending bumps the spent counter on every active budget covering
// the transaction's category and date.
func (s *Store) AddSpending(ctx context.Context, userID, category string, date time.Time, amount float64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE budgets b
		SET spent = spent + $1, updated_at = now()
		FROM categories c
		WHERE b.category_id = c.id
		  AND b.user_id = $2
		  AND c.name = $3
		  AND b.start_date <= $4
		  AND (b.end_date IS NULL OR b.end_date >= $4)`,
		amount, userID, category, date)
	if err != nil {
		return fmt.Errorf("add spending to budgets: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
