package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"budgetme/internal/core"
)

const serviceTypePrediction = "prediction"

// nextReset returns the start of the next UTC day.
func nextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// GetUsage returns the user's quota row, creating it on first use and
// lazily rolling it over when the reset date has passed.
func (s *Store) GetUsage(ctx context.Context, userID string, maxUsage int, now time.Time) (core.UsageStatus, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prediction_usage_limits (user_id, service_type, current_usage, max_usage, reset_date)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (user_id, service_type) DO NOTHING`,
		userID, serviceTypePrediction, maxUsage, nextReset(now))
	if err != nil {
		return core.UsageStatus{}, fmt.Errorf("init usage row: %w", err)
	}

	// Roll over an expired period before reading.
	_, err = s.pool.Exec(ctx, `
		UPDATE prediction_usage_limits
		SET current_usage = 0, reset_date = $1, updated_at = now()
		WHERE user_id = $2 AND service_type = $3 AND reset_date <= $4`,
		nextReset(now), userID, serviceTypePrediction, now)
	if err != nil {
		return core.UsageStatus{}, fmt.Errorf("roll over usage period: %w", err)
	}

	var u core.UsageStatus
	err = s.pool.QueryRow(ctx, `
		SELECT user_id, service_type, current_usage, max_usage, reset_date
		FROM prediction_usage_limits
		WHERE user_id = $1 AND service_type = $2`,
		userID, serviceTypePrediction).
		Scan(&u.UserID, &u.ServiceType, &u.CurrentUsage, &u.MaxUsage, &u.ResetDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.UsageStatus{}, core.NewNotFoundError("usage record", userID)
	}
	if err != nil {
		return core.UsageStatus{}, fmt.Errorf("read usage row: %w", err)
	}

	u.Exceeded = u.CurrentUsage >= u.MaxUsage
	u.Remaining = u.MaxUsage - u.CurrentUsage
	if u.Remaining < 0 {
		u.Remaining = 0
	}
	return u, nil
}

// IncrementUsage consumes one quota unit. It reports false when the
// quota was already exhausted, without modifying the row.
func (s *Store) IncrementUsage(ctx context.Context, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE prediction_usage_limits
		SET current_usage = current_usage + 1, updated_at = now()
		WHERE user_id = $1 AND service_type = $2 AND current_usage < max_usage`,
		userID, serviceTypePrediction)
	if err != nil {
		return false, fmt.Errorf("increment usage: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ResetDueQuotas rolls over every quota row whose period has ended.
// Used by the maintenance worker; individual reads also roll over
// lazily so a stalled worker cannot lock users out.
func (s *Store) ResetDueQuotas(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE prediction_usage_limits
		SET current_usage = 0, reset_date = $1, updated_at = now()
		WHERE reset_date <= $2`, nextReset(now), now)
	if err != nil {
		return 0, fmt.Errorf("reset due quotas: %w", err)
	}
	return tag.RowsAffected(), nil
}
