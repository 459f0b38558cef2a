package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"budgetme/internal/core"
)

// ErrNoCachedPrediction signals that no fresh prediction is stored for
// the user and timeframe.
var ErrNoCachedPrediction = errors.New("no cached prediction")

// SavePrediction upserts the forecast for a user and timeframe. One row
// per pair; a newer forecast replaces the old one.
func (s *Store) SavePrediction(ctx context.Context, result core.PredictionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal prediction payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO prophet_predictions (id, user_id, timeframe, payload, source, generated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, timeframe) DO UPDATE
		SET payload = EXCLUDED.payload,
		    source = EXCLUDED.source,
		    generated_at = EXCLUDED.generated_at,
		    expires_at = EXCLUDED.expires_at`,
		uuid.NewString(), result.UserID, string(result.Timeframe), payload,
		string(result.Source), result.GeneratedAt, result.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

// GetCachedPrediction returns the stored forecast when it has not yet
// expired, or ErrNoCachedPrediction.
func (s *Store) GetCachedPrediction(ctx context.Context, userID string, tf core.Timeframe, now time.Time) (core.PredictionResult, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM prophet_predictions
		WHERE user_id = $1 AND timeframe = $2 AND expires_at > $3`,
		userID, string(tf), now).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.PredictionResult{}, ErrNoCachedPrediction
	}
	if err != nil {
		return core.PredictionResult{}, fmt.Errorf("read cached prediction: %w", err)
	}

	var result core.PredictionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return core.PredictionResult{}, fmt.Errorf("unmarshal prediction payload: %w", err)
	}
	return result, nil
}

// PurgeExpiredPredictions deletes stale forecast rows and reports how
// many were removed.
func (s *Store) PurgeExpiredPredictions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM prophet_predictions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired predictions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LogRequest records an incoming prediction request and returns its id.
func (s *Store) LogRequest(ctx context.Context, userID string, tf core.Timeframe) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prediction_requests (id, user_id, timeframe)
		VALUES ($1, $2, $3)`, id, userID, string(tf))
	if err != nil {
		return "", fmt.Errorf("log prediction request: %w", err)
	}
	return id, nil
}

// UpdateRequestStatus closes out a logged request with its outcome.
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID, status string, source core.Source, errorCode string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE prediction_requests
		SET status = $1, source = $2, error_code = $3, completed_at = now()
		WHERE id = $4`, status, string(source), errorCode, requestID)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// SaveInsights persists a generated insight batch.
func (s *Store) SaveInsights(ctx context.Context, userID string, tf core.Timeframe, insights []core.Insight, templated bool) error {
	payload, err := json.Marshal(insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ai_insights (id, user_id, timeframe, insights, is_templated)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, string(tf), payload, templated)
	if err != nil {
		return fmt.Errorf("insert insights: %w", err)
	}
	return nil
}
