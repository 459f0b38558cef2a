package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is a stored user-facing alert, written when budget or
// goal events fire.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification kinds. Each maps to a preference column; unknown kinds
// are always delivered.
const (
	KindBudgetAlert      = "budget_alert"
	KindGoalCompleted    = "goal_completed"
	KindPredictionUpdate = "prediction_update"
)

func (s *Store) CreateNotification(ctx context.Context, n *Notification) error {
	allowed, err := s.notificationAllowed(ctx, n.UserID, n.Kind)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_notifications (id, user_id, kind, title, body)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// notificationAllowed checks the user's preference row. A missing row
// means everything is on.
func (s *Store) notificationAllowed(ctx context.Context, userID, kind string) (bool, error) {
	var column string
	switch kind {
	case KindBudgetAlert:
		column = "budget_alerts"
	case KindGoalCompleted:
		column = "goal_milestones"
	case KindPredictionUpdate:
		column = "prediction_updates"
	default:
		return true, nil
	}
	var allowed bool
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT `+column+` FROM notification_preferences WHERE user_id = $1), TRUE)`,
		userID).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("check notification preference: %w", err)
	}
	return allowed, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, kind, title, body, is_read, created_at
		FROM user_notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE user_notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
