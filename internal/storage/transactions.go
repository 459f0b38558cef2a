package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetme/internal/core"
)

// TransactionFilter narrows a transaction listing. Zero values mean
// "no constraint".
type TransactionFilter struct {
	Since    time.Time
	Until    time.Time
	Type     core.TransactionType
	Category string
	Limit    int
}

// ListTransactions reads transactions newest first. A joined category
// listing does not exist for transactions; the category label is
// denormalized onto the row.
func (s *Store) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
		SELECT id, user_id, occurred_on, amount, tx_type, category, goal_id, notes
		FROM transactions
		WHERE user_id = $1`)
	args = append(args, userID)

	if !f.Since.IsZero() {
		args = append(args, f.Since)
		fmt.Fprintf(&sb, " AND occurred_on >= $%d", len(args))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		fmt.Fprintf(&sb, " AND occurred_on <= $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		fmt.Fprintf(&sb, " AND tx_type = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		fmt.Fprintf(&sb, " AND category = $%d", len(args))
	}
	sb.WriteString(" ORDER BY occurred_on DESC, created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		var (
			tx     core.Transaction
			txType string
			goalID *string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Date, &tx.Amount, &txType,
			&tx.Category, &goalID, &tx.Notes); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		tx.Type = core.TransactionType(txType)
		if goalID != nil {
			tx.GoalID = *goalID
		}
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, tx *core.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	var goalID *string
	if tx.GoalID != "" {
		goalID = &tx.GoalID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, occurred_on, amount, tx_type, category, goal_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.UserID, tx.Date, tx.Amount, string(tx.Type), tx.Category, goalID, tx.Notes)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CountTransactions returns how many transactions a user has recorded
// since the given date.
func (s *Store) CountTransactions(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = $1 AND occurred_on >= $2`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// SpendingByCategory sums expenses per category over a window.
func (s *Store) SpendingByCategory(ctx context.Context, userID string, since time.Time) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(NULLIF(category, ''), 'Uncategorized'), SUM(amount)
		FROM transactions
		WHERE user_id = $1 AND tx_type = 'expense' AND occurred_on >= $2
		GROUP BY 1`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query spending by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var (
			category string
			total    float64
		)
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals[category] = total
	}
	return totals, rows.Err()
}
