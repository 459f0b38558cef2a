package services

import (
	"context"
	"fmt"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/log"
	"budgetme/internal/storage"
)

// TransactionStore is the persistence surface the transaction service
// needs.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, tx *core.Transaction) error
	CountTransactions(ctx context.Context, userID string, since time.Time) (int, error)
	SpendingByCategory(ctx context.Context, userID string, since time.Time) (map[string]float64, error)
	AddSpending(ctx context.Context, userID, category string, date time.Time, amount float64) error
	GoalExists(ctx context.Context, userID, goalID string) (bool, error)
}

type TransactionService struct {
	store TransactionStore
	log   *log.Logger
	now   func() time.Time
}

func NewTransactionService(store TransactionStore, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store: store,
		log:   logger.WithComponent(log.ComponentTxn),
		now:   time.Now,
	}
}

func (s *TransactionService) List(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error) {
	txns, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, core.NewFetchError("unable to load transactions", err)
	}
	return txns, nil
}

// History returns up to monthsBack months of transactions, the window
// the forecaster trains on.
func (s *TransactionService) History(ctx context.Context, userID string, monthsBack int) ([]core.Transaction, error) {
	if monthsBack <= 0 {
		monthsBack = 12
	}
	since := s.now().AddDate(0, -monthsBack, 0)
	return s.List(ctx, userID, storage.TransactionFilter{Since: since})
}

// Record validates and persists a transaction. Expense rows also feed
// the spent counters of any budget covering their category.
func (s *TransactionService) Record(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, core.NewValidationError("invalid transaction", err)
	}
	if tx.GoalID != "" {
		owned, err := s.store.GoalExists(ctx, tx.UserID, tx.GoalID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("verify goal: %w", err)
		}
		if !owned {
			return core.Transaction{}, core.NewValidationError("goal does not exist for this user", nil)
		}
	}
	if err := s.store.CreateTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}

	if tx.Type == core.Expense && tx.Category != "" {
		if err := s.store.AddSpending(ctx, tx.UserID, tx.Category, tx.Date, tx.Amount); err != nil {
			// The transaction itself is saved; budget counters catch up
			// on the next recalculation.
			s.log.WarnContext(ctx, "budget spending update failed",
				log.FieldUserID, tx.UserID,
				log.FieldCategory, tx.Category,
				log.FieldError, err.Error(),
			)
		}
	}

	s.log.InfoContext(ctx, "transaction recorded",
		log.FieldUserID, tx.UserID,
		log.FieldAmount, tx.Amount,
		"type", string(tx.Type),
	)
	return tx, nil
}

func (s *TransactionService) SpendingByCategory(ctx context.Context, userID string, monthsBack int) (map[string]float64, error) {
	if monthsBack <= 0 {
		monthsBack = 6
	}
	since := s.now().AddDate(0, -monthsBack, 0)
	totals, err := s.store.SpendingByCategory(ctx, userID, since)
	if err != nil {
		return nil, core.NewFetchError("unable to aggregate spending", err)
	}
	return totals, nil
}
