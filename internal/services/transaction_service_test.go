package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/storage"
)

type fakeTransactionStore struct {
	created      []core.Transaction
	listFilter   storage.TransactionFilter
	goals        map[string]string // goalID -> userID
	spendingErr  error
	spendingHits int
}

func (f *fakeTransactionStore) ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter) ([]core.Transaction, error) {
	f.listFilter = filter
	return nil, nil
}

func (f *fakeTransactionStore) CreateTransaction(ctx context.Context, tx *core.Transaction) error {
	f.created = append(f.created, *tx)
	return nil
}

func (f *fakeTransactionStore) CountTransactions(ctx context.Context, userID string, since time.Time) (int, error) {
	return len(f.created), nil
}

func (f *fakeTransactionStore) SpendingByCategory(ctx context.Context, userID string, since time.Time) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (f *fakeTransactionStore) AddSpending(ctx context.Context, userID, category string, date time.Time, amount float64) error {
	f.spendingHits++
	return f.spendingErr
}

func (f *fakeTransactionStore) GoalExists(ctx context.Context, userID, goalID string) (bool, error) {
	return f.goals[goalID] == userID, nil
}

func TestRecordValidation(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		tx      core.Transaction
		wantErr bool
	}{
		{
			name: "valid expense",
			tx:   core.Transaction{UserID: "u-1", Type: core.Expense, Amount: 25, Category: "Food", Date: day},
		},
		{
			name:    "zero amount",
			tx:      core.Transaction{UserID: "u-1", Type: core.Expense, Amount: 0, Date: day},
			wantErr: true,
		},
		{
			name:    "negative amount",
			tx:      core.Transaction{UserID: "u-1", Type: core.Income, Amount: -5, Date: day},
			wantErr: true,
		},
		{
			name:    "unknown type",
			tx:      core.Transaction{UserID: "u-1", Type: "refund", Amount: 5, Date: day},
			wantErr: true,
		},
		{
			name:    "contribution without goal",
			tx:      core.Transaction{UserID: "u-1", Type: core.Contribution, Amount: 5, Date: day},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeTransactionStore{}
			svc := NewTransactionService(store, testLogger())

			_, err := svc.Record(context.Background(), tt.tx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Record() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !core.IsCode(err, core.CodeValidation) {
					t.Errorf("error code = %v, want %s", err, core.CodeValidation)
				}
				if len(store.created) != 0 {
					t.Errorf("created = %d rows, want none", len(store.created))
				}
			}
		})
	}
}

func TestRecordGoalOwnership(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeTransactionStore{goals: map[string]string{"g-1": "u-1"}}
	svc := NewTransactionService(store, testLogger())

	tx := core.Transaction{UserID: "u-1", Type: core.Contribution, Amount: 50, GoalID: "g-1", Date: day}
	if _, err := svc.Record(context.Background(), tx); err != nil {
		t.Fatalf("Record() owned goal: %v", err)
	}

	tx.UserID = "u-2"
	_, err := svc.Record(context.Background(), tx)
	if !core.IsCode(err, core.CodeValidation) {
		t.Fatalf("Record() foreign goal error = %v, want %s", err, core.CodeValidation)
	}
	if len(store.created) != 1 {
		t.Errorf("created = %d rows, want 1", len(store.created))
	}
}

func TestRecordUpdatesBudgetSpending(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	store := &fakeTransactionStore{}
	svc := NewTransactionService(store, testLogger())

	if _, err := svc.Record(context.Background(), core.Transaction{
		UserID: "u-1", Type: core.Expense, Amount: 25, Category: "Food", Date: day,
	}); err != nil {
		t.Fatalf("Record() expense: %v", err)
	}
	if store.spendingHits != 1 {
		t.Errorf("spending updates = %d, want 1", store.spendingHits)
	}

	// Income rows never touch budget counters.
	if _, err := svc.Record(context.Background(), core.Transaction{
		UserID: "u-1", Type: core.Income, Amount: 1000, Date: day,
	}); err != nil {
		t.Fatalf("Record() income: %v", err)
	}
	if store.spendingHits != 1 {
		t.Errorf("spending updates = %d, want 1 after income", store.spendingHits)
	}
}

func TestRecordSurvivesSpendingFailure(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeTransactionStore{spendingErr: errors.New("no budget row")}
	svc := NewTransactionService(store, testLogger())

	got, err := svc.Record(context.Background(), core.Transaction{
		UserID: "u-1", Type: core.Expense, Amount: 25, Category: "Food", Date: day,
	})
	if err != nil {
		t.Fatalf("Record() = %v, want transaction saved despite counter failure", err)
	}
	if got.Amount != 25 {
		t.Errorf("amount = %v, want 25", got.Amount)
	}
	if len(store.created) != 1 {
		t.Errorf("created = %d rows, want 1", len(store.created))
	}
}

func TestHistoryWindow(t *testing.T) {
	store := &fakeTransactionStore{}
	svc := NewTransactionService(store, testLogger())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.History(context.Background(), "u-1", 12); err != nil {
		t.Fatalf("History() = %v", err)
	}
	want := now.AddDate(0, -12, 0)
	if !store.listFilter.Since.Equal(want) {
		t.Errorf("since = %v, want %v", store.listFilter.Since, want)
	}

	// Zero falls back to a year.
	if _, err := svc.History(context.Background(), "u-1", 0); err != nil {
		t.Fatalf("History() default = %v", err)
	}
	if !store.listFilter.Since.Equal(want) {
		t.Errorf("default since = %v, want %v", store.listFilter.Since, want)
	}
}
