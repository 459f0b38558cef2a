package core

import (
	"errors"
	"testing"
	"time"
)

func TestComputeStatusIndicator(t *testing.T) {
	tests := []struct {
		name      string
		spent     float64
		amount    float64
		threshold float64
		want      StatusIndicator
	}{
		{"under half", 100, 500, 0.8, IndicatorHealthy},
		{"exactly half", 250, 500, 0.8, IndicatorCaution},
		{"between half and threshold", 300, 500, 0.8, IndicatorCaution},
		{"at threshold", 400, 500, 0.8, IndicatorWarning},
		{"over threshold", 450, 500, 0.8, IndicatorWarning},
		{"at limit", 500, 500, 0.8, IndicatorCritical},
		{"over limit", 600, 500, 0.8, IndicatorCritical},
		{"zero amount", 10, 0, 0.8, IndicatorCritical},
		{"low threshold beats caution", 280, 500, 0.55, IndicatorWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatusIndicator(tt.spent, tt.amount, tt.threshold)
			if got != tt.want {
				t.Errorf("ComputeStatusIndicator(%v, %v, %v) = %v, want %v",
					tt.spent, tt.amount, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestComputePeriodStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  PeriodStatus
	}{
		{"active", now.AddDate(0, -1, 0), now.AddDate(0, 1, 0), PeriodActive},
		{"upcoming", now.AddDate(0, 0, 1), now.AddDate(0, 1, 0), PeriodUpcoming},
		{"expired", now.AddDate(0, -2, 0), now.AddDate(0, -1, 0), PeriodExpired},
		{"open ended", now.AddDate(0, -1, 0), time.Time{}, PeriodActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePeriodStatus(tt.start, tt.end, now)
			if got != tt.want {
				t.Errorf("ComputePeriodStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBudgetEnrich(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	b := Budget{
		Amount:         1000,
		Spent:          850,
		AlertThreshold: 0.8,
		StartDate:      now.AddDate(0, -1, 0),
		EndDate:        now.AddDate(0, 0, 10),
	}
	b.Enrich(now)

	if b.Remaining != 150 {
		t.Errorf("Remaining = %v, want 150", b.Remaining)
	}
	if b.PercentageUsed != 85 {
		t.Errorf("PercentageUsed = %v, want 85", b.PercentageUsed)
	}
	if b.StatusIndicator != IndicatorWarning {
		t.Errorf("StatusIndicator = %v, want %v", b.StatusIndicator, IndicatorWarning)
	}
	if b.PeriodStatus != PeriodActive {
		t.Errorf("PeriodStatus = %v, want %v", b.PeriodStatus, PeriodActive)
	}
	if b.DaysRemaining != 10 {
		t.Errorf("DaysRemaining = %v, want 10", b.DaysRemaining)
	}
	if b.CategoryName != UncategorizedName {
		t.Errorf("CategoryName = %q, want %q", b.CategoryName, UncategorizedName)
	}
}

func TestGoalEnrich(t *testing.T) {
	g := Goal{TargetAmount: 2000, CurrentAmount: 500}
	g.Enrich()
	if g.Remaining != 1500 {
		t.Errorf("Remaining = %v, want 1500", g.Remaining)
	}
	if g.ProgressPercent != 25 {
		t.Errorf("ProgressPercent = %v, want 25", g.ProgressPercent)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		UserID: "u1",
		Type:   Expense,
		Amount: 42.50,
		Date:   time.Now(),
	}
	tests := []struct {
		name    string
		mutate  func(tx *Transaction)
		wantErr error
	}{
		{"valid", func(tx *Transaction) {}, nil},
		{"empty user", func(tx *Transaction) { tx.UserID = " " }, ErrEmptyUserID},
		{"bad type", func(tx *Transaction) { tx.Type = "refund" }, ErrInvalidType},
		{"zero amount", func(tx *Transaction) { tx.Amount = 0 }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = -5 }, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("contribution without goal", func(t *testing.T) {
		tx := valid
		tx.Type = Contribution
		if err := tx.Validate(); err == nil {
			t.Error("Validate() = nil, want error for contribution without goal id")
		}
	})
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name       string
		historical float64
		predicted  float64
		want       Trend
	}{
		{"clear increase", 100, 110, TrendIncreasing},
		{"clear decrease", 100, 90, TrendDecreasing},
		{"within band up", 100, 102, TrendStable},
		{"within band down", 100, 98, TrendStable},
		{"exactly three percent", 100, 103, TrendStable},
		{"zero baseline growth", 0, 50, TrendIncreasing},
		{"zero baseline flat", 0, 0, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrend(tt.historical, tt.predicted); got != tt.want {
				t.Errorf("ClassifyTrend(%v, %v) = %v, want %v", tt.historical, tt.predicted, got, tt.want)
			}
		})
	}
}

func TestServiceErrorCodes(t *testing.T) {
	reset := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	err := NewQuotaError(5, 5, reset)

	if !IsCode(err, CodeQuotaExceeded) {
		t.Error("IsCode(CodeQuotaExceeded) = false, want true")
	}
	if err.Recoverable {
		t.Error("quota error should not be recoverable")
	}
	if got := err.Context["max_usage"]; got != 5 {
		t.Errorf("Context[max_usage] = %v, want 5", got)
	}

	wrapped := NewFetchError("upstream failed", errors.New("connection refused"))
	var se *ServiceError
	if !errors.As(wrapped, &se) {
		t.Fatal("errors.As failed on wrapped fetch error")
	}
	if !se.Recoverable {
		t.Error("fetch error should be recoverable")
	}

	plain := errors.New("plain")
	if got := AsServiceError(plain); got.Code != CodeInternal {
		t.Errorf("AsServiceError(plain).Code = %q, want %q", got.Code, CodeInternal)
	}
}
