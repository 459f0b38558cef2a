package prediction

import (
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

func testEngine() *Engine {
	return NewEngine(0.025, 1.20, testLogger())
}

func expense(date time.Time, amount float64, category string) core.Transaction {
	return core.Transaction{
		UserID: "u1", Date: date, Amount: amount,
		Type: core.Expense, Category: category,
	}
}

func income(date time.Time, amount float64) core.Transaction {
	return core.Transaction{
		UserID: "u1", Date: date, Amount: amount, Type: core.Income,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestForecast_Deterministic(t *testing.T) {
	now := day(2025, 6, 15)
	txns := []core.Transaction{
		income(day(2025, 3, 1), 3000),
		expense(day(2025, 3, 10), 800, "Groceries"),
		income(day(2025, 4, 1), 3000),
		expense(day(2025, 4, 12), 900, "Groceries"),
		expense(day(2025, 5, 3), 150, "Transport"),
	}

	first := testEngine().Forecast("u1", core.Months3, txns, now)
	second := testEngine().Forecast("u1", core.Months3, txns, now)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated forecasts on identical input differ")
	}
}

func TestForecast_GrowthFactor(t *testing.T) {
	// A single expense month gives a clean baseline; each point i must
	// equal base * (1 + annual/12 * i).
	now := day(2025, 6, 15)
	txns := []core.Transaction{
		expense(day(2025, 5, 1), 500, "Rent"),
		expense(day(2025, 5, 2), 250, "Food"),
		expense(day(2025, 5, 3), 250, "Food"),
	}
	result := testEngine().Forecast("u1", core.Year1, txns, now)

	if len(result.Points) != 12 {
		t.Fatalf("points = %d, want 12", len(result.Points))
	}
	base := 1000.0
	monthly := 0.025 / 12
	for i, p := range result.Points {
		want := base * (1 + monthly*float64(i+1))
		if math.Abs(p.Predicted-want) > 1e-9 {
			t.Errorf("point %d predicted = %v, want %v", i+1, p.Predicted, want)
		}
		if p.Upper <= p.Predicted || p.Lower >= p.Predicted {
			t.Errorf("point %d interval [%v, %v] does not bracket %v", i+1, p.Lower, p.Upper, p.Predicted)
		}
		wantDate := day(2025, 6, 1).AddDate(0, i+1, 0)
		if !p.Date.Equal(wantDate) {
			t.Errorf("point %d date = %v, want %v", i+1, p.Date, wantDate)
		}
	}
	if result.Source != core.SourceFallback {
		t.Errorf("Source = %v, want %v", result.Source, core.SourceFallback)
	}
}

func TestForecast_MonthlyNormalization(t *testing.T) {
	// 300 across 3 distinct months must average 100, not 300.
	now := day(2025, 6, 15)
	txns := []core.Transaction{
		expense(day(2025, 2, 5), 100, "Food"),
		expense(day(2025, 3, 5), 100, "Food"),
		expense(day(2025, 4, 5), 100, "Food"),
	}
	result := testEngine().Forecast("u1", core.Months3, txns, now)

	fc, ok := result.CategoryForecasts["Food"]
	if !ok {
		t.Fatal("missing Food category forecast")
	}
	if fc.HistoricalAverage != 100 {
		t.Errorf("HistoricalAverage = %v, want 100", fc.HistoricalAverage)
	}
	if fc.DataPoints != 3 {
		t.Errorf("DataPoints = %v, want 3", fc.DataPoints)
	}
}

func TestForecast_SparseMonthsDoNotInflate(t *testing.T) {
	// Two transactions in one month: the monthly average divides by 1
	// month, not by the number of rows.
	txns := []core.Transaction{
		expense(day(2025, 5, 1), 60, "Food"),
		expense(day(2025, 5, 20), 40, "Food"),
	}
	profile, _ := BuildProfile(txns, 1.20)
	if profile.AvgMonthlyExpenses != 100 {
		t.Errorf("AvgMonthlyExpenses = %v, want 100", profile.AvgMonthlyExpenses)
	}
	if profile.SpendingCategories["Food"] != 100 {
		t.Errorf("Food average = %v, want 100", profile.SpendingCategories["Food"])
	}
}

func TestBuildProfile_IncomeSynthesis(t *testing.T) {
	txns := []core.Transaction{
		expense(day(2025, 4, 1), 500, "Rent"),
		expense(day(2025, 5, 1), 500, "Rent"),
	}
	profile, estimated := BuildProfile(txns, 1.20)

	if !estimated {
		t.Error("estimated = false, want true when no income rows exist")
	}
	if profile.AvgMonthlyIncome != 600 {
		t.Errorf("AvgMonthlyIncome = %v, want 600 (120%% of expenses)", profile.AvgMonthlyIncome)
	}
	savings := (600.0 - 500.0) / 600.0
	if math.Abs(profile.SavingsRate-savings) > 1e-9 {
		t.Errorf("SavingsRate = %v, want %v", profile.SavingsRate, savings)
	}
}

func TestBuildProfile_RealIncomeNotOverwritten(t *testing.T) {
	txns := []core.Transaction{
		income(day(2025, 5, 1), 2000),
		expense(day(2025, 5, 10), 500, "Rent"),
	}
	profile, estimated := BuildProfile(txns, 1.20)
	if estimated {
		t.Error("estimated = true for history with real income")
	}
	if profile.AvgMonthlyIncome != 2000 {
		t.Errorf("AvgMonthlyIncome = %v, want 2000", profile.AvgMonthlyIncome)
	}
	if profile.TransactionCount != 2 {
		t.Errorf("TransactionCount = %v, want 2", profile.TransactionCount)
	}
}

func TestForecast_EmptyHistory(t *testing.T) {
	result := testEngine().Forecast("u1", core.Months3, nil, day(2025, 6, 1))
	if len(result.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(result.Points))
	}
	for _, p := range result.Points {
		if p.Predicted != 0 {
			t.Errorf("predicted = %v, want 0 for empty history", p.Predicted)
		}
	}
}
