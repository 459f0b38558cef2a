package core

import "time"

// Source identifies which branch of the forecast cascade produced a
// prediction result.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type (
	// PredictionPoint is a single forecasted value with its confidence
	// interval and trend component.
	PredictionPoint struct {
		Date       time.Time `json:"date"`
		Predicted  float64   `json:"predicted"`
		Upper      float64   `json:"upper"`
		Lower      float64   `json:"lower"`
		Trend      float64   `json:"trend"`
		Confidence float64   `json:"confidence"`
	}

	// CategoryForecast summarizes spending expectations for one category.
	CategoryForecast struct {
		HistoricalAverage float64 `json:"historical_average"`
		PredictedAverage  float64 `json:"predicted_average"`
		Confidence        float64 `json:"confidence"`
		Trend             Trend   `json:"trend"`
		DataPoints        int     `json:"data_points"`
	}

	// ModelAccuracy carries backtest error metrics for a forecast model.
	ModelAccuracy struct {
		MAE        float64 `json:"mae"`
		MAPE       float64 `json:"mape"`
		RMSE       float64 `json:"rmse"`
		DataPoints int     `json:"data_points"`
	}

	// UserFinancialProfile is the aggregate view of a user's recent
	// financial behaviour that drives forecasting and insights.
	UserFinancialProfile struct {
		AvgMonthlyIncome   float64            `json:"avg_monthly_income"`
		AvgMonthlyExpenses float64            `json:"avg_monthly_expenses"`
		SavingsRate        float64            `json:"savings_rate"`
		SpendingCategories map[string]float64 `json:"spending_categories"`
		TransactionCount   int                `json:"transaction_count"`
	}

	// PredictionResult is the full forecast payload for one user and
	// timeframe.
	PredictionResult struct {
		UserID            string                      `json:"user_id"`
		Timeframe         Timeframe                   `json:"timeframe"`
		Points            []PredictionPoint           `json:"points"`
		CategoryForecasts map[string]CategoryForecast `json:"category_forecasts"`
		Accuracy          ModelAccuracy               `json:"accuracy"`
		Profile           UserFinancialProfile        `json:"profile"`
		OverallConfidence float64                     `json:"overall_confidence"`
		Source            Source                      `json:"source"`
		Warnings          []string                    `json:"warnings,omitempty"`
		GeneratedAt       time.Time                   `json:"generated_at"`
		ExpiresAt         time.Time                   `json:"expires_at"`
	}

	// Insight is one AI-generated or template-generated observation.
	Insight struct {
		Type        InsightType `json:"type"`
		Title       string      `json:"title"`
		Body        string      `json:"body"`
		IsTemplated bool        `json:"is_templated"`
	}

	InsightType string
)

const (
	InsightTrend       InsightType = "trend"
	InsightCategory    InsightType = "category"
	InsightRisk        InsightType = "risk"
	InsightOpportunity InsightType = "opportunity"
	InsightGoal        InsightType = "goal"
)

// ClassifyTrend labels a change between two averages. Movement within
// three percent of the baseline counts as stable.
func ClassifyTrend(historical, predicted float64) Trend {
	if historical == 0 {
		if predicted > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}
	change := (predicted - historical) / historical
	switch {
	case change > 0.03:
		return TrendIncreasing
	case change < -0.03:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
