// Package prediction generates spending forecasts. A remote
// Prophet-style service is the primary source; a deterministic local
// engine covers for it when it is unreachable.
package prediction

import "budgetme/internal/core"

// ForecastRequest is the payload sent to the forecasting service.
type ForecastRequest struct {
	UserID            string            `json:"user_id"`
	TransactionData   []TransactionData `json:"transaction_data"`
	Timeframe         string            `json:"timeframe"`
	SeasonalityMode   string            `json:"seasonality_mode"`
	IncludeCategories bool              `json:"include_categories"`
	IncludeInsights   bool              `json:"include_insights"`
}

// TransactionData is one history row in the wire format the
// forecasting service expects.
type TransactionData struct {
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Category string  `json:"category,omitempty"`
}

// ForecastResponse is the forecasting service's reply.
type ForecastResponse struct {
	Predictions       []core.PredictionPoint           `json:"predictions"`
	CategoryForecasts map[string]core.CategoryForecast `json:"category_forecasts"`
	ModelAccuracy     core.ModelAccuracy               `json:"model_accuracy"`
	UserProfile       core.UserFinancialProfile        `json:"user_profile"`
	ConfidenceScore   float64                          `json:"confidence_score"`
	Insights          []string                         `json:"insights,omitempty"`
}

const dateLayout = "2006-01-02"

// NewForecastRequest converts a transaction history into the wire
// payload.
func NewForecastRequest(userID string, tf core.Timeframe, txns []core.Transaction) ForecastRequest {
	data := make([]TransactionData, 0, len(txns))
	for _, tx := range txns {
		data = append(data, TransactionData{
			Date:     tx.Date.Format(dateLayout),
			Amount:   tx.Amount,
			Type:     string(tx.Type),
			Category: tx.Category,
		})
	}
	return ForecastRequest{
		UserID:            userID,
		TransactionData:   data,
		Timeframe:         string(tf),
		SeasonalityMode:   "multiplicative",
		IncludeCategories: true,
		IncludeInsights:   true,
	}
}
