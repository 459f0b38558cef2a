package prediction

import (
	"math"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/log"
)

const (
	pointConfidence   = 0.8
	overallConfidence = 0.7
	intervalMargin    = 0.1
)

// Engine computes a deterministic local forecast from raw history.
// It is the fallback path when the forecasting service is down, so it
// must produce identical output for identical input and clock. The
// growth and income constants carry no empirical derivation; they are
// configured, not tuned.
type Engine struct {
	AnnualGrowth float64
	IncomeFactor float64
	Log          *log.Logger
}

func NewEngine(annualGrowth, incomeFactor float64, logger *log.Logger) *Engine {
	return &Engine{
		AnnualGrowth: annualGrowth,
		IncomeFactor: incomeFactor,
		Log:          logger.WithComponent(log.ComponentPrediction),
	}
}

// Forecast projects one point per future month using compound monthly
// growth of AnnualGrowth/12 over the baseline monthly expense figure.
func (e *Engine) Forecast(userID string, tf core.Timeframe, txns []core.Transaction, now time.Time) core.PredictionResult {
	profile, estimated := BuildProfile(txns, e.IncomeFactor)
	if estimated {
		e.Log.Info("income estimated from expense history",
			log.FieldUserID, userID,
			log.FieldAmount, profile.AvgMonthlyIncome,
		)
	}

	monthlyRate := e.AnnualGrowth / 12
	base := profile.AvgMonthlyExpenses
	horizon := tf.Months()

	points := make([]core.PredictionPoint, 0, horizon)
	for i := 1; i <= horizon; i++ {
		predicted := base * (1 + monthlyRate*float64(i))
		margin := intervalMargin * math.Abs(predicted)
		points = append(points, core.PredictionPoint{
			Date:       monthStart(now, i),
			Predicted:  predicted,
			Upper:      predicted + margin,
			Lower:      predicted - margin,
			Trend:      predicted,
			Confidence: pointConfidence,
		})
	}

	h := summarize(txns)
	forecasts := make(map[string]core.CategoryForecast, len(h.categories))
	for name, stat := range h.categories {
		avg := monthlyAverage(stat.total, stat.months)
		predicted := avg * (1 + monthlyRate*float64(horizon))
		forecasts[name] = core.CategoryForecast{
			HistoricalAverage: avg,
			PredictedAverage:  predicted,
			Confidence:        overallConfidence,
			Trend:             core.ClassifyTrend(avg, predicted),
			DataPoints:        stat.count,
		}
	}

	return core.PredictionResult{
		UserID:            userID,
		Timeframe:         tf,
		Points:            points,
		CategoryForecasts: forecasts,
		Accuracy:          core.ModelAccuracy{DataPoints: len(txns)},
		Profile:           profile,
		OverallConfidence: overallConfidence,
		Source:            core.SourceFallback,
		GeneratedAt:       now,
	}
}

// monthStart returns the first day of the i-th month after now.
func monthStart(now time.Time, i int) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
}
