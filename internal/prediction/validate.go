package prediction

import (
	"context"
	"fmt"

	"budgetme/internal/core"
	"budgetme/internal/log"
)

// Validation rule names, emitted in log events and result warnings.
const (
	RuleExceedsBaseline = "prediction_exceeds_3x_baseline"
	RuleGrowthExcessive = "growth_rate_exceeds_50_percent"
	RuleGrowthElevated  = "growth_rate_elevated"
	RuleExpensesOutpace = "expenses_exceed_150_percent_income"
)

// Validate compares each predicted value against its historical
// baseline and emits tiered log events for anomalies. It never alters
// the numbers; the returned warnings are attached to the result so
// operators and clients both see them.
func Validate(ctx context.Context, logger *log.Logger, result core.PredictionResult) []string {
	var warnings []string
	baseline := result.Profile.AvgMonthlyExpenses

	for _, p := range result.Points {
		if baseline <= 0 {
			break
		}
		growthPct := (p.Predicted - baseline) / baseline * 100

		if p.Predicted > 3*baseline {
			logger.ErrorContext(ctx, "prediction far above historical baseline",
				log.FieldUserID, result.UserID,
				log.FieldValidationRule, RuleExceedsBaseline,
				log.FieldBaseline, baseline,
				log.FieldPredicted, p.Predicted,
			)
			warnings = append(warnings, RuleExceedsBaseline)
		}

		switch {
		case growthPct > 50:
			logger.ErrorContext(ctx, "prediction growth rate exceeds limit",
				log.FieldUserID, result.UserID,
				log.FieldValidationRule, RuleGrowthExcessive,
				log.FieldGrowthPercent, growthPct,
				log.FieldBaseline, baseline,
				log.FieldPredicted, p.Predicted,
			)
			warnings = append(warnings, fmt.Sprintf("%s: %.2f%%", RuleGrowthExcessive, growthPct))
		case growthPct >= 20:
			logger.WarnContext(ctx, "prediction growth rate elevated",
				log.FieldUserID, result.UserID,
				log.FieldValidationRule, RuleGrowthElevated,
				log.FieldGrowthPercent, growthPct,
			)
			warnings = append(warnings, fmt.Sprintf("%s: %.2f%%", RuleGrowthElevated, growthPct))
		case growthPct > 0:
			logger.InfoContext(ctx, "prediction growth within expected range",
				log.FieldUserID, result.UserID,
				log.FieldGrowthPercent, growthPct,
			)
		}
	}

	if income := result.Profile.AvgMonthlyIncome; income > 0 {
		var totalExpenses float64
		for _, p := range result.Points {
			totalExpenses += p.Predicted
		}
		months := len(result.Points)
		if months > 0 && totalExpenses/float64(months) > 1.5*income {
			logger.WarnContext(ctx, "forecast expenses outpace income",
				log.FieldUserID, result.UserID,
				log.FieldValidationRule, RuleExpensesOutpace,
				log.FieldAmount, totalExpenses/float64(months),
			)
			warnings = append(warnings, RuleExpensesOutpace)
		}
	}

	return warnings
}
