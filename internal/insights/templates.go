package insights

import (
	"fmt"
	"sort"

	"budgetme/internal/core"
)

// Stability labels bucket the savings rate into a plain-language
// verdict. Breakpoints follow the reporting heuristics.
const (
	stabilityExcellent = "excellent"
	stabilityGood      = "good"
	stabilityFair      = "fair"
	stabilityPoor      = "poor"
)

func stabilityLevel(savingsRate float64) string {
	switch {
	case savingsRate >= 0.2:
		return stabilityExcellent
	case savingsRate >= 0.1:
		return stabilityGood
	case savingsRate >= 0:
		return stabilityFair
	default:
		return stabilityPoor
	}
}

// TemplateInsights renders canned narratives from the user's actual
// numbers. Used when every LLM path fails; the figures are real even
// if the prose is not.
func TemplateInsights(result core.PredictionResult) []core.Insight {
	profile := result.Profile
	level := stabilityLevel(profile.SavingsRate)

	insights := []core.Insight{
		{
			Type:  core.InsightTrend,
			Title: "Spending outlook",
			Body: fmt.Sprintf(
				"Your average monthly income is %.2f against %.2f in expenses, a savings rate of %.0f%%. Your financial stability looks %s.",
				profile.AvgMonthlyIncome, profile.AvgMonthlyExpenses, profile.SavingsRate*100, level),
			IsTemplated: true,
		},
	}

	if name, avg := topCategory(profile.SpendingCategories); name != "" {
		insights = append(insights, core.Insight{
			Type:  core.InsightCategory,
			Title: "Largest spending category",
			Body: fmt.Sprintf(
				"%s is your largest expense category at %.2f per month. Reviewing it first gives the biggest potential saving.",
				name, avg),
			IsTemplated: true,
		})
	}

	switch level {
	case stabilityPoor:
		insights = append(insights, core.Insight{
			Type:        core.InsightRisk,
			Title:       "Spending exceeds income",
			Body:        "Your expenses currently exceed your income. Reducing discretionary spending should be the immediate priority.",
			IsTemplated: true,
		})
	default:
		insights = append(insights, core.Insight{
			Type:  core.InsightRisk,
			Title: "Expense concentration",
			Body: fmt.Sprintf(
				"Spending is spread across %d categories. Concentration in a single category makes your budget sensitive to price changes there.",
				len(profile.SpendingCategories)),
			IsTemplated: true,
		})
	}

	insights = append(insights,
		core.Insight{
			Type:  core.InsightOpportunity,
			Title: "Savings opportunity",
			Body: fmt.Sprintf(
				"Raising your savings rate by five percentage points would set aside an extra %.2f each month.",
				profile.AvgMonthlyIncome*0.05),
			IsTemplated: true,
		},
		core.Insight{
			Type:  core.InsightGoal,
			Title: "Goal funding",
			Body: fmt.Sprintf(
				"At your current savings rate you have roughly %.2f per month available for goal contributions.",
				maxZero(profile.AvgMonthlyIncome-profile.AvgMonthlyExpenses)),
			IsTemplated: true,
		},
	)
	return insights
}

func topCategory(categories map[string]float64) (string, float64) {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	// Deterministic winner when two categories tie.
	sort.Strings(names)

	var (
		top string
		max float64
	)
	for _, name := range names {
		if categories[name] > max {
			top, max = name, categories[name]
		}
	}
	return top, max
}

func maxZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
