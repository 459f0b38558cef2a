// Package reports computes in-memory rollups over already-fetched
// rows. Everything here is a pure function of its inputs.
package reports

import (
	"sort"

	"budgetme/internal/core"
)

type (
	// CategorySlice is one category's share of total spending.
	CategorySlice struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
		Percent  float64 `json:"percent"`
	}

	// MemberContribution attributes goal funding to one family member.
	MemberContribution struct {
		UserID  string  `json:"user_id"`
		Total   float64 `json:"total"`
		Percent float64 `json:"percent"`
		Count   int     `json:"count"`
	}

	// HealthScore is the weighted financial health heuristic. Each
	// component is independently bucketed into fixed point values; the
	// total is their plain sum.
	HealthScore struct {
		Score             int     `json:"score"`
		Rating            string  `json:"rating"`
		SavingsPoints     int     `json:"savings_points"`
		UtilizationPoints int     `json:"utilization_points"`
		ExpensePoints     int     `json:"expense_points"`
		SavingsRate       float64 `json:"savings_rate"`
		BudgetUtilization float64 `json:"budget_utilization"`
		ExpenseRatio      float64 `json:"expense_ratio"`
	}
)

// SpendingBreakdown groups expense transactions by category and
// computes each category's share. Sorted by total, largest first.
func SpendingBreakdown(txns []core.Transaction) []CategorySlice {
	totals := make(map[string]float64)
	var sum float64
	for _, tx := range txns {
		if tx.Type != core.Expense {
			continue
		}
		name := tx.Category
		if name == "" {
			name = core.UncategorizedName
		}
		totals[name] += tx.Amount
		sum += tx.Amount
	}

	out := make([]CategorySlice, 0, len(totals))
	for name, total := range totals {
		slice := CategorySlice{Category: name, Total: total}
		if sum > 0 {
			slice.Percent = total / sum * 100
		}
		out = append(out, slice)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ContributionsByMember attributes contribution transactions to the
// members who made them. Sorted by total, largest first.
func ContributionsByMember(txns []core.Transaction) []MemberContribution {
	totals := make(map[string]*MemberContribution)
	var sum float64
	for _, tx := range txns {
		if tx.Type != core.Contribution {
			continue
		}
		mc, ok := totals[tx.UserID]
		if !ok {
			mc = &MemberContribution{UserID: tx.UserID}
			totals[tx.UserID] = mc
		}
		mc.Total += tx.Amount
		mc.Count++
		sum += tx.Amount
	}

	out := make([]MemberContribution, 0, len(totals))
	for _, mc := range totals {
		if sum > 0 {
			mc.Percent = mc.Total / sum * 100
		}
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func savingsPoints(rate float64) int {
	switch {
	case rate >= 0.2:
		return 40
	case rate >= 0.1:
		return 30
	case rate >= 0:
		return 15
	default:
		return 5
	}
}

func utilizationPoints(utilization float64) int {
	switch {
	case utilization <= 0.75:
		return 30
	case utilization <= 0.9:
		return 20
	case utilization <= 1:
		return 10
	default:
		return 0
	}
}

func expensePoints(ratio float64) int {
	switch {
	case ratio <= 0.5:
		return 30
	case ratio <= 0.7:
		return 20
	case ratio <= 0.9:
		return 10
	default:
		return 5
	}
}

func rating(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	default:
		return "poor"
	}
}

// ComputeHealthScore buckets the savings rate, overall budget
// utilization and expense-to-income ratio into fixed points and sums
// them.
func ComputeHealthScore(profile core.UserFinancialProfile, budgets []core.Budget) HealthScore {
	var budgeted, spent float64
	for _, b := range budgets {
		budgeted += b.Amount
		spent += b.Spent
	}

	utilization := 0.0
	if budgeted > 0 {
		utilization = spent / budgeted
	}
	expenseRatio := 0.0
	if profile.AvgMonthlyIncome > 0 {
		expenseRatio = profile.AvgMonthlyExpenses / profile.AvgMonthlyIncome
	}

	hs := HealthScore{
		SavingsPoints:     savingsPoints(profile.SavingsRate),
		UtilizationPoints: utilizationPoints(utilization),
		ExpensePoints:     expensePoints(expenseRatio),
		SavingsRate:       profile.SavingsRate,
		BudgetUtilization: utilization,
		ExpenseRatio:      expenseRatio,
	}
	hs.Score = hs.SavingsPoints + hs.UtilizationPoints + hs.ExpensePoints
	hs.Rating = rating(hs.Score)
	return hs
}
