package prediction

import (
	"time"

	"budgetme/internal/core"
)

type monthKey struct {
	year  int
	month time.Month
}

type categoryStat struct {
	total  float64
	count  int
	months map[monthKey]struct{}
}

// history is a transaction set summarized for forecasting. All
// monthly figures divide by the count of distinct calendar months in
// the relevant partition, never by an assumed window length, so sparse
// history does not inflate averages.
type history struct {
	incomeTotal   float64
	incomeMonths  map[monthKey]struct{}
	expenseTotal  float64
	expenseMonths map[monthKey]struct{}
	categories    map[string]*categoryStat
	count         int
}

func summarize(txns []core.Transaction) history {
	h := history{
		incomeMonths:  make(map[monthKey]struct{}),
		expenseMonths: make(map[monthKey]struct{}),
		categories:    make(map[string]*categoryStat),
		count:         len(txns),
	}
	for _, tx := range txns {
		key := monthKey{tx.Date.Year(), tx.Date.Month()}
		switch tx.Type {
		case core.Income:
			h.incomeTotal += tx.Amount
			h.incomeMonths[key] = struct{}{}
		case core.Expense:
			h.expenseTotal += tx.Amount
			h.expenseMonths[key] = struct{}{}

			name := tx.Category
			if name == "" {
				name = core.UncategorizedName
			}
			stat, ok := h.categories[name]
			if !ok {
				stat = &categoryStat{months: make(map[monthKey]struct{})}
				h.categories[name] = stat
			}
			stat.total += tx.Amount
			stat.count++
			stat.months[key] = struct{}{}
		}
	}
	return h
}

func monthlyAverage(total float64, months map[monthKey]struct{}) float64 {
	n := len(months)
	if n < 1 {
		n = 1
	}
	return total / float64(n)
}

// BuildProfile derives a financial profile from raw history. When the
// history has expenses but no income rows, income is synthesized as
// incomeFactor times monthly expenses; the second return value reports
// that estimation.
func BuildProfile(txns []core.Transaction, incomeFactor float64) (core.UserFinancialProfile, bool) {
	h := summarize(txns)

	avgIncome := monthlyAverage(h.incomeTotal, h.incomeMonths)
	avgExpenses := monthlyAverage(h.expenseTotal, h.expenseMonths)

	estimated := false
	if avgIncome == 0 && avgExpenses > 0 {
		avgIncome = avgExpenses * incomeFactor
		estimated = true
	}

	var savingsRate float64
	if avgIncome > 0 {
		savingsRate = (avgIncome - avgExpenses) / avgIncome
	}

	spending := make(map[string]float64, len(h.categories))
	for name, stat := range h.categories {
		spending[name] = monthlyAverage(stat.total, stat.months)
	}

	return core.UserFinancialProfile{
		AvgMonthlyIncome:   avgIncome,
		AvgMonthlyExpenses: avgExpenses,
		SavingsRate:        savingsRate,
		SpendingCategories: spending,
		TransactionCount:   h.count,
	}, estimated
}
