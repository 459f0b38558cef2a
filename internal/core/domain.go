package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income       TransactionType = "income"
	Expense      TransactionType = "expense"
	Transfer     TransactionType = "transfer"
	Contribution TransactionType = "contribution"
)

const (
	Months3 Timeframe = "months_3"
	Months6 Timeframe = "months_6"
	Year1   Timeframe = "year_1"
)

const (
	GoalNotStarted GoalStatus = "not_started"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalCancelled  GoalStatus = "cancelled"
)

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

const (
	IndicatorHealthy  StatusIndicator = "healthy"
	IndicatorCaution  StatusIndicator = "caution"
	IndicatorWarning  StatusIndicator = "warning"
	IndicatorCritical StatusIndicator = "critical"
)

const (
	PeriodUpcoming PeriodStatus = "upcoming"
	PeriodActive   PeriodStatus = "active"
	PeriodExpired  PeriodStatus = "expired"
)

// UncategorizedName is the category label applied when the bare-table
// fallback tier cannot join category metadata.
const UncategorizedName = "Uncategorized"

type (
	TransactionType string
	Timeframe       string
	GoalStatus      string
	Trend           string
	StatusIndicator string
	PeriodStatus    string

	Transaction struct {
		ID       string
		UserID   string
		Date     time.Time
		Amount   float64
		Type     TransactionType
		Category string
		GoalID   string // optional, set for goal contributions
		Notes    string
	}

	Budget struct {
		ID             string
		UserID         string
		CategoryID     string
		CategoryName   string
		Amount         float64
		Spent          float64
		Period         string
		StartDate      time.Time
		EndDate        time.Time
		AlertThreshold float64

		// Derived fields, supplied by the budget_details view or
		// computed client-side on the fallback tiers.
		Remaining       float64
		PercentageUsed  float64
		StatusIndicator StatusIndicator
		PeriodStatus    PeriodStatus
		DaysRemaining   int
	}

	Goal struct {
		ID            string
		UserID        string
		Name          string
		TargetAmount  float64
		CurrentAmount float64
		Status        GoalStatus
		TargetDate    time.Time
		FamilyID      string
		IsFamilyGoal  bool
		CreatedAt     time.Time

		// Derived fields.
		Remaining       float64
		ProgressPercent float64
	}

	UsageStatus struct {
		UserID       string
		ServiceType  string
		CurrentUsage int
		MaxUsage     int
		ResetDate    time.Time
		Exceeded     bool
		Remaining    int
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyUserID        = errors.New("empty user id")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidTimeframe   = errors.New("invalid timeframe")
	ErrInvalidDateRange   = errors.New("end date must be after start date")
	ErrGoalNotOwned       = errors.New("goal does not belong to user")
	ErrGoalNotActive      = errors.New("goal is not accepting contributions")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidThreshold   = errors.New("alert threshold must be within (0, 1]")
	ErrContributionExcess = errors.New("contribution exceeds goal target")
)

// ContributionExcessError rejects an over-target contribution and
// carries the largest amount the goal can still accept.
type ContributionExcessError struct {
	MaxAllowed float64
}

func (e *ContributionExcessError) Error() string {
	return fmt.Sprintf("contribution exceeds goal target, maximum allowed is %.2f", e.MaxAllowed)
}

func (e *ContributionExcessError) Unwrap() error { return ErrContributionExcess }

// Valid reports whether the timeframe is one of the supported values.
func (tf Timeframe) Valid() bool {
	switch tf {
	case Months3, Months6, Year1:
		return true
	}
	return false
}

// Months returns the forecast horizon in calendar months.
func (tf Timeframe) Months() int {
	switch tf {
	case Months6:
		return 6
	case Year1:
		return 12
	default:
		return 3
	}
}

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer, Contribution:
		return true
	}
	return false
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.UserID) == "" {
		return ErrEmptyUserID
	}
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	// Amounts are stored unsigned; direction comes from the type.
	if tx.Amount <= 0 {
		return ErrInvalidAmount
	}
	if tx.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if tx.Type == Contribution && strings.TrimSpace(tx.GoalID) == "" {
		return errors.New("contribution requires a goal id")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUserID
	}
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if b.AlertThreshold <= 0 || b.AlertThreshold > 1 {
		return ErrInvalidThreshold
	}
	if !b.EndDate.IsZero() && !b.EndDate.After(b.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.TargetAmount <= 0 {
		return ErrInvalidAmount
	}
	if g.CurrentAmount < 0 || g.CurrentAmount > g.TargetAmount {
		return ErrInvalidAmount
	}
	return nil
}

// ComputeStatusIndicator maps budget utilization to a display indicator.
// Breakpoints are 50%, the budget's alert threshold and 100%.
func ComputeStatusIndicator(spent, amount, alertThreshold float64) StatusIndicator {
	if amount <= 0 {
		return IndicatorCritical
	}
	ratio := spent / amount
	switch {
	case ratio >= 1:
		return IndicatorCritical
	case ratio >= alertThreshold:
		return IndicatorWarning
	case ratio >= 0.5:
		return IndicatorCaution
	default:
		return IndicatorHealthy
	}
}

// ComputePeriodStatus classifies a budget period relative to now.
func ComputePeriodStatus(start, end, now time.Time) PeriodStatus {
	if now.Before(start) {
		return PeriodUpcoming
	}
	if !end.IsZero() && now.After(end) {
		return PeriodExpired
	}
	return PeriodActive
}

// DaysUntil returns whole days from now until end, never negative.
func DaysUntil(end, now time.Time) int {
	if end.IsZero() || !end.After(now) {
		return 0
	}
	return int(end.Sub(now).Hours() / 24)
}

// Enrich fills every derived budget field the database view would have
// supplied, so callers cannot tell which tier served them.
func (b *Budget) Enrich(now time.Time) {
	b.Remaining = b.Amount - b.Spent
	if b.Amount > 0 {
		b.PercentageUsed = b.Spent / b.Amount * 100
	} else {
		b.PercentageUsed = 0
	}
	b.StatusIndicator = ComputeStatusIndicator(b.Spent, b.Amount, b.AlertThreshold)
	b.PeriodStatus = ComputePeriodStatus(b.StartDate, b.EndDate, now)
	b.DaysRemaining = DaysUntil(b.EndDate, now)
	if strings.TrimSpace(b.CategoryName) == "" {
		b.CategoryName = UncategorizedName
	}
}

// Enrich fills the goal's derived progress fields.
func (g *Goal) Enrich() {
	g.Remaining = g.TargetAmount - g.CurrentAmount
	if g.Remaining < 0 {
		g.Remaining = 0
	}
	if g.TargetAmount > 0 {
		g.ProgressPercent = g.CurrentAmount / g.TargetAmount * 100
	}
}
