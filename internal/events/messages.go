// Package events publishes domain events over AMQP and feeds them back
// to in-process subscribers.
package events

import (
	"encoding/json"
	"time"

	"budgetme/internal/core"
)

// Routing keys on the topic exchange.
const (
	KeyPredictionGenerated = "prediction.generated"
	KeyBudgetAlert         = "budget.alert"
	KeyGoalCompleted       = "goal.completed"
)

// PredictionGeneratedMessage announces a stored forecast. Consumers
// fetch the full result from the database; the message carries only
// the lookup key.
type PredictionGeneratedMessage struct {
	UserID    string         `json:"user_id"`
	Timeframe core.Timeframe `json:"timeframe"`
	Source    core.Source    `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// BudgetAlertMessage announces a budget that crossed its alert
// threshold.
type BudgetAlertMessage struct {
	UserID          string               `json:"user_id"`
	BudgetID        string               `json:"budget_id"`
	CategoryName    string               `json:"category_name"`
	PercentageUsed  float64              `json:"percentage_used"`
	StatusIndicator core.StatusIndicator `json:"status_indicator"`
	Timestamp       time.Time            `json:"timestamp"`
}

// GoalCompletedMessage announces a goal that reached its target.
type GoalCompletedMessage struct {
	UserID       string    `json:"user_id"`
	GoalID       string    `json:"goal_id"`
	Name         string    `json:"name"`
	TargetAmount float64   `json:"target_amount"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewPredictionGeneratedMessage(result core.PredictionResult) *PredictionGeneratedMessage {
	return &PredictionGeneratedMessage{
		UserID:    result.UserID,
		Timeframe: result.Timeframe,
		Source:    result.Source,
		Timestamp: time.Now(),
	}
}

func NewBudgetAlertMessage(b core.Budget) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:          b.UserID,
		BudgetID:        b.ID,
		CategoryName:    b.CategoryName,
		PercentageUsed:  b.PercentageUsed,
		StatusIndicator: b.StatusIndicator,
		Timestamp:       time.Now(),
	}
}

func NewGoalCompletedMessage(g core.Goal) *GoalCompletedMessage {
	return &GoalCompletedMessage{
		UserID:       g.UserID,
		GoalID:       g.ID,
		Name:         g.Name,
		TargetAmount: g.TargetAmount,
		Timestamp:    time.Now(),
	}
}

func (m *PredictionGeneratedMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }
func (m *BudgetAlertMessage) ToJSON() ([]byte, error)         { return json.Marshal(m) }
func (m *GoalCompletedMessage) ToJSON() ([]byte, error)       { return json.Marshal(m) }

func PredictionGeneratedFromJSON(data []byte) (*PredictionGeneratedMessage, error) {
	var msg PredictionGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
