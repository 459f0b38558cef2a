package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldSuccess        = "success"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldUserID         = "user_id"
	FieldFamilyID       = "family_id"
	FieldTier           = "tier"
	FieldTimeframe      = "timeframe"
	FieldCategory       = "category"
	FieldGoalID         = "goal_id"
	FieldBudgetID       = "budget_id"
	FieldPredictionID   = "prediction_id"
	FieldAmount         = "amount"
	FieldValidationRule = "validation_rule"
	FieldGrowthPercent  = "growth_percent"
	FieldBaseline       = "baseline"
	FieldPredicted      = "predicted"
	FieldUsageCount     = "usage_count"
	FieldResetDate      = "reset_date"
	FieldEndpoint       = "endpoint"
	FieldCacheKey       = "cache_key"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStorage    = "storage"
	ComponentBudget     = "budget"
	ComponentGoal       = "goal"
	ComponentTxn        = "transaction"
	ComponentPrediction = "prediction"
	ComponentInsights   = "insights"
	ComponentEvents     = "events"
	ComponentWorker     = "worker"
	ComponentCache      = "cache"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpForecast   = "forecast"
	OpFallback   = "fallback"
	OpContribute = "contribute"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithUser adds the owning user field
func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTier records which fallback tier served a request
func (f LogFields) WithTier(tier string) LogFields {
	f[FieldTier] = tier
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithDuration adds elapsed time in milliseconds
func (f LogFields) WithDuration(ms int64) LogFields {
	f[FieldDuration] = ms
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
