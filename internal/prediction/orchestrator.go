package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetme/internal/cache"
	"budgetme/internal/core"
	"budgetme/internal/log"
	"budgetme/internal/storage"
)

// memCacheTTL bounds the in-process result cache; the durable 24h
// cache lives in storage.
const memCacheTTL = 5 * time.Minute

type (
	// UsageStore tracks per-user generation quotas.
	UsageStore interface {
		GetUsage(ctx context.Context, userID string, maxUsage int, now time.Time) (core.UsageStatus, error)
		IncrementUsage(ctx context.Context, userID string) (bool, error)
	}

	// ResultStore persists forecasts and the request log.
	ResultStore interface {
		GetCachedPrediction(ctx context.Context, userID string, tf core.Timeframe, now time.Time) (core.PredictionResult, error)
		SavePrediction(ctx context.Context, result core.PredictionResult) error
		LogRequest(ctx context.Context, userID string, tf core.Timeframe) (string, error)
		UpdateRequestStatus(ctx context.Context, requestID, status string, source core.Source, errorCode string) error
	}

	// HistorySource supplies the transaction window forecasts train on.
	HistorySource interface {
		History(ctx context.Context, userID string, monthsBack int) ([]core.Transaction, error)
		SpendingByCategory(ctx context.Context, userID string, monthsBack int) (map[string]float64, error)
	}

	// Forecaster is the remote forecasting service.
	Forecaster interface {
		Generate(ctx context.Context, req ForecastRequest) (ForecastResponse, error)
	}

	// NarrativeSink stores narrative insights the remote service
	// produced alongside a forecast.
	NarrativeSink interface {
		SaveNarrative(ctx context.Context, userID string, tf core.Timeframe, texts []string) error
	}

	// EventPublisher announces completed forecasts.
	EventPublisher interface {
		PublishPredictionGenerated(ctx context.Context, result core.PredictionResult)
	}

	// Config carries the orchestrator's tunables.
	Config struct {
		DailyLimit      int
		MinTransactions int
		CacheTTL        time.Duration
		BranchTimeout   time.Duration
	}

	Orchestrator struct {
		cfg      Config
		usage    UsageStore
		store    ResultStore
		history  HistorySource
		remote   Forecaster
		engine   *Engine
		insights NarrativeSink
		events   EventPublisher
		mem      cache.Cache[core.PredictionResult]
		log      *log.Logger
		now      func() time.Time
	}
)

func NewOrchestrator(cfg Config, usage UsageStore, store ResultStore, history HistorySource,
	remote Forecaster, engine *Engine, insights NarrativeSink, events EventPublisher,
	logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		usage:    usage,
		store:    store,
		history:  history,
		remote:   remote,
		engine:   engine,
		insights: insights,
		events:   events,
		mem:      cache.NewLRUCache[core.PredictionResult](64, memCacheTTL),
		log:      logger.WithComponent(log.ComponentPrediction),
		now:      time.Now,
	}
}

func memKey(userID string, tf core.Timeframe) string {
	return userID + "|" + string(tf)
}

// Generate runs the forecast cascade: quota gate, cache lookup, remote
// call, local fallback. The ordering is fixed; later stages assume the
// earlier ones passed.
func (o *Orchestrator) Generate(ctx context.Context, userID string, tf core.Timeframe, force bool) (core.PredictionResult, error) {
	if !tf.Valid() {
		return core.PredictionResult{}, core.NewValidationError(
			fmt.Sprintf("unknown timeframe %q", tf), core.ErrInvalidTimeframe)
	}

	requestID, err := o.store.LogRequest(ctx, userID, tf)
	if err != nil {
		// The request log is diagnostics, not a gate.
		o.log.WarnContext(ctx, "request logging failed",
			log.FieldUserID, userID,
			log.FieldError, err.Error(),
		)
	}

	now := o.now()
	usage, err := o.usage.GetUsage(ctx, userID, o.cfg.DailyLimit, now)
	if err != nil {
		o.closeRequest(ctx, requestID, "failed", "", core.CodeFetch)
		return core.PredictionResult{}, core.NewFetchError("quota lookup failed", err)
	}
	if usage.Exceeded {
		o.log.InfoContext(ctx, "prediction quota exhausted",
			log.FieldUserID, userID,
			log.FieldUsageCount, usage.CurrentUsage,
			log.FieldResetDate, usage.ResetDate.Format(time.RFC3339),
		)
		o.closeRequest(ctx, requestID, "rejected", "", core.CodeQuotaExceeded)
		return core.PredictionResult{}, core.NewQuotaError(usage.CurrentUsage, usage.MaxUsage, usage.ResetDate)
	}

	if !force {
		if cached, ok := o.lookupCached(ctx, userID, tf, now); ok {
			o.closeRequest(ctx, requestID, "completed", core.SourceCache, "")
			return cached, nil
		}
	}

	txns, err := o.history.History(ctx, userID, 12)
	if err != nil {
		o.closeRequest(ctx, requestID, "failed", "", core.CodeFetch)
		return core.PredictionResult{}, core.NewFetchError("transaction history unavailable", err)
	}
	if len(txns) < o.cfg.MinTransactions {
		o.closeRequest(ctx, requestID, "failed", "", core.CodeInsufficientData)
		return core.PredictionResult{}, core.NewInsufficientDataError(len(txns), o.cfg.MinTransactions)
	}

	result, narrative := o.forecast(ctx, userID, tf, txns, now)
	result.Warnings = Validate(ctx, o.log, result)
	result.ExpiresAt = now.Add(o.cfg.CacheTTL)

	if err := o.store.SavePrediction(ctx, result); err != nil {
		// The user still gets the forecast; the quota is only charged
		// for persisted results.
		o.log.ErrorContext(ctx, "prediction persistence failed",
			log.FieldUserID, userID,
			log.FieldError, err.Error(),
		)
		o.closeRequest(ctx, requestID, "completed", result.Source, core.CodeInternal)
		return result, nil
	}

	if ok, err := o.usage.IncrementUsage(ctx, userID); err != nil {
		o.log.WarnContext(ctx, "usage increment failed",
			log.FieldUserID, userID,
			log.FieldError, err.Error(),
		)
	} else if !ok {
		o.log.WarnContext(ctx, "usage increment rejected after generation",
			log.FieldUserID, userID,
		)
	}

	o.mem.Set(memKey(userID, tf), result)

	if len(narrative) > 0 && o.insights != nil {
		if err := o.insights.SaveNarrative(ctx, userID, tf, narrative); err != nil {
			o.log.WarnContext(ctx, "narrative insight storage failed",
				log.FieldUserID, userID,
				log.FieldError, err.Error(),
			)
		}
	}
	if o.events != nil {
		o.events.PublishPredictionGenerated(ctx, result)
	}

	o.closeRequest(ctx, requestID, "completed", result.Source, "")
	o.log.InfoContext(ctx, "forecast generated",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpForecast,
		log.FieldTimeframe, string(tf),
		"source", string(result.Source),
		"points", len(result.Points),
	)
	return result, nil
}

// lookupCached checks the in-process cache, then the durable one.
func (o *Orchestrator) lookupCached(ctx context.Context, userID string, tf core.Timeframe, now time.Time) (core.PredictionResult, bool) {
	key := memKey(userID, tf)
	if hit, ok := o.mem.Get(key); ok {
		hit.Source = core.SourceCache
		return hit, true
	}

	stored, err := o.store.GetCachedPrediction(ctx, userID, tf, now)
	if err != nil {
		if !errors.Is(err, storage.ErrNoCachedPrediction) {
			o.log.WarnContext(ctx, "cached prediction lookup failed",
				log.FieldUserID, userID,
				log.FieldError, err.Error(),
			)
		}
		return core.PredictionResult{}, false
	}

	stored.Source = core.SourceCache
	o.mem.Set(key, stored)
	return stored, true
}

// forecast tries the remote service and falls through to the local
// engine on any failure. A timed-out remote call is treated the same
// as a failed one.
func (o *Orchestrator) forecast(ctx context.Context, userID string, tf core.Timeframe, txns []core.Transaction, now time.Time) (core.PredictionResult, []string) {
	resp, err := o.remote.Generate(ctx, NewForecastRequest(userID, tf, txns))
	if err != nil {
		o.log.WarnContext(ctx, "remote forecast failed, using local engine",
			log.FieldUserID, userID,
			log.FieldTimeframe, string(tf),
			log.FieldOperation, log.OpFallback,
			log.FieldError, err.Error(),
		)
		return o.engine.Forecast(userID, tf, txns, now), nil
	}

	return core.PredictionResult{
		UserID:            userID,
		Timeframe:         tf,
		Points:            resp.Predictions,
		CategoryForecasts: resp.CategoryForecasts,
		Accuracy:          resp.ModelAccuracy,
		Profile:           resp.UserProfile,
		OverallConfidence: resp.ConfidenceScore,
		Source:            core.SourceRemote,
		GeneratedAt:       now,
	}, resp.Insights
}

func (o *Orchestrator) closeRequest(ctx context.Context, requestID, status string, source core.Source, errorCode string) {
	if requestID == "" {
		return
	}
	if err := o.store.UpdateRequestStatus(ctx, requestID, status, source, errorCode); err != nil {
		o.log.WarnContext(ctx, "request status update failed",
			log.FieldError, err.Error(),
		)
	}
}

// Overview is the dashboard payload assembled from independent
// branches. Each branch is time-boxed on its own so one slow source
// cannot hold up the rest; a failed branch leaves its field empty.
type Overview struct {
	Prediction *core.PredictionResult `json:"prediction,omitempty"`
	Usage      *core.UsageStatus      `json:"usage,omitempty"`
	Spending   map[string]float64     `json:"spending_by_category,omitempty"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// BuildOverview fans out the prediction, quota and spending fetches
// and joins them into one response.
func (o *Orchestrator) BuildOverview(ctx context.Context, userID string, tf core.Timeframe) Overview {
	var (
		ov       Overview
		warnings [3]string
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		branchCtx, cancel := context.WithTimeout(ctx, o.cfg.BranchTimeout)
		defer cancel()
		result, err := o.Generate(branchCtx, userID, tf, false)
		if err != nil {
			warnings[0] = "prediction: " + core.AsServiceError(err).Message
			return nil
		}
		ov.Prediction = &result
		return nil
	})

	g.Go(func() error {
		branchCtx, cancel := context.WithTimeout(ctx, o.cfg.BranchTimeout)
		defer cancel()
		usage, err := o.usage.GetUsage(branchCtx, userID, o.cfg.DailyLimit, o.now())
		if err != nil {
			warnings[1] = "usage: " + err.Error()
			return nil
		}
		ov.Usage = &usage
		return nil
	})

	g.Go(func() error {
		branchCtx, cancel := context.WithTimeout(ctx, o.cfg.BranchTimeout)
		defer cancel()
		spending, err := o.history.SpendingByCategory(branchCtx, userID, 6)
		if err != nil {
			warnings[2] = "spending: " + err.Error()
			return nil
		}
		ov.Spending = spending
		return nil
	})

	// Branches swallow their own failures, so Wait only joins.
	_ = g.Wait()

	for _, w := range warnings {
		if w != "" {
			ov.Warnings = append(ov.Warnings, w)
		}
	}
	return ov
}
