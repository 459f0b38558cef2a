package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/storage"
)

type fakeUsage struct {
	current int
	max     int
	reset   time.Time

	increments int
	getErr     error
}

func (f *fakeUsage) GetUsage(ctx context.Context, userID string, maxUsage int, now time.Time) (core.UsageStatus, error) {
	if f.getErr != nil {
		return core.UsageStatus{}, f.getErr
	}
	if f.max == 0 {
		f.max = maxUsage
	}
	return core.UsageStatus{
		UserID:       userID,
		CurrentUsage: f.current,
		MaxUsage:     f.max,
		ResetDate:    f.reset,
		Exceeded:     f.current >= f.max,
		Remaining:    f.max - f.current,
	}, nil
}

func (f *fakeUsage) IncrementUsage(ctx context.Context, userID string) (bool, error) {
	if f.current >= f.max {
		return false, nil
	}
	f.current++
	f.increments++
	return true, nil
}

type fakeResultStore struct {
	cached   *core.PredictionResult
	saved    []core.PredictionResult
	saveErr  error
	statuses []string
}

func (f *fakeResultStore) GetCachedPrediction(ctx context.Context, userID string, tf core.Timeframe, now time.Time) (core.PredictionResult, error) {
	if f.cached == nil {
		return core.PredictionResult{}, storage.ErrNoCachedPrediction
	}
	return *f.cached, nil
}

func (f *fakeResultStore) SavePrediction(ctx context.Context, result core.PredictionResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *fakeResultStore) LogRequest(ctx context.Context, userID string, tf core.Timeframe) (string, error) {
	return "req-1", nil
}

func (f *fakeResultStore) UpdateRequestStatus(ctx context.Context, requestID, status string, source core.Source, errorCode string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeHistory struct {
	txns []core.Transaction
	err  error
}

func (f *fakeHistory) History(ctx context.Context, userID string, monthsBack int) ([]core.Transaction, error) {
	return f.txns, f.err
}

func (f *fakeHistory) SpendingByCategory(ctx context.Context, userID string, monthsBack int) (map[string]float64, error) {
	return map[string]float64{"Food": 100}, nil
}

type fakeRemote struct {
	resp  ForecastResponse
	err   error
	calls int
}

func (f *fakeRemote) Generate(ctx context.Context, req ForecastRequest) (ForecastResponse, error) {
	f.calls++
	if f.err != nil {
		return ForecastResponse{}, f.err
	}
	return f.resp, nil
}

func historyOf(n int) []core.Transaction {
	txns := make([]core.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txns = append(txns, expense(day(2025, time.Month(1+i%5), 3), 100, "Food"))
	}
	return txns
}

func newTestOrchestrator(usage *fakeUsage, store *fakeResultStore, hist *fakeHistory, remote *fakeRemote) *Orchestrator {
	o := NewOrchestrator(Config{
		DailyLimit:      5,
		MinTransactions: 3,
		CacheTTL:        24 * time.Hour,
		BranchTimeout:   time.Second,
	}, usage, store, hist, remote, NewEngine(0.025, 1.20, testLogger()), nil, nil, testLogger())
	o.now = func() time.Time { return day(2025, 6, 15) }
	return o
}

func TestGenerate_QuotaGate(t *testing.T) {
	usage := &fakeUsage{current: 5, max: 5, reset: day(2025, 6, 16)}
	remote := &fakeRemote{}
	o := newTestOrchestrator(usage, &fakeResultStore{}, &fakeHistory{txns: historyOf(10)}, remote)

	_, err := o.Generate(context.Background(), "u1", core.Months3, false)
	if !core.IsCode(err, core.CodeQuotaExceeded) {
		t.Fatalf("err = %v, want QUOTA_EXCEEDED", err)
	}
	se := core.AsServiceError(err)
	if se.Context["reset_date"] == nil {
		t.Error("quota error missing reset_date context")
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times past an exhausted quota", remote.calls)
	}
}

func TestGenerate_QuotaMonotonic(t *testing.T) {
	usage := &fakeUsage{current: 0, max: 3, reset: day(2025, 6, 16)}
	store := &fakeResultStore{}
	remote := &fakeRemote{err: errors.New("down")}
	o := newTestOrchestrator(usage, store, &fakeHistory{txns: historyOf(10)}, remote)

	for i := 0; i < 3; i++ {
		// Force regeneration so each call actually generates.
		if _, err := o.Generate(context.Background(), "u1", core.Months3, true); err != nil {
			t.Fatalf("generation %d: %v", i+1, err)
		}
	}
	if usage.increments != 3 {
		t.Errorf("increments = %d, want 3", usage.increments)
	}

	_, err := o.Generate(context.Background(), "u1", core.Months3, true)
	if !core.IsCode(err, core.CodeQuotaExceeded) {
		t.Errorf("request past limit: err = %v, want QUOTA_EXCEEDED", err)
	}
	if usage.increments != 3 {
		t.Errorf("increments after rejection = %d, want 3", usage.increments)
	}
}

func TestGenerate_CacheShortCircuit(t *testing.T) {
	cached := core.PredictionResult{
		UserID:    "u1",
		Timeframe: core.Months3,
		Points:    []core.PredictionPoint{{Predicted: 123}},
		Source:    core.SourceRemote,
		ExpiresAt: day(2025, 6, 16),
	}
	// A broken remote must never be reached on a cache hit.
	remote := &fakeRemote{err: errors.New("remote exploded")}
	usage := &fakeUsage{max: 5}
	o := newTestOrchestrator(usage, &fakeResultStore{cached: &cached}, &fakeHistory{txns: historyOf(10)}, remote)

	got, err := o.Generate(context.Background(), "u1", core.Months3, false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != core.SourceCache {
		t.Errorf("Source = %v, want %v", got.Source, core.SourceCache)
	}
	if got.Points[0].Predicted != 123 {
		t.Errorf("Predicted = %v, want cached 123", got.Points[0].Predicted)
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times on cache hit", remote.calls)
	}
	if usage.increments != 0 {
		t.Errorf("cache hit consumed %d quota units", usage.increments)
	}

	// Second request hits the in-process cache and must not fail either.
	if _, err := o.Generate(context.Background(), "u1", core.Months3, false); err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times on repeated cache hit", remote.calls)
	}
}

func TestGenerate_RemoteFailureFallsBack(t *testing.T) {
	usage := &fakeUsage{max: 5}
	store := &fakeResultStore{}
	remote := &fakeRemote{err: errors.New("connection refused")}
	o := newTestOrchestrator(usage, store, &fakeHistory{txns: historyOf(6)}, remote)

	got, err := o.Generate(context.Background(), "u1", core.Months3, false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != core.SourceFallback {
		t.Errorf("Source = %v, want %v", got.Source, core.SourceFallback)
	}
	if len(got.Points) != 3 {
		t.Errorf("points = %d, want 3", len(got.Points))
	}
	if got.ExpiresAt.Sub(got.GeneratedAt) != 24*time.Hour {
		t.Errorf("expiry window = %v, want 24h", got.ExpiresAt.Sub(got.GeneratedAt))
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved = %d results, want 1", len(store.saved))
	}
	if usage.increments != 1 {
		t.Errorf("increments = %d, want 1", usage.increments)
	}
}

func TestGenerate_RemoteSuccess(t *testing.T) {
	usage := &fakeUsage{max: 5}
	store := &fakeResultStore{}
	remote := &fakeRemote{resp: ForecastResponse{
		Predictions:     []core.PredictionPoint{{Predicted: 777}},
		ConfidenceScore: 0.92,
	}}
	o := newTestOrchestrator(usage, store, &fakeHistory{txns: historyOf(6)}, remote)

	got, err := o.Generate(context.Background(), "u1", core.Months6, false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Source != core.SourceRemote {
		t.Errorf("Source = %v, want %v", got.Source, core.SourceRemote)
	}
	if got.OverallConfidence != 0.92 {
		t.Errorf("OverallConfidence = %v, want 0.92", got.OverallConfidence)
	}
	if remote.calls != 1 {
		t.Errorf("remote calls = %d, want 1", remote.calls)
	}
}

func TestGenerate_InsufficientData(t *testing.T) {
	usage := &fakeUsage{max: 5}
	o := newTestOrchestrator(usage, &fakeResultStore{}, &fakeHistory{txns: historyOf(2)}, &fakeRemote{})

	_, err := o.Generate(context.Background(), "u1", core.Months3, false)
	if !core.IsCode(err, core.CodeInsufficientData) {
		t.Fatalf("err = %v, want INSUFFICIENT_DATA", err)
	}
	se := core.AsServiceError(err)
	if se.Context["transaction_count"] != 2 {
		t.Errorf("transaction_count = %v, want 2", se.Context["transaction_count"])
	}
	if usage.increments != 0 {
		t.Errorf("failed generation consumed %d quota units", usage.increments)
	}
}

func TestGenerate_PersistFailureSkipsIncrement(t *testing.T) {
	usage := &fakeUsage{max: 5}
	store := &fakeResultStore{saveErr: errors.New("disk full")}
	o := newTestOrchestrator(usage, store, &fakeHistory{txns: historyOf(6)}, &fakeRemote{err: errors.New("down")})

	got, err := o.Generate(context.Background(), "u1", core.Months3, true)
	if err != nil {
		t.Fatalf("Generate() error = %v, want data despite persist failure", err)
	}
	if len(got.Points) == 0 {
		t.Error("no points returned despite persist failure")
	}
	if usage.increments != 0 {
		t.Errorf("increments = %d, want 0 when persistence fails", usage.increments)
	}
}

func TestGenerate_InvalidTimeframe(t *testing.T) {
	o := newTestOrchestrator(&fakeUsage{max: 5}, &fakeResultStore{}, &fakeHistory{}, &fakeRemote{})
	_, err := o.Generate(context.Background(), "u1", "weeks_2", false)
	if !core.IsCode(err, core.CodeValidation) {
		t.Errorf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestBuildOverview_BranchIsolation(t *testing.T) {
	usage := &fakeUsage{max: 5}
	// History too short: the prediction branch fails, the others serve.
	o := newTestOrchestrator(usage, &fakeResultStore{}, &fakeHistory{txns: historyOf(1)}, &fakeRemote{})

	ov := o.BuildOverview(context.Background(), "u1", core.Months3)
	if ov.Prediction != nil {
		t.Error("Prediction set despite insufficient history")
	}
	if ov.Usage == nil {
		t.Fatal("Usage branch failed alongside prediction branch")
	}
	if ov.Spending["Food"] != 100 {
		t.Errorf("Spending[Food] = %v, want 100", ov.Spending["Food"])
	}
	if len(ov.Warnings) == 0 {
		t.Error("no warning recorded for the failed branch")
	}
}
