package fallback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"budgetme/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{
		Component: "test",
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})
}

func TestRun_FirstTierWins(t *testing.T) {
	secondCalled := false
	res := Run(context.Background(), testLogger(), "list budgets",
		Attempt[int]{Source: TierView, Run: func(ctx context.Context) (int, error) {
			return 42, nil
		}},
		Attempt[int]{Source: TierJoined, Run: func(ctx context.Context) (int, error) {
			secondCalled = true
			return 0, nil
		}},
	)

	if res.Source != TierView {
		t.Errorf("Source = %v, want %v", res.Source, TierView)
	}
	if res.Data != 42 {
		t.Errorf("Data = %v, want 42", res.Data)
	}
	if secondCalled {
		t.Error("second tier ran even though the first succeeded")
	}
}

func TestRun_FallsThroughToLaterTier(t *testing.T) {
	res := Run(context.Background(), testLogger(), "list budgets",
		Attempt[string]{Source: TierView, Run: func(ctx context.Context) (string, error) {
			return "", errors.New("view missing")
		}},
		Attempt[string]{Source: TierJoined, Run: func(ctx context.Context) (string, error) {
			return "", errors.New("join failed")
		}},
		Attempt[string]{Source: TierTable, Run: func(ctx context.Context) (string, error) {
			return "bare", nil
		}},
	)

	if res.Source != TierTable {
		t.Errorf("Source = %v, want %v", res.Source, TierTable)
	}
	if res.Data != "bare" {
		t.Errorf("Data = %q, want %q", res.Data, "bare")
	}
	if !res.Ok() {
		t.Error("Ok() = false, want true")
	}
}

func TestRun_AllTiersFail(t *testing.T) {
	sentinel := errors.New("tables gone too")
	res := Run(context.Background(), testLogger(), "list goals",
		Attempt[[]int]{Source: TierView, Run: func(ctx context.Context) ([]int, error) {
			return nil, errors.New("view missing")
		}},
		Attempt[[]int]{Source: TierTable, Run: func(ctx context.Context) ([]int, error) {
			return nil, sentinel
		}},
	)

	if res.Source != TierError {
		t.Errorf("Source = %v, want %v", res.Source, TierError)
	}
	if !errors.Is(res.Err, sentinel) {
		t.Errorf("Err = %v, want wrapped %v", res.Err, sentinel)
	}
	if res.Ok() {
		t.Error("Ok() = true, want false")
	}
}

func TestRun_CancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	res := Run(ctx, testLogger(), "list transactions",
		Attempt[int]{Source: TierView, Run: func(ctx context.Context) (int, error) {
			called = true
			return 1, nil
		}},
	)

	if called {
		t.Error("attempt ran on cancelled context")
	}
	if res.Source != TierError {
		t.Errorf("Source = %v, want %v", res.Source, TierError)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", res.Err)
	}
}

func TestRun_NoAttempts(t *testing.T) {
	res := Run[int](context.Background(), testLogger(), "empty chain")
	if res.Source != TierError || res.Err == nil {
		t.Errorf("Run with no attempts = %+v, want error result", res)
	}
}
