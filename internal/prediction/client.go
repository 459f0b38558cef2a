package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"budgetme/internal/core"
	"budgetme/internal/log"
)

const generatePath = "/api/v1/predictions/generate"

// Client calls the external forecasting service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *log.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *log.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		log:        logger.WithComponent(log.ComponentPrediction),
	}
}

// Generate posts the transaction history and returns the remote
// forecast. Timeouts and transport errors come back as recoverable
// fetch errors so the caller can fall through to the local engine.
func (c *Client) Generate(ctx context.Context, req ForecastRequest) (ForecastResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ForecastResponse{}, fmt.Errorf("marshal forecast request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return ForecastResponse{}, fmt.Errorf("build forecast request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ForecastResponse{}, core.NewFetchError("forecast service unreachable", err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "forecast service responded",
		log.FieldEndpoint, generatePath,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusTooManyRequests {
		return ForecastResponse{}, core.NewRateLimitedError(retryAfter(resp), nil)
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ForecastResponse{}, core.NewFetchError(
			fmt.Sprintf("forecast service returned %d", resp.StatusCode),
			fmt.Errorf("%s", raw))
	}

	var out ForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ForecastResponse{}, core.NewFetchError("decode forecast response", err)
	}
	if len(out.Predictions) == 0 {
		return ForecastResponse{}, core.NewFetchError("forecast response contained no predictions", nil)
	}
	return out, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 60 * time.Second
}
