// Package insights produces narrative commentary for a forecast. An
// LLM service is asked first, over two endpoint generations, and a
// template renderer fills in when both are unavailable.
package insights

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

const (
	structuredPath = "/api/v1/predictions/ai-insights"
	legacyPath     = "/api/v1/predictions/insights"
)

// InsightRequest is the payload both insight endpoints accept.
type InsightRequest struct {
	Timeframe         string                           `json:"timeframe"`
	Predictions       []core.PredictionPoint           `json:"predictions"`
	CategoryForecasts map[string]core.CategoryForecast `json:"category_forecasts"`
	UserProfile       core.UserFinancialProfile        `json:"user_profile"`
}

type structuredResponse struct {
	Insights []core.Insight `json:"insights"`
}

type legacyResponse struct {
	Text string `json:"text"`
}

// Client calls the LLM insights service.
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
		log:        logger.WithComponent(log.ComponentInsights),
	}
}

// GenerateStructured asks the dedicated insights endpoint for typed
// insight records.
func (c *Client) GenerateStructured(ctx context.Context, req InsightRequest) ([]core.Insight, error) {
	var out structuredResponse
	if err := c.post(ctx, structuredPath, req, &out); err != nil {
		return nil, err
	}
	if len(out.Insights) == 0 {
		return nil, core.NewFetchError("insights response was empty", nil)
	}
	return out.Insights, nil
}

// GenerateLegacy asks the prompt completion endpoint and returns the
// raw narrative for section parsing.
func (c *Client) GenerateLegacy(ctx context.Context, req InsightRequest) (string, error) {
	var out legacyResponse
	if err := c.post(ctx, legacyPath, req, &out); err != nil {
		return "", err
	}
	if out.Text == "" {
		return "", core.NewFetchError("completion response was empty", nil)
	}
	return out.Text, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal insight request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build insight request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.NewFetchError("insight service unreachable", err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "insight service responded",
		log.FieldEndpoint, path,
		log.FieldStatusCode, resp.StatusCode,
	)

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := 60 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				retry = time.Duration(secs) * time.Second
			}
		}
		return core.NewRateLimitedError(retry, nil)
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return core.NewFetchError(
			fmt.Sprintf("insight service returned %d", resp.StatusCode),
			fmt.Errorf("%s", raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.NewFetchError("decode insight response", err)
	}
	return nil
}
