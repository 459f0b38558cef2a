package insights

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"budgetme/internal/cache"
	"budgetme/internal/core"
	"budgetme/internal/log"
)

type (
	// LLMClient is the insight service surface the generator drives.
	LLMClient interface {
		GenerateStructured(ctx context.Context, req InsightRequest) ([]core.Insight, error)
		GenerateLegacy(ctx context.Context, req InsightRequest) (string, error)
	}

	// Store persists generated insight batches.
	Store interface {
		SaveInsights(ctx context.Context, userID string, tf core.Timeframe, insights []core.Insight, templated bool) error
	}

	Generator struct {
		client LLMClient
		store  Store
		cache  cache.Cache[[]core.Insight]
		log    *log.Logger
	}
)

func NewGenerator(client LLMClient, store Store, cacheTTL time.Duration, logger *log.Logger) *Generator {
	return &Generator{
		client: client,
		store:  store,
		cache:  cache.NewLRUCache[[]core.Insight](128, cacheTTL),
		log:    logger.WithComponent(log.ComponentInsights),
	}
}

// cacheKey hashes the inputs that materially change the narrative.
// Income and expenses are rounded so cosmetic cents differences do not
// bust the cache.
func cacheKey(userID string, result core.PredictionResult) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d|%d|%d|%d",
		userID,
		result.Timeframe,
		int64(math.Round(result.Profile.AvgMonthlyIncome)),
		int64(math.Round(result.Profile.AvgMonthlyExpenses)),
		len(result.CategoryForecasts),
		len(result.Points),
	)
	return fmt.Sprintf("%x", h.Sum64())
}

// Generate produces insights for a forecast, trying the structured
// endpoint, then the legacy one, then the local templates. The second
// return value reports whether the templates served.
func (g *Generator) Generate(ctx context.Context, userID string, result core.PredictionResult) ([]core.Insight, bool, error) {
	key := cacheKey(userID, result)
	if hit, ok := g.cache.Get(key); ok {
		g.log.DebugContext(ctx, "insight cache hit",
			log.FieldUserID, userID,
			log.FieldCacheKey, key,
		)
		templated := len(hit) > 0 && hit[0].IsTemplated
		return hit, templated, nil
	}

	req := InsightRequest{
		Timeframe:         string(result.Timeframe),
		Predictions:       result.Points,
		CategoryForecasts: result.CategoryForecasts,
		UserProfile:       result.Profile,
	}

	insights, templated, err := g.cascade(ctx, userID, req, result)
	if err != nil {
		return nil, false, err
	}

	g.cache.Set(key, insights)
	if g.store != nil {
		if err := g.store.SaveInsights(ctx, userID, result.Timeframe, insights, templated); err != nil {
			g.log.WarnContext(ctx, "insight persistence failed",
				log.FieldUserID, userID,
				log.FieldError, err.Error(),
			)
		}
	}
	return insights, templated, nil
}

func (g *Generator) cascade(ctx context.Context, userID string, req InsightRequest, result core.PredictionResult) ([]core.Insight, bool, error) {
	if g.client != nil {
		if insights, err := g.client.GenerateStructured(ctx, req); err == nil {
			return insights, false, nil
		} else {
			// Rate limiting is recoverable on the client's schedule;
			// templates would mask the retry-after signal.
			if core.IsCode(err, core.CodeRateLimited) {
				return nil, false, err
			}
			g.log.WarnContext(ctx, "structured insight endpoint failed",
				log.FieldUserID, userID,
				log.FieldError, err.Error(),
			)
		}

		if text, err := g.client.GenerateLegacy(ctx, req); err == nil {
			if insights := ParseNarrative(text).Insights(); len(insights) > 0 {
				return insights, false, nil
			}
			g.log.WarnContext(ctx, "legacy narrative yielded no sections",
				log.FieldUserID, userID,
			)
		} else {
			if core.IsCode(err, core.CodeRateLimited) {
				return nil, false, err
			}
			g.log.WarnContext(ctx, "legacy insight endpoint failed",
				log.FieldUserID, userID,
				log.FieldError, err.Error(),
			)
		}
	}

	g.log.InfoContext(ctx, "serving template insights",
		log.FieldUserID, userID,
		log.FieldTimeframe, string(result.Timeframe),
	)
	return TemplateInsights(result), true, nil
}

// SaveNarrative parses and stores narrative text the forecasting
// service returned inline with a prediction.
func (g *Generator) SaveNarrative(ctx context.Context, userID string, tf core.Timeframe, texts []string) error {
	if len(texts) == 0 || g.store == nil {
		return nil
	}
	parsed := ParseNarrative(strings.Join(texts, "\n\n"))
	insights := parsed.Insights()
	if len(insights) == 0 {
		return nil
	}
	return g.store.SaveInsights(ctx, userID, tf, insights, false)
}
