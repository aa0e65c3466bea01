package intent

import (
	"context"
	"time"

	"github.com/Domenick1991/airbooking/config"
	"go.uber.org/zap"
)

// NewExtractor picks the extractor once at start-up: the Gemini model when an
// API key is configured, the keyword rules otherwise.
func NewExtractor(ctx context.Context, cfg config.AssistantConfig, logger *zap.Logger) (Extractor, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("gemini api key is not set, using rule-based intent extraction")
		return NewRuleExtractor(cfg.HubCode, WithReferenceYear(cfg.ReferenceYear), WithClock(func() time.Time {
			return time.Now().In(cfg.Location())
		})), nil
	}

	g, err := NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OracleTimeout())
	if err != nil {
		return nil, err
	}
	logger.Info("using gemini intent extraction", zap.String("model", cfg.GeminiModel))
	return g, nil
}
