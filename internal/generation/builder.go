package generation

import (
	"log/slog"
	"time"
)

// DefaultMaxConcurrentRequests bounds the model calls of a single build.
const DefaultMaxConcurrentRequests = 4

// BuilderConfig tunes a builder's use of the generator.
type BuilderConfig struct {
	// MaxConcurrentRequests bounds the parallel sub-requests of one build.
	MaxConcurrentRequests int
	Retry                 RetryPolicy
}

// builderBase holds what both builders share.
type builderBase struct {
	gen    Generator
	source PageSource
	cfg    BuilderConfig
	logger *slog.Logger
	now    func() time.Time
}

func newBuilderBase(gen Generator, source PageSource, cfg BuilderConfig, logger *slog.Logger, component string) builderBase {
	if cfg.MaxConcurrentRequests < 1 {
		cfg.MaxConcurrentRequests = DefaultMaxConcurrentRequests
	}
	if logger == nil {
		logger = slog.Default()
	}
	return builderBase{
		gen:    gen,
		source: source,
		cfg:    cfg,
		logger: logger.With(slog.String("component", component)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}
