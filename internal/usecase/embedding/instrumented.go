package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/domain"
)

// Options bound and validate every embedding call.
type Options struct {
	// Timeout caps a single Embed call. Zero means no extra deadline.
	Timeout time.Duration
	// Dimensions, when positive, is the vector length every response must have.
	Dimensions int
}

// InstrumentedEmbedder is the outermost embedding decorator: it applies the
// call deadline, validates the vector, records per-request usage and logs.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	opts     Options
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with deadline, validation and observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	opts Options, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		opts:     opts,
		logger:   logger,
	}
}

// Embed delegates to the inner embedder. Every error wraps domain.ErrEmbeddingUnavailable.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err == nil {
		err = p.validate(result.Embedding)
	}
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).Record(result, result.Cached)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
		zap.Bool("cached", result.Cached),
	)

	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports probing.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health: %w", err)
	}
	return nil
}

func (p *InstrumentedEmbedder) validate(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding: %w", domain.ErrEmbeddingUnavailable)
	}
	if p.opts.Dimensions > 0 && len(vec) != p.opts.Dimensions {
		return fmt.Errorf("got %d dimensions, want %d: %w: %w",
			len(vec), p.opts.Dimensions, domain.ErrVectorDimMismatch, domain.ErrEmbeddingUnavailable)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite value at index %d: %w", i, domain.ErrEmbeddingUnavailable)
		}
	}
	return nil
}
