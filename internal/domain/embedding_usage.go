package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding usage for a single HTTP request.
// The handler installs it, the embedder chain fills it in, the handler
// reads it back for response headers.
type EmbeddingUsage struct {
	TotalTokens int
	CacheHit    bool
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Record stores the outcome of one embedding call. Safe on a nil receiver.
func (u *EmbeddingUsage) Record(res EmbeddingResult, cacheHit bool) {
	if u == nil {
		return
	}
	u.TotalTokens += res.TotalTokens
	u.CacheHit = cacheHit
}
