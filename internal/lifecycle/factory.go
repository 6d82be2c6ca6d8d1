package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/config"
	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/metrics"
	"github.com/kailas-cloud/textupsert/internal/repository/chromem"
	"github.com/kailas-cloud/textupsert/internal/repository/embcache"
	"github.com/kailas-cloud/textupsert/internal/transport/chroma"
	"github.com/kailas-cloud/textupsert/internal/transport/openai"
	"github.com/kailas-cloud/textupsert/internal/transport/qdrant"
	"github.com/kailas-cloud/textupsert/internal/usecase/embedding"
)

// CacheStore is the key-value store behind the optional embedding cache.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ConfigFactory builds clients from the service configuration.
type ConfigFactory struct {
	cfg    *config.Config
	cache  CacheStore
	logger *zap.Logger
}

var _ Factory = (*ConfigFactory)(nil)

// NewConfigFactory creates a factory. cache may be nil to disable the embedding cache.
func NewConfigFactory(cfg *config.Config, cache CacheStore, logger *zap.Logger) *ConfigFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigFactory{cfg: cfg, cache: cache, logger: logger}
}

// NewEmbedder assembles openai -> cache (optional) -> instrumented.
func (f *ConfigFactory) NewEmbedder(_ context.Context) (domain.Embedder, error) {
	ec := f.cfg.Embedding
	if ec.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is not configured")
	}

	var emb domain.Embedder = openai.NewEmbedder(&openai.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		User:       ec.User,
		Provider:   ec.Provider,
		Logger:     f.logger.Named("openai"),
	})

	if f.cache != nil {
		emb = embcache.New(emb, f.cache, embcache.Options{
			KeyPrefix:  f.cfg.Cache.KeyPrefix,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			TTL:        time.Duration(f.cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, f.logger.Named("embcache"))
	}

	return embedding.NewInstrumentedEmbedder(emb, ec.Provider, ec.Model, embedding.Options{
		Timeout:    ec.Timeout(),
		Dimensions: ec.Dimensions,
	}, f.logger.Named("embedding")), nil
}

// NewVectorStore opens the configured backend.
func (f *ConfigFactory) NewVectorStore(_ context.Context) (domain.VectorStore, error) {
	vc := f.cfg.VectorStore
	switch vc.Driver {
	case config.DriverChroma, "":
		return chroma.New(chroma.Config{
			URL:        vc.Chroma.URL,
			Token:      vc.Chroma.Token,
			AuthHeader: vc.Chroma.AuthHeader,
			Tenant:     vc.Chroma.Tenant,
			Database:   vc.Chroma.Database,
			Distance:   vc.Chroma.Distance,
			Timeout:    vc.Timeout(),
		}, f.logger.Named("chroma"))
	case config.DriverQdrant:
		return qdrant.New(qdrant.Config{
			Host:       vc.Qdrant.Host,
			Port:       vc.Qdrant.Port,
			APIKey:     vc.Qdrant.APIKey,
			UseTLS:     vc.Qdrant.UseTLS,
			VectorSize: f.cfg.Embedding.Dimensions,
		}, f.logger.Named("qdrant"))
	case config.DriverChromem:
		return chromem.New(chromem.Config{
			Path:       vc.Chromem.Path,
			Compress:   vc.Chromem.Compress,
			Dimensions: f.cfg.Embedding.Dimensions,
		}, f.logger.Named("chromem"))
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", vc.Driver)
	}
}
