// Package chroma implements the vector store contract on a remote Chroma
// server through the chroma-go v2 HTTP client.
package chroma

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/metrics"
)

const backend = "chroma"

// Config holds the Chroma server settings.
type Config struct {
	URL   string
	Token string
	// AuthHeader is "Authorization" (sent as "Bearer <token>") or "X-Chroma-Token".
	AuthHeader string
	Tenant     string
	Database   string
	// Distance sets the HNSW space when a collection is created. Empty keeps the server default.
	Distance string
	Timeout  time.Duration
}

// Store implements domain.VectorStore.
type Store struct {
	client   chromago.Client
	distance string
	logger   *zap.Logger
}

var _ domain.VectorStore = (*Store)(nil)

// New creates a Chroma client. No request is made until first use.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("chroma url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse chroma url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []chromago.ClientOption{
		chromago.WithBaseURL(strings.TrimRight(cfg.URL, "/")),
		chromago.WithDatabaseAndTenant(orDefault(cfg.Database, "default_database"), orDefault(cfg.Tenant, "default_tenant")),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, chromago.WithTimeout(cfg.Timeout))
	}
	if cfg.Token != "" {
		header := chromago.AuthorizationTokenHeader
		if strings.EqualFold(cfg.AuthHeader, "X-Chroma-Token") {
			header = chromago.XChromaTokenHeader
		}
		opts = append(opts, chromago.WithAuth(chromago.NewTokenAuthCredentialsProvider(cfg.Token, header)))
	}

	c, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create chroma client: %w: %w", domain.ErrStoreUnavailable, err)
	}

	return &Store{client: c, distance: cfg.Distance, logger: logger}, nil
}

// Ping implements domain.VectorStore via the heartbeat endpoint.
func (s *Store) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.client.Heartbeat(ctx)
	metrics.ObserveStoreOp(backend, "ping", start, err)
	if err != nil {
		return fmt.Errorf("heartbeat: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close implements domain.VectorStore.
func (s *Store) Close() error {
	return s.client.Close()
}

// GetOrCreateCollection implements domain.VectorStore.
// Embeddings are always computed upstream; the collection's embedding
// function is never invoked for writes that carry vectors.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string) (domain.Collection, error) {
	opts := []chromago.CreateCollectionOption{
		chromago.WithEmbeddingFunctionCreate(embeddings.NewConsistentHashEmbeddingFunction()),
	}
	if s.distance != "" {
		opts = append(opts, chromago.WithHNSWSpaceCreate(embeddings.DistanceMetric(s.distance)))
	}

	start := time.Now()
	col, err := s.client.GetOrCreateCollection(ctx, name, opts...)
	metrics.ObserveStoreOp(backend, "get_or_create_collection", start, err)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w: %w", name, domain.ErrStoreUnavailable, err)
	}

	s.logger.Info("Chroma collection resolved",
		zap.String("collection", name),
		zap.String("collection_id", col.ID()),
	)
	return &Collection{col: col, name: name}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
