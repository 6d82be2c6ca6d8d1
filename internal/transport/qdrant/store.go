// Package qdrant implements the vector store contract over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/metrics"
)

const (
	backend = "qdrant"

	defaultMaxMessageSize = 32 << 20

	payloadID       = "id"
	payloadDocument = "document"
	payloadMetadata = "metadata"
)

// pointNamespace derives stable point UUIDs from record ids, which may be arbitrary strings.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kailas-cloud/textupsert/qdrant-points"))

// client is the subset of *qdrant.Client used here (ISP).
type client interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	Scroll(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Config holds the Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
	// VectorSize is used when the collection has to be created.
	VectorSize     int
	MaxMessageSize int
}

// Store implements domain.VectorStore.
type Store struct {
	client     client
	vectorSize int
	logger     *zap.Logger
}

var _ domain.VectorStore = (*Store)(nil)

// New dials Qdrant. The connection is lazy; use Ping to verify it.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxMsg := cfg.MaxMessageSize
	if maxMsg <= 0 {
		maxMsg = defaultMaxMessageSize
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMsg),
				grpc.MaxCallSendMsgSize(maxMsg),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if !cfg.UseTLS && cfg.APIKey != "" {
		logger.Warn("Qdrant API key sent over plaintext gRPC", zap.String("host", cfg.Host))
	}

	return newStore(c, cfg.VectorSize, logger), nil
}

func newStore(c client, vectorSize int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: c, vectorSize: vectorSize, logger: logger}
}

// Ping implements domain.VectorStore.
func (s *Store) Ping(ctx context.Context) error {
	start := time.Now()
	_, err := s.client.HealthCheck(ctx)
	metrics.ObserveStoreOp(backend, "ping", start, err)
	if err != nil {
		return fmt.Errorf("health check: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close implements domain.VectorStore.
func (s *Store) Close() error {
	return s.client.Close()
}

// GetOrCreateCollection implements domain.VectorStore. Creation uses cosine distance.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string) (domain.Collection, error) {
	start := time.Now()
	err := s.ensureCollection(ctx, name)
	metrics.ObserveStoreOp(backend, "get_or_create_collection", start, err)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w: %w", name, domain.ErrStoreUnavailable, err)
	}
	return &Collection{client: s.client, name: name}, nil
}

func (s *Store) ensureCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if exists {
		return nil
	}
	if s.vectorSize <= 0 {
		return fmt.Errorf("collection does not exist and vector size is unknown")
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		// Another replica created it concurrently.
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("create: %w", err)
	}

	s.logger.Info("Qdrant collection created",
		zap.String("collection", name),
		zap.Int("vector_size", s.vectorSize),
	)
	return nil
}

// Collection implements domain.Collection.
type Collection struct {
	client client
	name   string
}

// Name implements domain.Collection.
func (c *Collection) Name() string { return c.name }

// Upsert implements domain.Collection and waits for the write to be applied.
func (c *Collection) Upsert(ctx context.Context, records []document.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = toPoint(rec)
	}

	start := time.Now()
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	metrics.ObserveStoreOp(backend, "upsert", start, err)
	if err != nil {
		return fmt.Errorf("upsert points: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Count implements domain.Collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.name,
		Exact:          qdrant.PtrOf(true),
	})
	metrics.ObserveStoreOp(backend, "count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count points: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return int(n), nil
}

// Peek implements domain.Collection.
func (c *Collection) Peek(ctx context.Context, limit int) ([]document.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	start := time.Now()
	points, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: c.name,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	metrics.ObserveStoreOp(backend, "peek", start, err)
	if err != nil {
		return nil, fmt.Errorf("scroll points: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]document.Record, 0, len(points))
	for _, p := range points {
		out = append(out, fromPoint(p))
	}
	return out, nil
}
