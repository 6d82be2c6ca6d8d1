// Package chromem implements the vector store contract on top of the
// embedded chromem-go database. It backs local runs and end-to-end tests.
package chromem

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	chromemgo "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
	"github.com/kailas-cloud/textupsert/internal/metrics"
)

const (
	backend = "chromem"

	// dimsCollection keeps one entry per collection with the vector size seen
	// at upsert, so Peek works after a persistent store is reopened.
	dimsCollection = "_textupsert_dimensions"
	dimsKey        = "dimensions"
)

var errNoEmbeddingFunc = errors.New("chromem: documents must carry precomputed embeddings")

// Config selects in-memory or persistent mode.
type Config struct {
	// Path enables persistence when non-empty.
	Path     string
	Compress bool
	// Dimensions sizes the query vector used by Peek when no size has been recorded yet.
	Dimensions int
}

// Store implements domain.VectorStore.
type Store struct {
	db     *chromemgo.DB
	dims   int
	sizes  *chromemgo.Collection
	logger *zap.Logger
}

var _ domain.VectorStore = (*Store)(nil)

// New opens the database.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromemgo.DB
	if cfg.Path == "" {
		db = chromemgo.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create chromem dir %s: %w", cfg.Path, err)
		}
		var err error
		db, err = chromemgo.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w: %w", domain.ErrStoreUnavailable, err)
		}
	}

	sizes, err := db.GetOrCreateCollection(dimsCollection, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", dimsCollection, domain.ErrStoreUnavailable, err)
	}

	logger.Info("Chromem store opened",
		zap.String("path", cfg.Path),
		zap.Bool("persistent", cfg.Path != ""),
	)

	return &Store{db: db, dims: cfg.Dimensions, sizes: sizes, logger: logger}, nil
}

// GetOrCreateCollection implements domain.VectorStore. A recorded vector
// size takes precedence over the configured one.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string) (domain.Collection, error) {
	if name == dimsCollection {
		return nil, fmt.Errorf("collection name %q is reserved: %w", name, domain.ErrStoreUnavailable)
	}

	start := time.Now()
	col, err := s.db.GetOrCreateCollection(name, nil, rejectEmbedding)
	metrics.ObserveStoreOp(backend, "get_or_create_collection", start, err)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w: %w", name, domain.ErrStoreUnavailable, err)
	}

	dims := s.dims
	if recorded, ok := s.recordedDims(ctx, name); ok {
		if dims > 0 && dims != recorded {
			s.logger.Warn("Configured dimensions differ from stored vectors",
				zap.String("collection", name),
				zap.Int("configured", dims),
				zap.Int("stored", recorded),
			)
		}
		dims = recorded
	}
	return &Collection{col: col, name: name, sizes: s.sizes, dims: dims, logger: s.logger}, nil
}

func (s *Store) recordedDims(ctx context.Context, name string) (int, bool) {
	doc, err := s.sizes.GetByID(ctx, name)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(doc.Metadata[dimsKey])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Ping implements domain.VectorStore. The database is in-process.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close implements domain.VectorStore. Persistent mode writes on every call.
func (s *Store) Close() error { return nil }

func rejectEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Collection implements domain.Collection.
type Collection struct {
	col    *chromemgo.Collection
	name   string
	sizes  *chromemgo.Collection
	logger *zap.Logger

	mu   sync.RWMutex
	dims int
}

// Name implements domain.Collection.
func (c *Collection) Name() string { return c.name }

// Upsert implements domain.Collection. chromem overwrites documents with an existing id.
func (c *Collection) Upsert(ctx context.Context, records []document.Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromemgo.Document, len(records))
	for i, rec := range records {
		md, err := encodeMetadata(rec.Metadata())
		if err != nil {
			return fmt.Errorf("encode metadata for %q: %w: %w", rec.ID(), domain.ErrStoreUnavailable, err)
		}
		docs[i] = chromemgo.Document{
			ID:        rec.ID(),
			Metadata:  md,
			Embedding: rec.Vector(),
			Content:   rec.Content(),
		}
	}

	start := time.Now()
	err := c.col.AddDocuments(ctx, docs, 1)
	metrics.ObserveStoreOp(backend, "upsert", start, err)
	if err != nil {
		return fmt.Errorf("add documents: %w: %w", domain.ErrStoreUnavailable, err)
	}

	dims := len(records[0].Vector())
	c.mu.Lock()
	changed := c.dims != dims
	c.dims = dims
	c.mu.Unlock()

	if changed {
		c.recordDims(ctx, dims)
	}
	return nil
}

// recordDims failures only cost Peek after a restart, so they are logged.
func (c *Collection) recordDims(ctx context.Context, dims int) {
	err := c.sizes.AddDocument(ctx, chromemgo.Document{
		ID:        c.name,
		Metadata:  map[string]string{dimsKey: strconv.Itoa(dims)},
		Embedding: []float32{1},
	})
	if err != nil {
		c.logger.Warn("Failed to record collection dimensions",
			zap.String("collection", c.name),
			zap.Error(err),
		)
	}
}

// Count implements domain.Collection.
func (c *Collection) Count(_ context.Context) (int, error) {
	return c.col.Count(), nil
}

// Peek implements domain.Collection. chromem has no listing API, so a
// similarity query with a constant vector stands in for it.
// Without a known dimension the sample is empty.
func (c *Collection) Peek(ctx context.Context, limit int) ([]document.Record, error) {
	n := min(limit, c.col.Count())
	c.mu.RLock()
	dims := c.dims
	c.mu.RUnlock()
	if n <= 0 || dims <= 0 {
		return nil, nil
	}

	query := make([]float32, dims)
	for i := range query {
		query[i] = 1
	}

	start := time.Now()
	results, err := c.col.QueryEmbedding(ctx, query, n, nil, nil)
	metrics.ObserveStoreOp(backend, "peek", start, err)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := make([]document.Record, 0, len(results))
	for _, r := range results {
		out = append(out, document.Reconstruct(r.ID, r.Content, decodeMetadata(r.Metadata)))
	}
	return out, nil
}

// encodeMetadata stores every value as its JSON text since chromem only keeps strings.
func encodeMetadata(md metadata.Metadata) (map[string]string, error) {
	out := make(map[string]string, len(md))
	for k, v := range md {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = string(b)
	}
	return out, nil
}

func decodeMetadata(raw map[string]string) metadata.Metadata {
	values := make(map[string]any, len(raw))
	for k, s := range raw {
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			// Written by another tool: keep the raw string.
			v = s
		}
		values[k] = v
	}
	return metadata.FromStored(values)
}
