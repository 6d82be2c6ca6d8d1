package domain

import (
	"context"

	"github.com/kailas-cloud/textupsert/internal/domain/document"
)

// VectorStore is the contract every vector database backend implements.
type VectorStore interface {
	// GetOrCreateCollection returns the named collection, creating it when absent.
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)
	Ping(ctx context.Context) error
	Close() error
}

// Collection is a resolved handle to one collection of a VectorStore.
// Errors wrap ErrStoreUnavailable.
type Collection interface {
	Name() string
	// Upsert inserts or overwrites records by id.
	Upsert(ctx context.Context, records []document.Record) error
	Count(ctx context.Context) (int, error)
	// Peek returns up to limit arbitrary records without vectors.
	Peek(ctx context.Context, limit int) ([]document.Record, error)
}
