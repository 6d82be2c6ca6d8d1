// Package lifecycle builds the external clients once at startup and
// publishes them as an immutable State.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/domain"
)

// ErrAlreadyInitialized is returned by a second Initialize call.
var ErrAlreadyInitialized = errors.New("lifecycle: already initialized")

// Factory constructs the external clients.
type Factory interface {
	NewEmbedder(ctx context.Context) (domain.Embedder, error)
	NewVectorStore(ctx context.Context) (domain.VectorStore, error)
}

// State is the fully initialized set of service handles. Never mutated after publication.
type State struct {
	Embedder   domain.Embedder
	Store      domain.VectorStore
	Collection domain.Collection
}

// Components reports which handles are present.
type Components struct {
	EmbeddingGateway bool
	StoreClient      bool
	StoreCollection  bool
}

// All reports whether every component is present.
func (c Components) All() bool {
	return c.EmbeddingGateway && c.StoreClient && c.StoreCollection
}

// Manager owns service initialization and shutdown.
type Manager struct {
	factory    Factory
	collection string
	logger     *zap.Logger

	started  atomic.Bool
	state    atomic.Pointer[State]
	mu       sync.Mutex
	initErr  error
	shutdown sync.Once
}

// NewManager creates a Manager for the named collection.
func NewManager(factory Factory, collection string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{factory: factory, collection: collection, logger: logger}
}

// Initialize builds the embedder and store client, resolves the collection
// and publishes the State. It runs at most once; later calls return
// ErrAlreadyInitialized without touching the published state.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}

	st, err := m.build(ctx)
	if err != nil {
		m.mu.Lock()
		m.initErr = err
		m.mu.Unlock()
		m.logger.Error("Service initialization failed", zap.Error(err))
		return err
	}

	m.state.Store(st)
	m.logger.Info("Service initialized", zap.String("collection", m.collection))
	return nil
}

func (m *Manager) build(ctx context.Context) (*State, error) {
	emb, err := m.factory.NewEmbedder(ctx)
	if err != nil {
		return nil, fmt.Errorf("init embedding gateway: %w", err)
	}

	store, err := m.factory.NewVectorStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init vector store client: %w", err)
	}

	col, err := store.GetOrCreateCollection(ctx, m.collection)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			m.logger.Warn("Failed to close vector store after init error", zap.Error(cerr))
		}
		return nil, fmt.Errorf("resolve collection %q: %w", m.collection, err)
	}

	return &State{Embedder: emb, Store: store, Collection: col}, nil
}

// State returns the published state, or false before a successful Initialize.
func (m *Manager) State() (*State, bool) {
	st := m.state.Load()
	return st, st != nil
}

// Ready reports whether the state is published.
func (m *Manager) Ready() bool {
	return m.state.Load() != nil
}

// Err returns the recorded initialization failure, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr
}

// Components reports per-component presence.
func (m *Manager) Components() Components {
	st := m.state.Load()
	if st == nil {
		return Components{}
	}
	return Components{
		EmbeddingGateway: st.Embedder != nil,
		StoreClient:      st.Store != nil,
		StoreCollection:  st.Collection != nil,
	}
}

// Shutdown closes the store client. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	var err error
	m.shutdown.Do(func() {
		st := m.state.Load()
		if st == nil || st.Store == nil {
			return
		}
		done := make(chan error, 1)
		go func() { done <- st.Store.Close() }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			m.logger.Warn("Vector store close failed", zap.Error(err))
		}
	})
	return err
}
