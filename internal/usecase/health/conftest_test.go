package health

import (
	"context"

	"github.com/kailas-cloud/textupsert/internal/domain"
	domdoc "github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/lifecycle"
)

// --- Mocks ---

type mockState struct {
	state *lifecycle.State
}

func (m *mockState) State() (*lifecycle.State, bool) { return m.state, m.state != nil }

func (m *mockState) Components() lifecycle.Components {
	if m.state == nil {
		return lifecycle.Components{}
	}
	return lifecycle.Components{
		EmbeddingGateway: m.state.Embedder != nil,
		StoreClient:      m.state.Store != nil,
		StoreCollection:  m.state.Collection != nil,
	}
}

type mockEmbedder struct {
	healthFn func(ctx context.Context) error
}

func (m *mockEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, nil
}

func (m *mockEmbedder) HealthCheck(ctx context.Context) error {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return nil
}

type mockStore struct {
	pingErr error
}

func (m *mockStore) GetOrCreateCollection(context.Context, string) (domain.Collection, error) {
	return nil, nil
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }

func (m *mockStore) Close() error { return nil }

type mockCollection struct {
	countErr error
}

func (m *mockCollection) Name() string { return "docs" }

func (m *mockCollection) Upsert(context.Context, []domdoc.Record) error { return nil }

func (m *mockCollection) Count(context.Context) (int, error) { return 7, m.countErr }

func (m *mockCollection) Peek(context.Context, int) ([]domdoc.Record, error) { return nil, nil }

func readyState(emb domain.Embedder, store *mockStore, col *mockCollection) *mockState {
	return &mockState{state: &lifecycle.State{Embedder: emb, Store: store, Collection: col}}
}
