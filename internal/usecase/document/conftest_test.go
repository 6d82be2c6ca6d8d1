package document

import (
	"context"
	"sync"

	"github.com/kailas-cloud/textupsert/internal/domain"
	domdoc "github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/lifecycle"
)

// --- Mocks ---

type mockState struct {
	state *lifecycle.State
}

func (m *mockState) State() (*lifecycle.State, bool) {
	return m.state, m.state != nil
}

type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	texts   []string
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 3}, nil
}

type mockCollection struct {
	mu       sync.Mutex
	upserted [][]domdoc.Record
	upsertFn func(ctx context.Context, records []domdoc.Record) error
}

func (m *mockCollection) Name() string { return "docs" }

func (m *mockCollection) Upsert(ctx context.Context, records []domdoc.Record) error {
	m.mu.Lock()
	m.upserted = append(m.upserted, records)
	m.mu.Unlock()
	if m.upsertFn != nil {
		return m.upsertFn(ctx, records)
	}
	return nil
}

func (m *mockCollection) Count(context.Context) (int, error) { return 0, nil }

func (m *mockCollection) Peek(context.Context, int) ([]domdoc.Record, error) { return nil, nil }

func (m *mockCollection) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserted)
}

func newTestService(emb *mockEmbedder, col *mockCollection) *Service {
	return New(&mockState{state: &lifecycle.State{Embedder: emb, Collection: col}}, 0)
}
