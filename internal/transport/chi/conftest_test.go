package chi

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/kailas-cloud/textupsert/internal/domain"
	collectionuc "github.com/kailas-cloud/textupsert/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/textupsert/internal/usecase/document"
	healthuc "github.com/kailas-cloud/textupsert/internal/usecase/health"
)

const testToken = "secret"

// --- Mocks ---

type mockUpserter struct {
	mu       sync.Mutex
	calls    int
	last     documentuc.UpsertRequest
	upsertFn func(ctx context.Context, req documentuc.UpsertRequest) (documentuc.UpsertResult, error)
}

func (m *mockUpserter) UpsertText(ctx context.Context, req documentuc.UpsertRequest) (documentuc.UpsertResult, error) {
	m.mu.Lock()
	m.calls++
	m.last = req
	m.mu.Unlock()
	if m.upsertFn != nil {
		return m.upsertFn(ctx, req)
	}
	domain.UsageFromContext(ctx).Record(domain.EmbeddingResult{TotalTokens: 4}, false)
	return documentuc.UpsertResult{ID: "doc-1", DocumentsUpserted: 1}, nil
}

type mockInspector struct {
	info collectionuc.Info
	err  error
}

func (m *mockInspector) Info(context.Context) (collectionuc.Info, error) { return m.info, m.err }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func healthyReport() healthuc.Report {
	return healthuc.Report{
		Status: healthuc.Healthy,
		Services: map[string]healthuc.Status{
			healthuc.EmbeddingGateway: healthuc.Healthy,
			healthuc.StoreClient:      healthuc.Healthy,
			healthuc.StoreCollection:  healthuc.Healthy,
		},
	}
}

type testDeps struct {
	upserter  *mockUpserter
	inspector *mockInspector
	health    *mockHealth
	opts      RouterOptions
	maxBody   int64
}

func newTestDeps() *testDeps {
	return &testDeps{
		upserter:  &mockUpserter{},
		inspector: &mockInspector{info: collectionuc.Info{CollectionName: "docs"}},
		health:    &mockHealth{report: healthyReport()},
		opts: RouterOptions{
			Tokens:         []string{testToken},
			AllowedOrigins: []string{"*"},
		},
	}
}

func (d *testDeps) router() http.Handler {
	return NewRouter(NewServer(d.upserter, d.inspector, d.health, d.maxBody), d.opts)
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
