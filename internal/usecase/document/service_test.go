package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/textupsert/internal/domain"
	domdoc "github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
	"github.com/kailas-cloud/textupsert/internal/lifecycle"
)

var fixedNow = time.UnixMilli(1700000000123)

func fixedClock() time.Time { return fixedNow }

func TestUpsertText_NotInitialized(t *testing.T) {
	svc := New(&mockState{}, 0)

	_, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "hello"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestUpsertText_EmptyTextRejectedBeforeGateways(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		t.Run(strings.ReplaceAll(text, " ", "_"), func(t *testing.T) {
			emb := &mockEmbedder{}
			col := &mockCollection{}
			svc := newTestService(emb, col)

			_, err := svc.UpsertText(context.Background(), UpsertRequest{Text: text})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if emb.calls != 0 {
				t.Errorf("embedder called %d times, want 0", emb.calls)
			}
			if col.calls() != 0 {
				t.Errorf("store called %d times, want 0", col.calls())
			}
		})
	}
}

func TestUpsertText_TooLong(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(emb, &mockCollection{})

	_, err := svc.UpsertText(context.Background(), UpsertRequest{
		Text: strings.Repeat("a", domdoc.MaxTextLength+1),
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times, want 0", emb.calls)
	}
}

func TestUpsertText_TrimsAndAnnotates(t *testing.T) {
	emb := &mockEmbedder{}
	col := &mockCollection{}
	svc := newTestService(emb, col).WithClock(fixedClock)

	res, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "  hello world  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(emb.texts) != 1 || emb.texts[0] != "hello world" {
		t.Errorf("embedded texts = %q", emb.texts)
	}
	if col.calls() != 1 || len(col.upserted[0]) != 1 {
		t.Fatalf("upsert calls = %d", col.calls())
	}

	rec := col.upserted[0][0]
	if rec.Content() != "hello world" {
		t.Errorf("Content() = %q", rec.Content())
	}
	if got := rec.Metadata()[KeyTextLength]; got != metadata.Int(11) {
		t.Errorf("text_length = %v, want 11", got)
	}
	if got := rec.Metadata()[KeyUpsertedAt]; got != metadata.String("2023-11-14T22:13:20.123Z") {
		t.Errorf("upserted_at = %v", got)
	}

	wantID := domdoc.GenerateID("hello world", fixedNow)
	if res.ID != wantID || rec.ID() != wantID {
		t.Errorf("id = %q / %q, want %q", res.ID, rec.ID(), wantID)
	}
	if res.DocumentsUpserted != 1 {
		t.Errorf("DocumentsUpserted = %d", res.DocumentsUpserted)
	}
}

func TestUpsertText_StoresEmbeddedVector(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{Embedding: []float32{1, 2, 3, 4}}, nil
	}}
	col := &mockCollection{}
	svc := newTestService(emb, col)

	if _, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "vector"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vec := col.upserted[0][0].Vector()
	if len(vec) != 4 || vec[3] != 4 {
		t.Errorf("Vector() = %v", vec)
	}
}

func TestUpsertText_CallerIDVerbatim(t *testing.T) {
	col := &mockCollection{}
	svc := newTestService(&mockEmbedder{}, col)

	res, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "x", ID: "  My-ID  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "  My-ID  " || col.upserted[0][0].ID() != "  My-ID  " {
		t.Errorf("id = %q", res.ID)
	}
}

func TestUpsertText_TextLengthCountsCharacters(t *testing.T) {
	col := &mockCollection{}
	svc := newTestService(&mockEmbedder{}, col)

	if _, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "grüße"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := col.upserted[0][0].Metadata()[KeyTextLength]; got != metadata.Int(5) {
		t.Errorf("text_length = %v, want 5", got)
	}
}

func TestUpsertText_SystemKeysOverrideCaller(t *testing.T) {
	col := &mockCollection{}
	svc := newTestService(&mockEmbedder{}, col).WithClock(fixedClock)

	caller := map[string]any{
		KeyTextLength: "bogus",
		KeyUpsertedAt: "yesterday",
		"source":      "upload",
	}
	if _, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "abc", Metadata: caller}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md := col.upserted[0][0].Metadata()
	if md[KeyTextLength] != metadata.Int(3) {
		t.Errorf("text_length = %v", md[KeyTextLength])
	}
	if md[KeyUpsertedAt] != metadata.String("2023-11-14T22:13:20.123Z") {
		t.Errorf("upserted_at = %v", md[KeyUpsertedAt])
	}
	if md["source"] != metadata.String("upload") {
		t.Errorf("source = %v", md["source"])
	}
	if caller[KeyTextLength] != "bogus" {
		t.Error("caller metadata must not be mutated")
	}
}

func TestUpsertText_SanitizesMetadata(t *testing.T) {
	col := &mockCollection{}
	svc := newTestService(&mockEmbedder{}, col)

	caller := map[string]any{
		"tags":   []any{"a", "b", 3},
		"nested": map[string]any{"k": "v"},
		"plain":  true,
	}
	if _, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "abc", Metadata: caller}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md := col.upserted[0][0].Metadata()
	if md["tags"] != metadata.String("a, b, 3") {
		t.Errorf("tags = %v", md["tags"])
	}
	if md["nested"] != metadata.String(`{"k":"v"}`) {
		t.Errorf("nested = %v", md["nested"])
	}
	if md["plain"] != metadata.Bool(true) {
		t.Errorf("plain = %v", md["plain"])
	}
	note := md[metadata.ConversionsKey].Text()
	if !strings.Contains(note, "tags") || !strings.Contains(note, "nested") {
		t.Errorf("conversions note = %q", note)
	}
	if strings.Contains(note, KeyTextLength) || strings.Contains(note, KeyUpsertedAt) {
		t.Errorf("system keys must not be noted as conversions: %q", note)
	}
}

func TestUpsertText_PrimitiveMetadataHasNoNote(t *testing.T) {
	col := &mockCollection{}
	svc := newTestService(&mockEmbedder{}, col)

	caller := map[string]any{"s": "x", "n": 2, "f": 1.5, "b": false, "z": nil}
	if _, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "abc", Metadata: caller}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := col.upserted[0][0].Metadata()[metadata.ConversionsKey]; ok {
		t.Error("primitive metadata must not produce a conversions note")
	}
}

func TestUpsertText_EmbeddingFailureSkipsStore(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, errors.New("connection refused")
	}}
	col := &mockCollection{}
	svc := newTestService(emb, col)

	_, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "hello"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if col.calls() != 0 {
		t.Errorf("store called %d times after embedding failure", col.calls())
	}
}

func TestUpsertText_EmptyVectorIsEmbeddingFailure(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, nil
	}}
	col := &mockCollection{}
	svc := newTestService(emb, col)

	_, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "hello"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if col.calls() != 0 {
		t.Errorf("store called %d times", col.calls())
	}
}

func TestUpsertText_StoreFailure(t *testing.T) {
	col := &mockCollection{upsertFn: func(context.Context, []domdoc.Record) error {
		return errors.New("502 bad gateway")
	}}
	svc := newTestService(&mockEmbedder{}, col)

	_, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "hello"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestUpsertText_StoreTimeoutApplied(t *testing.T) {
	col := &mockCollection{upsertFn: func(ctx context.Context, _ []domdoc.Record) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("store write must carry a deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	}}
	st := &lifecycle.State{Embedder: &mockEmbedder{}, Collection: col}
	svc := New(&mockState{state: st}, 20*time.Millisecond)

	_, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "slow"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestUpsertText_ElapsedReported(t *testing.T) {
	emb := &mockEmbedder{embedFn: func(context.Context, string) (domain.EmbeddingResult, error) {
		time.Sleep(5 * time.Millisecond)
		return domain.EmbeddingResult{Embedding: []float32{1}}, nil
	}}
	svc := newTestService(emb, &mockCollection{})

	res, err := svc.UpsertText(context.Background(), UpsertRequest{Text: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Elapsed < 5*time.Millisecond {
		t.Errorf("Elapsed = %v", res.Elapsed)
	}
}
