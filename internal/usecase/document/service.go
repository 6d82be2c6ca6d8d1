package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/domain"
	domdoc "github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
	"github.com/kailas-cloud/textupsert/internal/logger"
	"github.com/kailas-cloud/textupsert/internal/metrics"
)

// System metadata keys. They override caller keys of the same name.
const (
	KeyUpsertedAt = "upserted_at"
	KeyTextLength = "text_length"
)

// upsertedAtLayout is RFC 3339 with millisecond precision.
const upsertedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// UpsertRequest is one text to embed and store.
type UpsertRequest struct {
	Text     string
	Metadata map[string]any
	ID       string
}

// UpsertResult describes a successful upsert.
type UpsertResult struct {
	ID                string
	DocumentsUpserted int
	Elapsed           time.Duration
}

// Service runs the upsert pipeline: validate, identify, annotate, sanitize, embed, store.
type Service struct {
	state        StateReader
	storeTimeout time.Duration
	now          func() time.Time
}

// New creates the upsert service. storeTimeout bounds the store write; zero disables it.
func New(state StateReader, storeTimeout time.Duration) *Service {
	return &Service{state: state, storeTimeout: storeTimeout, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UpsertText embeds req.Text and upserts exactly one record. Steps run in
// order and the first failure aborts the rest; nothing is written unless the
// embedding succeeded.
func (s *Service) UpsertText(ctx context.Context, req UpsertRequest) (UpsertResult, error) {
	start := time.Now()

	st, ok := s.state.State()
	if !ok {
		return UpsertResult{}, s.fail(ctx, "not_initialized", domain.ErrServiceUnavailable)
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return UpsertResult{}, s.fail(ctx, "invalid_input",
			fmt.Errorf("text must not be empty: %w", domain.ErrInvalidInput))
	}
	length := utf8.RuneCountInString(text)
	if length > domdoc.MaxTextLength {
		return UpsertResult{}, s.fail(ctx, "invalid_input",
			fmt.Errorf("text is %d characters, max %d: %w", length, domdoc.MaxTextLength, domain.ErrInvalidInput))
	}

	now := s.now()
	id := req.ID
	if id == "" {
		id = domdoc.GenerateID(text, now)
	}

	md := metadata.Sanitize(annotate(req.Metadata, now, length))

	emb, err := st.Embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return UpsertResult{}, s.fail(ctx, "embedding", fmt.Errorf("embed text: %w", err))
	}

	rec, err := domdoc.New(id, text, md, emb.Embedding)
	if err != nil {
		return UpsertResult{}, s.fail(ctx, "embedding",
			fmt.Errorf("build record: %w: %w", domain.ErrEmbeddingUnavailable, err))
	}

	if err := s.write(ctx, st.Collection, rec); err != nil {
		return UpsertResult{}, s.fail(ctx, "store", err)
	}

	metrics.DocumentsUpsertedTotal.Inc()
	logger.FromContext(ctx).Info("Document upserted",
		zap.String("id", id),
		zap.String("collection", st.Collection.Name()),
		zap.Int("text_length", length),
		zap.Bool("generated_id", req.ID == ""),
	)

	return UpsertResult{ID: id, DocumentsUpserted: 1, Elapsed: time.Since(start)}, nil
}

func (s *Service) write(ctx context.Context, col domain.Collection, rec domdoc.Record) error {
	if s.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()
	}

	if err := col.Upsert(ctx, []domdoc.Record{rec}); err != nil {
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("upsert record %q: %w", rec.ID(), err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, kind string, err error) error {
	metrics.UpsertFailuresTotal.WithLabelValues(kind).Inc()
	logger.FromContext(ctx).Warn("Upsert failed", zap.String("kind", kind), zap.Error(err))
	return err
}

// annotate copies the caller metadata and adds the system keys.
func annotate(caller map[string]any, now time.Time, length int) map[string]any {
	out := make(map[string]any, len(caller)+2)
	for k, v := range caller {
		out[k] = v
	}
	out[KeyUpsertedAt] = now.UTC().Format(upsertedAtLayout)
	out[KeyTextLength] = length
	return out
}
