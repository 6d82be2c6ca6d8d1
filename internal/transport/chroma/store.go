package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
	"github.com/kailas-cloud/textupsert/internal/metrics"
)

// Collection implements domain.Collection.
type Collection struct {
	col  chromago.Collection
	name string
}

// Name implements domain.Collection.
func (c *Collection) Name() string { return c.name }

// ID returns the server-side collection id.
func (c *Collection) ID() string { return c.col.ID() }

// Upsert implements domain.Collection.
func (c *Collection) Upsert(ctx context.Context, records []document.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]chromago.DocumentID, len(records))
	texts := make([]string, len(records))
	vectors := make([]embeddings.Embedding, len(records))
	mds := make([]chromago.DocumentMetadata, len(records))
	for i, rec := range records {
		ids[i] = chromago.DocumentID(rec.ID())
		texts[i] = rec.Content()
		vectors[i] = embeddings.NewEmbeddingFromFloat32(rec.Vector())
		mds[i] = toDocumentMetadata(rec.Metadata())
	}

	start := time.Now()
	err := c.col.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vectors...),
		chromago.WithMetadatas(mds...),
	)
	metrics.ObserveStoreOp(backend, "upsert", start, err)
	if err != nil {
		return fmt.Errorf("upsert into %q: %w: %w", c.name, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Count implements domain.Collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := c.col.Count(ctx)
	metrics.ObserveStoreOp(backend, "count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w: %w", c.name, domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Peek implements domain.Collection.
func (c *Collection) Peek(ctx context.Context, limit int) ([]document.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	start := time.Now()
	res, err := c.col.Get(ctx,
		chromago.WithLimitGet(limit),
		chromago.WithIncludeGet(chromago.IncludeDocuments, chromago.IncludeMetadatas),
	)
	metrics.ObserveStoreOp(backend, "peek", start, err)
	if err != nil {
		return nil, fmt.Errorf("peek %q: %w: %w", c.name, domain.ErrStoreUnavailable, err)
	}

	ids := res.GetIDs()
	docs := res.GetDocuments()
	mds := res.GetMetadatas()

	out := make([]document.Record, 0, len(ids))
	for i, id := range ids {
		var content string
		if i < len(docs) && docs[i] != nil {
			content = docs[i].ContentString()
		}
		var md metadata.Metadata
		if i < len(mds) {
			md = fromDocumentMetadata(mds[i])
		}
		out = append(out, document.Reconstruct(string(id), content, md))
	}
	return out, nil
}

// toDocumentMetadata maps sanitized metadata onto Chroma attributes.
// Chroma has no null attribute, so null values are left out.
func toDocumentMetadata(md metadata.Metadata) chromago.DocumentMetadata {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]*chromago.MetaAttribute, 0, len(keys))
	for _, k := range keys {
		v := md[k]
		switch v.Kind() { //nolint:exhaustive // sanitized values are primitive
		case metadata.KindString:
			attrs = append(attrs, chromago.NewStringAttribute(k, v.Text()))
		case metadata.KindInt:
			attrs = append(attrs, chromago.NewIntAttribute(k, v.Any().(int64)))
		case metadata.KindFloat:
			attrs = append(attrs, chromago.NewFloatAttribute(k, v.Any().(float64)))
		case metadata.KindBool:
			attrs = append(attrs, chromago.NewBoolAttribute(k, v.Any().(bool)))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

// fromDocumentMetadata goes through the attribute set's JSON form so integer
// and float attributes keep their kind.
func fromDocumentMetadata(md chromago.DocumentMetadata) metadata.Metadata {
	if md == nil {
		return nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil
	}
	return metadata.FromStored(raw)
}
