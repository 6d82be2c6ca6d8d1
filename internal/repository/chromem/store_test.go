package chromem

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/textupsert/internal/domain/document"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
)

func newRecord(t *testing.T, id, text string, md metadata.Metadata) document.Record {
	t.Helper()
	rec, err := document.New(id, text, md, []float32{0.6, 0.8, 0})
	require.NoError(t, err)
	return rec
}

func TestStore_UpsertCountPeek(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	col, err := s.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", col.Name())

	md := metadata.Metadata{
		"source":      metadata.String("unit"),
		"text_length": metadata.Int(5),
		"score":       metadata.Float(2),
		"draft":       metadata.Bool(true),
		"owner":       metadata.Null(),
	}
	require.NoError(t, col.Upsert(ctx, []document.Record{newRecord(t, "a", "hello", md)}))

	n, err := col.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	samples, err := col.Peek(ctx, 5)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "a", samples[0].ID())
	assert.Equal(t, "hello", samples[0].Content())
	assert.Equal(t, md, samples[0].Metadata())
}

func TestStore_UpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{}, nil)
	require.NoError(t, err)
	col, err := s.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)

	require.NoError(t, col.Upsert(ctx, []document.Record{newRecord(t, "same", "first", nil)}))
	require.NoError(t, col.Upsert(ctx, []document.Record{newRecord(t, "same", "second", nil)}))

	n, err := col.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	samples, err := col.Peek(ctx, 5)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "second", samples[0].Content())
}

func TestStore_GetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{}, nil)
	require.NoError(t, err)

	first, err := s.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, []document.Record{newRecord(t, "x", "text", nil)}))

	second, err := s.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)
	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PeekEmptyAndLimit(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{Dimensions: 3}, nil)
	require.NoError(t, err)
	col, err := s.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)

	samples, err := col.Peek(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, samples)

	var recs []document.Record
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		recs = append(recs, newRecord(t, id, "text "+id, nil))
	}
	require.NoError(t, col.Upsert(ctx, recs))

	samples, err = col.Peek(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, samples, 5)
}

func TestStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(Config{Path: dir}, nil)
	require.NoError(t, err)
	col, err := s.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)
	require.NoError(t, col.Upsert(ctx, []document.Record{newRecord(t, "p", "persisted", nil)}))
	require.NoError(t, s.Close())

	reopened, err := New(Config{Path: dir, Dimensions: 3}, nil)
	require.NoError(t, err)
	col, err = reopened.GetOrCreateCollection(ctx, "docs")
	require.NoError(t, err)

	n, err := col.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ReopenedPeekUsesRecordedDimensions(t *testing.T) {
	for _, configured := range []int{0, 4} {
		t.Run(strconv.Itoa(configured), func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			s, err := New(Config{Path: dir}, nil)
			require.NoError(t, err)
			col, err := s.GetOrCreateCollection(ctx, "docs")
			require.NoError(t, err)
			require.NoError(t, col.Upsert(ctx, []document.Record{newRecord(t, "p", "persisted", nil)}))
			require.NoError(t, s.Close())

			reopened, err := New(Config{Path: dir, Dimensions: configured}, nil)
			require.NoError(t, err)
			col, err = reopened.GetOrCreateCollection(ctx, "docs")
			require.NoError(t, err)

			samples, err := col.Peek(ctx, 5)
			require.NoError(t, err)
			require.Len(t, samples, 1)
			assert.Equal(t, "persisted", samples[0].Content())

			n, err := col.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestStore_DimensionsCollectionIsReserved(t *testing.T) {
	s, err := New(Config{}, nil)
	require.NoError(t, err)

	_, err = s.GetOrCreateCollection(context.Background(), dimsCollection)
	require.Error(t, err)
}

func TestDecodeMetadata_ForeignStrings(t *testing.T) {
	md := decodeMetadata(map[string]string{
		"plain": "not json",
		"num":   "42",
		"flt":   "1.0",
	})
	assert.Equal(t, metadata.String("not json"), md["plain"])
	assert.Equal(t, metadata.Int(42), md["num"])
	assert.Equal(t, metadata.Float(1), md["flt"])
}

func TestEncodeMetadata(t *testing.T) {
	out, err := encodeMetadata(metadata.Metadata{"s": metadata.String("a b")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out["s"], `"`))
}
