package document

import (
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
)

// MaxTextLength is the maximum document text length in characters.
const MaxTextLength = 50000

// Record is the unit persisted in a collection (immutable value object).
type Record struct {
	id       string
	content  string
	metadata metadata.Metadata
	vector   []float32
}

// New validates and creates a Record ready for upsert.
func New(id, content string, md metadata.Metadata, vector []float32) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	if content == "" {
		return Record{}, fmt.Errorf("content is required")
	}
	if n := utf8.RuneCountInString(content); n > MaxTextLength {
		return Record{}, fmt.Errorf("content too long (%d characters, max %d)", n, MaxTextLength)
	}
	if len(vector) == 0 {
		return Record{}, fmt.Errorf("embedding vector is required")
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	return Record{
		id:       id,
		content:  content,
		metadata: md.Clone(),
		vector:   vec,
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id, content string, md metadata.Metadata) Record {
	return Record{id: id, content: content, metadata: md}
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Content returns the document text.
func (r Record) Content() string { return r.content }

// Metadata returns the sanitized metadata.
func (r Record) Metadata() metadata.Metadata { return r.metadata }

// Vector returns the embedding vector. Nil for hydrated samples.
func (r Record) Vector() []float32 { return r.vector }

// Preview returns the content cut to limit characters with a trailing "..."
// when it is longer.
func (r Record) Preview(limit int) string {
	if limit <= 0 || utf8.RuneCountInString(r.content) <= limit {
		return r.content
	}
	runes := []rune(r.content)
	return string(runes[:limit]) + "..."
}
