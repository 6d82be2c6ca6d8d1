package document

import (
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
)

func TestNew_Valid(t *testing.T) {
	md := metadata.Metadata{"lang": metadata.String("go")}
	vec := []float32{0.1, 0.2}

	rec, err := New("doc-1", "hello world", md, vec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID() != "doc-1" {
		t.Errorf("ID() = %q", rec.ID())
	}
	if rec.Content() != "hello world" {
		t.Errorf("Content() = %q", rec.Content())
	}
	if rec.Metadata()["lang"] != metadata.String("go") {
		t.Errorf("Metadata() = %v", rec.Metadata())
	}
	if len(rec.Vector()) != 2 {
		t.Errorf("Vector() = %v", rec.Vector())
	}
}

func TestNew_CopiesInputs(t *testing.T) {
	md := metadata.Metadata{"k": metadata.String("v")}
	vec := []float32{1, 2}

	rec, err := New("id", "text", md, vec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	md["k"] = metadata.String("changed")
	vec[0] = 99

	if rec.Metadata()["k"] != metadata.String("v") {
		t.Error("record metadata must not alias the caller map")
	}
	if rec.Vector()[0] != 1 {
		t.Error("record vector must not alias the caller slice")
	}
}

func TestNew_Invalid(t *testing.T) {
	vec := []float32{1}
	tests := []struct {
		name    string
		id      string
		content string
		vec     []float32
	}{
		{"empty id", "", "text", vec},
		{"empty content", "id", "", vec},
		{"too long", "id", strings.Repeat("a", MaxTextLength+1), vec},
		{"no vector", "id", "text", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, tc.content, nil, tc.vec); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_MaxLengthCountsCharacters(t *testing.T) {
	text := strings.Repeat("ä", MaxTextLength) // 2 bytes per rune
	if _, err := New("id", text, nil, []float32{1}); err != nil {
		t.Fatalf("unexpected error at exactly max characters: %v", err)
	}
}

func TestPreview(t *testing.T) {
	short := Reconstruct("a", "short text", nil)
	if got := short.Preview(200); got != "short text" {
		t.Errorf("Preview() = %q", got)
	}

	long := Reconstruct("b", strings.Repeat("x", 250), nil)
	got := long.Preview(200)
	if got != strings.Repeat("x", 200)+"..." {
		t.Errorf("Preview() length = %d, want 203", len(got))
	}

	exact := Reconstruct("c", strings.Repeat("y", 200), nil)
	if got := exact.Preview(200); got != strings.Repeat("y", 200) {
		t.Error("text of exactly the limit must not be truncated")
	}

	multi := Reconstruct("d", strings.Repeat("ü", 201), nil)
	if got := multi.Preview(200); got != strings.Repeat("ü", 200)+"..." {
		t.Error("truncation must count characters, not bytes")
	}
}

func TestGenerateID_Format(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := GenerateID("hello world", now)

	// sha256("hello world") = b94d27b9934d3e08...
	if id != "b94d27b9934d3e08_1700000000123" {
		t.Errorf("GenerateID() = %q", id)
	}
}

func TestGenerateID_SameTextDifferentTime(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := GenerateID("same", now)
	b := GenerateID("same", now.Add(time.Millisecond))
	if a == b {
		t.Errorf("expected distinct ids, got %q twice", a)
	}
}

func TestGenerateID_DistinctTextSameMillisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	seen := make(map[string]string)
	for _, text := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		id := GenerateID(text, now)
		if prev, ok := seen[id]; ok {
			t.Fatalf("collision between %q and %q: %s", prev, text, id)
		}
		seen[id] = text
	}
}

func TestGenerateID_Deterministic(t *testing.T) {
	now := time.UnixMilli(42)
	if GenerateID("x", now) != GenerateID("x", now) {
		t.Error("same text and time must yield the same id")
	}
}
