package client

import "time"

// UpsertTextRequest is one text to embed and store.
type UpsertTextRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	// ID overrides the generated document id.
	ID string `json:"id,omitempty"`
}

// UpsertTextResult is the server's answer to a successful upsert.
type UpsertTextResult struct {
	Status            string   `json:"status"`
	DocumentsUpserted int      `json:"documents_upserted"`
	IDs               []string `json:"ids"`
	ProcessingTimeMS  float64  `json:"processing_time_ms"`
}

// ID returns the id of the upserted document.
func (r UpsertTextResult) ID() string {
	if len(r.IDs) == 0 {
		return ""
	}
	return r.IDs[0]
}

// Health is the service health report. Returned for 200 and 503 alike.
type Health struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Healthy reports whether every component is healthy.
func (h Health) Healthy() bool { return h.Status == "healthy" }

// SampleDocument is one record returned by CollectionInfo.
type SampleDocument struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
}

// CollectionInfo describes the target collection.
type CollectionInfo struct {
	CollectionName  string           `json:"collection_name"`
	DocumentCount   int              `json:"document_count"`
	SampleDocuments []SampleDocument `json:"sample_documents"`
}

// ServiceInfo is the static description served at /.
type ServiceInfo struct {
	Service     string            `json:"service"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Endpoints   map[string]string `json:"endpoints"`
}
