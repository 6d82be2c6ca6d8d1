package chi

import "github.com/kailas-cloud/textupsert/internal/domain/metadata"

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeInvalidInput         ErrorCode = "invalid_input"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed     ErrorCode = "method_not_allowed"
	ErrorCodeRateLimited          ErrorCode = "rate_limited"
	ErrorCodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	ErrorCodeStoreUnavailable     ErrorCode = "store_unavailable"
	ErrorCodeServiceUnavailable   ErrorCode = "service_unavailable"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// UpsertTextRequest is the POST /upsert-text body.
type UpsertTextRequest struct {
	Text     *string        `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	ID       *string        `json:"id,omitempty"`
}

// UpsertTextResponse is the POST /upsert-text success body.
type UpsertTextResponse struct {
	Status            string   `json:"status"`
	DocumentsUpserted int      `json:"documents_upserted"`
	IDs               []string `json:"ids"`
	ProcessingTimeMS  float64  `json:"processing_time_ms"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// SampleDocument is one record in a collection-info response.
type SampleDocument struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata metadata.Metadata `json:"metadata"`
}

// CollectionInfoResponse is the GET /collection-info body.
type CollectionInfoResponse struct {
	CollectionName  string           `json:"collection_name"`
	DocumentCount   int              `json:"document_count"`
	SampleDocuments []SampleDocument `json:"sample_documents"`
}

// RootResponse is the GET / body.
type RootResponse struct {
	Service     string            `json:"service"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Endpoints   map[string]string `json:"endpoints"`
}
