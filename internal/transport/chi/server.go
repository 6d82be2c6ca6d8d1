package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/logger"
	documentuc "github.com/kailas-cloud/textupsert/internal/usecase/document"
	healthuc "github.com/kailas-cloud/textupsert/internal/usecase/health"
	"github.com/kailas-cloud/textupsert/internal/version"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the HTTP API.
type Server struct {
	upserter      Upserter
	collection    CollectionInspector
	health        HealthChecker
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBodyBytes <= 0 leaves request bodies unbounded.
func NewServer(upserter Upserter, collection CollectionInspector, health HealthChecker, maxBodyBytes int64) *Server {
	return &Server{
		upserter:     upserter,
		collection:   collection,
		health:       health,
		maxBodyBytes: maxBodyBytes,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, ErrorCodeInvalidInput),
			sentinelHandler(domain.ErrServiceUnavailable, http.StatusServiceUnavailable, ErrorCodeServiceUnavailable),
			sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
			sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, ErrorCodeEmbeddingUnavailable),
			sentinelHandler(domain.ErrStoreUnavailable, http.StatusBadGateway, ErrorCodeStoreUnavailable),
		},
	}
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Service:     "textupsert",
		Description: "Embeds text and upserts it with metadata into a vector store collection",
		Version:     version.Version,
		Endpoints: map[string]string{
			"POST /upsert-text":    "Embed text and upsert it as one document (bearer auth)",
			"GET /collection-info": "Collection name, document count and sample documents (bearer auth)",
			"GET /health":          "Component health",
			"GET /metrics":         "Prometheus metrics",
		},
	})
}

// UpsertText handles POST /upsert-text.
func (s *Server) UpsertText(w http.ResponseWriter, r *http.Request) {
	if s.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}

	var req UpsertTextRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeInvalidInput, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidInput, "text is required")
		return
	}

	in := documentuc.UpsertRequest{Text: *req.Text, Metadata: req.Metadata}
	if req.ID != nil {
		in.ID = *req.ID
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.upserter.UpsertText(ctx, in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	writeJSON(w, http.StatusOK, UpsertTextResponse{
		Status:            "success",
		DocumentsUpserted: res.DocumentsUpserted,
		IDs:               []string{res.ID},
		ProcessingTimeMS:  millis(res.Elapsed),
	})
}

// CollectionInfo handles GET /collection-info.
func (s *Server) CollectionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.collection.Info(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	samples := make([]SampleDocument, len(info.Samples))
	for i, smp := range info.Samples {
		samples[i] = SampleDocument{ID: smp.ID, Document: smp.Document, Metadata: smp.Metadata}
	}

	writeJSON(w, http.StatusOK, CollectionInfoResponse{
		CollectionName:  info.CollectionName,
		DocumentCount:   info.DocumentCount,
		SampleDocuments: samples,
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	services := make(map[string]string, len(report.Services))
	for k, v := range report.Services {
		services[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    string(report.Status),
		Timestamp: report.Timestamp.Format(time.RFC3339Nano),
		Services:  services,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage == nil {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	w.Header().Set("X-Embedding-Cache", strconv.FormatBool(usage.CacheHit))
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without upstream details.
// Validation errors are built locally and returned as is.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrServiceUnavailable,
		domain.ErrRateLimited,
		domain.ErrEmbeddingUnavailable,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
