package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/metrics"
)

// RouterOptions configures the HTTP middleware stack.
type RouterOptions struct {
	// Tokens are the accepted bearer tokens. Empty disables authentication.
	Tokens []string

	AllowedOrigins   []string
	AllowCredentials bool
	CORSMaxAgeSec    int

	// RateLimitRPS limits POST /upsert-text. Zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	Logger *zap.Logger
}

// NewRouter mounts the API routes of s behind the middleware stack.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Embedding-Tokens", "X-Embedding-Cache"},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.CORSMaxAgeSec,
	}))
	r.Use(BearerAuthMiddleware(opts.Tokens))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/", s.Root)
	r.Get("/health", s.Health)
	r.Get("/collection-info", s.CollectionInfo)
	r.With(rateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst)).Post("/upsert-text", s.UpsertText)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
