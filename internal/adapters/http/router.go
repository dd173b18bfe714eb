package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"

	"github.com/kirillkom/intellidocs/internal/config"
	"github.com/kirillkom/intellidocs/internal/core/ports"
	"github.com/kirillkom/intellidocs/internal/observability/metrics"
)

const serviceName = "intellidocs-api"

// Services are the inbound ports the HTTP and MCP surfaces dispatch to.
type Services struct {
	Ingestor   ports.DocumentIngestor
	Processor  ports.DocumentProcessor
	Documents  ports.DocumentService
	Categories ports.CategoryRegistry
	Chat       ports.ChatRelay
	Stats      ports.StatsReader
}

type Router struct {
	cfg       config.Config
	svc       Services
	metrics   *metrics.HTTPServerMetrics
	validator *contractValidator
	limiter   *rate.Limiter
}

type Option func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(cfg config.Config, svc Services, opts ...Option) (*Router, error) {
	validator, err := newContractValidator()
	if err != nil {
		return nil, err
	}
	rt := &Router{
		cfg:       cfg,
		svc:       svc,
		validator: validator,
	}
	if cfg.APIRateLimitRPS > 0 {
		burst := cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		rt.limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler {
			return rt.metrics.Middleware(serviceName, next)
		})
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	r.Get("/healthz", rt.healthz)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.limiter)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
		})
		r.Use(bearerAuthMiddleware(rt.cfg.APIToken))

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/openapi.json", rt.validator.serveSpec)

			r.Group(func(r chi.Router) {
				r.Use(rt.validator.middleware)

				r.Get("/categories", rt.listCategories)
				r.Post("/categories", rt.addCategory)
				r.Delete("/categories/{name}", rt.deleteCategory)

				r.Get("/documents", rt.listDocuments)
				r.Get("/documents/search", rt.searchDocuments)
				r.Get("/documents/{id}", rt.getDocument)
				r.Delete("/documents/{id}", rt.archiveDocument)
				r.Get("/documents/{id}/download", rt.downloadDocument)
				r.Get("/documents/{id}/history", rt.documentHistory)
				r.Post("/documents/{id}/kv", rt.updateKeyValues)
				r.Post("/documents/{id}/process", rt.processDocument)
				r.Post("/documents/{id}/reprocess", rt.reprocessDocument)
				r.Post("/documents/{id}/recategorize", rt.recategorizeDocument)
				r.Post("/uploads", rt.uploadDocument)

				r.Post("/chat/general", rt.chatGeneral)
				r.Post("/chat/kv", rt.chatKeyValue)

				r.Get("/dashboard/stats", rt.dashboardStats)
			})
		})

		r.Handle("/mcp", server.NewStreamableHTTPServer(NewMCPServer(rt.svc)))
	})

	return requestIDMiddleware(r)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recordDocumentOp(operation string, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordDocumentOperation(serviceName, operation, err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
