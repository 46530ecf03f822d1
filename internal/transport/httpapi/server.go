// # internal/transport/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nekoscript/internal/core/app"
	"nekoscript/internal/core/config"
	domainerrors "nekoscript/internal/core/errors"
	"nekoscript/internal/shared/observability"
	"nekoscript/internal/shared/util"
)

const (
	headerRequestID = "X-Request-ID"
	limiterTTL      = 10 * time.Minute
	shutdownTimeout = 5 * time.Second
)

// Server exposes the application service over HTTP.
type Server struct {
	svc     *app.Service
	cfg     config.Server
	doc     *openapi3.T
	limiter *util.LimiterRegistry
	mux     *http.ServeMux
	server  *http.Server
}

type route struct {
	method  string
	path    string // as documented
	pattern string // ServeMux pattern, when it differs from path
	limited bool
	handler http.HandlerFunc
}

// New builds the router. Every route must be described in the embedded
// OpenAPI document.
func New(ctx context.Context, svc *app.Service, cfg config.Server) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service is required")
	}
	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		doc:     doc,
		limiter: util.NewLimiterRegistry(ctx, cfg.RateLimit, cfg.RateBurst, limiterTTL),
		mux:     http.NewServeMux(),
	}

	documented := documentedRoutes(doc)
	for _, rt := range s.routes() {
		if _, ok := documented[rt.method+" "+rt.path]; !ok {
			return nil, fmt.Errorf("route %s %s is not documented", rt.method, rt.path)
		}
		pattern := rt.pattern
		if pattern == "" {
			pattern = rt.path
		}
		var h http.Handler = rt.handler
		if rt.limited {
			h = s.rateLimit(h)
		}
		s.mux.Handle(rt.method+" "+pattern, s.instrument(rt.path, h))
	}
	return s, nil
}

func (s *Server) routes() []route {
	return []route{
		{method: http.MethodPost, path: "/api/execute", limited: true, handler: s.handleExecute},
		{method: http.MethodPost, path: "/api/transpile", limited: true, handler: s.handleTranspile},
		{method: http.MethodGet, path: "/api/files", handler: s.handleFileTree},
		{method: http.MethodPost, path: "/api/files", handler: s.handleCreateFile},
		{method: http.MethodPost, path: "/api/folders", handler: s.handleCreateFolder},
		{method: http.MethodGet, path: "/api/files/content", handler: s.handleFileContent},
		{method: http.MethodPut, path: "/api/files/{path}", pattern: "/api/files/{path...}", handler: s.handleUpdateFile},
		{method: http.MethodDelete, path: "/api/files/{path}", pattern: "/api/files/{path...}", handler: s.handleDeleteFile},
		{method: http.MethodGet, path: "/api/packages", handler: s.handleListPackages},
		{method: http.MethodPost, path: "/api/packages", handler: s.handleCreatePackage},
		{method: http.MethodGet, path: "/api/packages/{name}", handler: s.handleGetPackage},
		{method: http.MethodPut, path: "/api/packages/{name}", handler: s.handleUpdatePackage},
		{method: http.MethodPost, path: "/api/packages/{name}/download", handler: s.handleDownloadPackage},
		{method: http.MethodGet, path: "/api/docs", handler: s.handleDocs},
		{method: http.MethodGet, path: "/api/libraries", handler: s.handleLibraries},
		{method: http.MethodGet, path: "/api/runs", handler: s.handleListRuns},
		{method: http.MethodGet, path: "/api/runs/{id}", handler: s.handleGetRun},
		{method: http.MethodGet, path: "/api/openapi.json", handler: s.handleOpenAPI},
		{method: http.MethodGet, path: "/health", handler: s.handleHealth},
		{method: http.MethodGet, path: "/metrics", handler: promhttp.Handler().ServeHTTP},
	}
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// SetRateLimit applies a new per-client rate to existing and future clients.
func (s *Server) SetRateLimit(rate float64, burst int) {
	s.limiter.SetLimit(rate, burst)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument tags the request with an id, bounds its duration and counts it.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		ctx := r.Context()
		if s.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		observability.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		slog.Debug("http request", "request_id", id, "method", r.Method, "route", route,
			"status", rec.status, "took", time.Since(started))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := s.limiter.Get(util.GetClientIP(r, s.cfg.TrustProxy))
		if !lim.Allow(1) {
			observability.RateLimitedTotal.Inc()
			secs := int(lim.RetryAfter().Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, domainerrors.New(domainerrors.CodeRateLimited, "Too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var de *domainerrors.DomainError
	if !errors.As(err, &de) {
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Code: string(domainerrors.CodeInternal)})
		return
	}
	status := statusFor(de.Code)
	if status >= 500 {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: de.Message, Code: string(de.Code)})
}

func statusFor(code domainerrors.ErrorCode) int {
	switch code {
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeValidationError:
		return http.StatusBadRequest
	case domainerrors.CodeConflict:
		return http.StatusConflict
	case domainerrors.CodePermissionDenied:
		return http.StatusForbidden
	case domainerrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case domainerrors.CodeNotSupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, domainerrors.New(domainerrors.CodeValidationError, msg))
}

// decodeJSON reads a bounded JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large", Code: string(domainerrors.CodeValidationError)})
			return false
		}
		badRequest(w, "Invalid JSON body")
		return false
	}
	return true
}
