// Package httpapi is the loopback bridge between the host shell and the
// engine. It serves request classification, the blocking switch, navigation
// stripping and the page payload, plus statistics and forced filter
// refreshes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haukened/adshield/internal/adblock/common/log"
	"github.com/haukened/adshield/internal/adblock/domain"
	"github.com/haukened/adshield/internal/adblock/services/stripper"
	"github.com/haukened/adshield/internal/adblock/services/suppress"
)

// maxBodyBytes bounds request bodies; URLs are the largest field.
const maxBodyBytes = 64 << 10

// DefaultUpdateTimeout bounds POST /v1/filters/update.
const DefaultUpdateTimeout = 30 * time.Second

type Classifier interface {
	Classify(req domain.Request) domain.Decision
	IsThirdParty(req domain.Request) bool
	Enabled() bool
	SetEnabled(enabled bool)
}

type Filters interface {
	Payload() domain.Payload
	ForceUpdate(ctx context.Context) domain.UpdateResult
}

type Stats interface {
	Snapshot() domain.Stats
	ResetSession() error
}

type Options struct {
	Classifier    Classifier
	Filters       Filters
	Stats         Stats
	Logger        log.Logger
	UpdateTimeout time.Duration
}

type server struct {
	classifier    Classifier
	filters       Filters
	stats         Stats
	logger        log.Logger
	updateTimeout time.Duration
}

// NewRouter returns the bridge's HTTP handler.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &server{
		classifier:    opts.Classifier,
		filters:       opts.Filters,
		stats:         opts.Stats,
		logger:        log.Component(logger, "httpapi"),
		updateTimeout: opts.UpdateTimeout,
	}
	if s.updateTimeout <= 0 {
		s.updateTimeout = DefaultUpdateTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.handleClassify)
		r.Get("/blocking", s.handleGetBlocking)
		r.Put("/blocking", s.handleSetBlocking)
		r.Post("/navigate", s.handleNavigate)
		r.Get("/payload", s.handlePayload)
		r.Get("/stats", s.handleStats)
		r.Post("/stats/reset", s.handleResetStats)
		r.Post("/filters/update", s.handleForceUpdate)
	})
	return r
}

// requestLogger logs each request at debug level through the engine logger.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}, "http request")
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type classifyRequest struct {
	URL          string              `json:"url"`
	Referrer     string              `json:"referrer"`
	ResourceKind domain.ResourceKind `json:"resourceKind"`
}

type classifyResponse struct {
	Block      bool            `json:"block"`
	Category   domain.Category `json:"category"`
	ThirdParty bool            `json:"thirdParty"`
}

func (s *server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required", nil)
		return
	}
	dreq := domain.Request{URL: req.URL, Referrer: req.Referrer, Kind: req.ResourceKind}
	d := s.classifier.Classify(dreq)
	respondJSON(w, http.StatusOK, classifyResponse{
		Block:      d.Block,
		Category:   d.Category,
		ThirdParty: s.classifier.IsThirdParty(dreq),
	})
}

type blockingState struct {
	Enabled *bool `json:"enabled"`
}

func (s *server) handleGetBlocking(w http.ResponseWriter, r *http.Request) {
	enabled := s.classifier.Enabled()
	respondJSON(w, http.StatusOK, blockingState{Enabled: &enabled})
}

func (s *server) handleSetBlocking(w http.ResponseWriter, r *http.Request) {
	var req blockingState
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required", nil)
		return
	}
	s.classifier.SetEnabled(*req.Enabled)
	enabled := s.classifier.Enabled()
	respondJSON(w, http.StatusOK, blockingState{Enabled: &enabled})
}

type navigateRequest struct {
	URL string `json:"url"`
}

type navigateResponse struct {
	Redirect *string `json:"redirect"`
}

// handleNavigate serves the main-frame navigation hook. A null redirect
// means the URL carries no tracking parameters.
func (s *server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required", nil)
		return
	}
	var resp navigateResponse
	if cleaned, ok := stripper.StripNavigation(req.URL, domain.ResourceMainFrame); ok {
		resp.Redirect = &cleaned
	}
	respondJSON(w, http.StatusOK, resp)
}

// payloadResponse adds a ready-made hiding stylesheet so the host can inject
// CSS before the page's controller starts.
type payloadResponse struct {
	domain.Payload
	QuickCSS string `json:"quickCss"`
}

func (s *server) handlePayload(w http.ResponseWriter, r *http.Request) {
	p := s.filters.Payload()
	respondJSON(w, http.StatusOK, payloadResponse{
		Payload:  p,
		QuickCSS: suppress.QuickStylesheet(p.HideSelectors()),
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.stats.Snapshot())
}

// handleResetStats zeroes the session counters after persisting pending
// lifetime counts, and returns the resulting snapshot.
func (s *server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	if err := s.stats.ResetSession(); err != nil {
		s.logger.Error(map[string]any{"error": err.Error()}, "session reset failed")
		respondError(w, http.StatusInternalServerError, "session reset failed", err)
		return
	}
	respondJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *server) handleForceUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.updateTimeout)
	defer cancel()
	res := s.filters.ForceUpdate(ctx)
	s.logger.Info(map[string]any{"success": res.Success, "version": res.Version}, "forced filter update")
	respondJSON(w, http.StatusOK, res)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, status, "invalid request body", err)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
