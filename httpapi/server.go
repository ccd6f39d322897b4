// Package httpapi serves provider rate-limit checks over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pkt.systems/ailimit/core"
	"pkt.systems/ailimit/internal/metrics"
	"pkt.systems/ailimit/internal/version"
	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

// Server serves the status API.
type Server struct {
	cfg     Config
	service core.Service
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service) *Server {
	return &Server{cfg: cfg, service: service}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	metrics.Register()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(withRecovery)
	r.Use(withRequestLogging)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/limits", s.handleLimits)
	r.Get("/v1/providers", s.handleProviders)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": version.Describe()})
}

// handleLimits runs a fresh check. provider may repeat or carry a comma
// separated list; none selects the configured defaults.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	log := pslog.Ctx(r.Context())
	var ids []schema.ProviderID
	if names := r.URL.Query()["provider"]; len(names) > 0 {
		normalized, err := schema.NormalizeProviders(names)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		ids = normalized
	}

	ctx := r.Context()
	if s.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CheckTimeout)
		defer cancel()
	}
	resp, err := s.service.Check(ctx, schema.CheckRequest{Providers: ids})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, schema.ErrUnknownProvider) {
			status = http.StatusBadRequest
		}
		log.Warn("http limits check failed", "err", err)
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Debug("http limits ok", "count", len(resp.Statuses), "warnings", len(resp.Warnings))
}

type providerInfo struct {
	Provider  schema.ProviderID `json:"provider"`
	Available bool              `json:"available"`
	Reason    string            `json:"reason,omitempty"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	probe := s.service.Probe(r.Context())
	out := make([]providerInfo, 0, len(probe))
	for _, id := range s.service.Providers() {
		info := providerInfo{Provider: id, Available: probe[id] == nil}
		if err := probe[id]; err != nil {
			info.Reason = err.Error()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
