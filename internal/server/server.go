// Package server exposes the aggregated usage reports over HTTP for the
// web dashboard.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tokdash/tokdash-go/internal/compute"
	"github.com/tokdash/tokdash-go/internal/config"
	"github.com/tokdash/tokdash-go/internal/types"
)

// Server serves the usage API with a short-lived response cache in
// front of the aggregation engine.
type Server struct {
	engine *compute.Engine
	cfg    *config.Config
	cache  *responseCache
	logger *slog.Logger
	router chi.Router
}

func New(engine *compute.Engine, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	cache, err := newResponseCache(cfg.CacheTTL())
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine: engine,
		cfg:    cfg,
		cache:  cache,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware(cfg.AllowOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/api/usage", s.handleUsage)
	r.Get("/api/tools", s.handleTools)
	r.Get("/api/openclaw", s.handleOpenclaw)
	r.Get("/api/stats", s.handleStats)

	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is canceled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer s.cache.close()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cached serves the marshaled response for key from the cache, invoking
// build on a miss.
func (s *Server) cached(w http.ResponseWriter, key string, build func() any) {
	if body, ok := s.cache.get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	body, err := json.Marshal(build())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.cache.set(key, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func periodParam(r *http.Request) string {
	if period := r.URL.Query().Get("period"); period != "" {
		return period
	}
	return "today"
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	period := periodParam(r)
	s.cached(w, "usage_"+period, func() any {
		return s.engine.Usage(r.Context(), period)
	})
}

type toolsResponse struct {
	types.CodingUsage
	Period    string `json:"period"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	period := periodParam(r)

	var sourceNames []string
	if raw := r.URL.Query().Get("sources"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sourceNames = append(sourceNames, name)
			}
		}
	}

	key := fmt.Sprintf("tools_%s_%s", period, strings.Join(sourceNames, ","))
	s.cached(w, key, func() any {
		return toolsResponse{
			CodingUsage: s.engine.ToolsUsage(r.Context(), period, sourceNames...),
			Period:      period,
			Timestamp:   time.Now().Format(time.RFC3339),
		}
	})
}

type openclawResponse struct {
	types.SessionUsage
	Period    string `json:"period"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleOpenclaw(w http.ResponseWriter, r *http.Request) {
	period := periodParam(r)
	s.cached(w, "openclaw_"+period, func() any {
		return openclawResponse{
			SessionUsage: s.engine.SessionUsage(period),
			Period:       period,
			Timestamp:    time.Now().Format(time.RFC3339),
		}
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		year = n
	}

	s.cached(w, fmt.Sprintf("stats_%d", year), func() any {
		return s.engine.Stats(r.Context(), year)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
