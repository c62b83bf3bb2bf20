// Package server provides read-only HTTP status API
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/autoposter/pkg/config"
	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/scheduler"
)

//go:generate moq -out mocks/settings.go -pkg mocks -skip-ensure -fmt goimports . SettingsProvider
//go:generate moq -out mocks/jobs.go -pkg mocks -skip-ensure -fmt goimports . JobsProvider

// SettingsProvider gives current runtime settings
type SettingsProvider interface {
	Get() domain.Settings
}

// JobsProvider lists scheduled posting jobs
type JobsProvider interface {
	Jobs() []scheduler.Job
}

// Server represents HTTP server instance
type Server struct {
	settings SettingsProvider
	jobs     JobsProvider
	config   config.ServerConfig
	version  string
	debug    bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Params contains dependencies for Server
type Params struct {
	Settings SettingsProvider
	Jobs     JobsProvider
	Config   config.ServerConfig
	Version  string
	Debug    bool
}

// StatusResponse is returned by the status endpoint
type StatusResponse struct {
	Status            string          `json:"status"`
	Version           string          `json:"version"`
	Time              time.Time       `json:"time"`
	AutopostEnabled   bool            `json:"autopost_enabled"`
	ChannelConfigured bool            `json:"channel_configured"`
	TotalPosts        int             `json:"total_posts"`
	LastPostAt        *time.Time      `json:"last_post_at,omitempty"`
	NextRun           *time.Time      `json:"next_run,omitempty"`
	Jobs              []scheduler.Job `json:"jobs"`
}

// New initializes a new server instance
func New(params Params) *Server {
	s := &Server{
		settings: params.Settings,
		jobs:     params.Jobs,
		config:   params.Config,
		version:  params.Version,
		debug:    params.Debug,
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting status server on %s", s.config.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Timeout,
		ReadTimeout:       s.config.Timeout,
		WriteTimeout:      s.config.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down status server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("autoposter", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /settings", s.settingsHandler)
	})
}

// statusHandler reports posting state and schedule
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Get()
	jobs := s.jobs.Jobs()
	resp := StatusResponse{
		Status:            "ok",
		Version:           s.version,
		Time:              time.Now().UTC(),
		AutopostEnabled:   settings.AutopostEnabled,
		ChannelConfigured: settings.Channel != "",
		TotalPosts:        settings.Stats.TotalPosts,
		LastPostAt:        settings.Stats.LastPostAt,
		Jobs:              jobs,
	}
	if len(jobs) > 0 {
		next := jobs[0].Next
		resp.NextRun = &next
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// settingsHandler returns settings with api keys masked
func (s *Server) settingsHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, s.settings.Get().Redacted())
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}
