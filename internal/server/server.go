package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kartoza/goodspeed/internal/api"
	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/logger"
	"github.com/kartoza/goodspeed/internal/metrics"
	"github.com/kartoza/goodspeed/internal/predict"
	"github.com/kartoza/goodspeed/internal/storage"
)

//go:embed static/*
var staticFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	router     *mux.Router
	ns         storage.Namespace
	manager    *predict.Manager
}

// New creates a new Server serving models from ns. settings may be nil.
func New(cfg *config.Config, ns storage.Namespace, settings *config.SettingsStore) (*Server, error) {
	if ns == nil {
		return nil, fmt.Errorf("no model storage")
	}

	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		ns:      ns,
		manager: predict.NewManager(ns, cfg, settings),
	}

	s.setupRoutes()

	return s, nil
}

// Manager returns the model session manager
func (s *Server) Manager() *predict.Manager {
	return s.manager
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.manager, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Static frontend files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		logger.Warnf("could not load embedded static files: %v", err)
		return
	}

	fileServer := http.FileServer(http.FS(staticContent))
	s.router.PathPrefix("/").Handler(spaHandler{staticContent: staticContent, fileServer: fileServer})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Infof("server listening on http://localhost:%d", s.cfg.Server.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	defer s.ns.Close()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// spaHandler serves the single page form, falling back to index.html
type spaHandler struct {
	staticContent fs.FS
	fileServer    http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" {
		path = "index.html"
	}

	// fs.FS paths must not have a leading slash
	cleanPath := strings.TrimPrefix(path, "/")

	if _, err := fs.Stat(h.staticContent, cleanPath); err != nil {
		r.URL.Path = "/"
	}

	h.fileServer.ServeHTTP(w, r)
}
