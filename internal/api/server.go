// Package api provides the HTTP API server and handlers for the
// NoteKeep application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/notekeepapp/notekeep-server/internal/search"
	"github.com/notekeepapp/notekeep-server/internal/store"
)

// Version is the API version reported by the OpenAPI document.
const Version = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	searchIndex *search.Index
	services    *Services
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// allowedOrigins lists the browser-extension origins permitted by CORS.
func NewServer(st *store.Store, searchIndex *search.Index, services *Services, allowedOrigins []string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("NoteKeep API", Version)
	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:       st,
		searchIndex: searchIndex,
		services:    services,
		router:      router,
		api:         api,
		logger:      logger,
	}

	s.registerHealthRoutes()
	s.registerNoteRoutes()
	s.registerTagRoutes()
	s.registerSearchRoutes()
	s.registerBackupRoutes()
	s.registerAuthRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
