package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sloppy/aria/internal/db"
)

// Server serves the read-only command history.
type Server struct {
	DB     *db.DB
	Title  string
	Router chi.Router
}

// NewServer constructs the router and registers routes.
func NewServer(database *db.DB, title string) *Server {
	if title == "" {
		title = "ARIA"
	}
	server := &Server{DB: database, Title: title}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", server.handleRoot)
	r.Get("/history", server.handleHistory)
	r.Get("/history/export", server.handleHistoryExport)
	r.Get("/api/history", server.handleAPIHistory)
	r.Get("/api/stats", server.handleAPIStats)

	server.Router = r
	return server
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.Router
}
