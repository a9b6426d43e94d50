package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/sloppy/aria/internal/render"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/history", http.StatusFound)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	commands, err := s.listCommands(r)
	if err != nil {
		http.Error(w, "failed to list commands", http.StatusInternalServerError)
		return
	}
	stats, err := s.DB.GetStats()
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	renderPage(w, r, HistoryPage(s.Title, stats, commands, parseHistoryFilter(r)))
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = render.FormatCSV
	}
	commands, err := s.listCommands(r)
	if err != nil {
		s.serverError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := render.History(&buf, format, commands); err != nil {
		s.badRequest(w, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	switch format {
	case render.FormatCSV:
		contentType = "text/csv"
	case render.FormatJSON:
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "aria-history."+extension(format)))
	w.Write(buf.Bytes())
}

func extension(format string) string {
	if format == render.FormatText {
		return "txt"
	}
	return format
}
