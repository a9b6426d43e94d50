package web

import (
	"encoding/json"
	"net/http"

	"github.com/sloppy/aria/internal/render"
)

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	commands, err := s.listCommands(r)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.jsonResponse(w, render.NewCommandInfos(commands), http.StatusOK)
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats()
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.jsonResponse(w, stats, http.StatusOK)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error, status int) {
	http.Error(w, err.Error(), status)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.errorResponse(w, err, http.StatusBadRequest)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.errorResponse(w, err, http.StatusInternalServerError)
}
