package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sloppy/aria/internal/db"
)

const defaultHistoryLimit = 50

func parseInt(value string, fallback int) int {
	val, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || val <= 0 {
		return fallback
	}
	return val
}

// historyFilter holds the ?limit= and ?kind= query parameters.
type historyFilter struct {
	Limit int
	Kind  string
}

func parseHistoryFilter(r *http.Request) historyFilter {
	q := r.URL.Query()
	return historyFilter{
		Limit: parseInt(q.Get("limit"), defaultHistoryLimit),
		Kind:  strings.ToLower(strings.TrimSpace(q.Get("kind"))),
	}
}

func (f historyFilter) apply(commands []db.Command) []db.Command {
	if f.Kind == "" {
		return commands
	}
	out := make([]db.Command, 0, len(commands))
	for _, c := range commands {
		if c.Kind == f.Kind {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) listCommands(r *http.Request) ([]db.Command, error) {
	f := parseHistoryFilter(r)
	limit := f.Limit
	if f.Kind != "" {
		// Filter after loading so the limit counts matching rows.
		limit = 0
	}
	commands, err := s.DB.ListCommands(limit)
	if err != nil {
		return nil, err
	}
	commands = f.apply(commands)
	if len(commands) > f.Limit {
		commands = commands[:f.Limit]
	}
	return commands, nil
}
