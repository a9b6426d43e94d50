package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/testutil"
)

func newTestServer(t *testing.T) (*db.DB, *Server) {
	t.Helper()
	dir := testutil.TempDir(t)
	database, err := db.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return database, NewServer(database, "ARIA")
}

func seedCommands(t *testing.T, database *db.DB) {
	t.Helper()
	session, err := database.StartSession()
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, c := range []db.Command{
		{Kind: "search", Argument: "weather today", Outcome: db.OutcomeOK},
		{Kind: "nmap", Argument: "127.0.0.1", Outcome: db.OutcomePartial, Message: "failed facets: os"},
		{Kind: "gpt", Argument: "<script>alert(1)</script>", Outcome: db.OutcomeError, Message: "model: connection refused"},
	} {
		c.SessionID = session.ID
		c.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := database.RecordCommand(c); err != nil {
			t.Fatalf("record command: %v", err)
		}
	}
}

func serve(t *testing.T, server *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootRedirectsToHistory(t *testing.T) {
	database, server := newTestServer(t)
	defer database.Close()

	rec := serve(t, server, "/")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/history" {
		t.Fatalf("expected redirect to /history, got %q", loc)
	}
}

func TestHistoryPage(t *testing.T) {
	database, server := newTestServer(t)
	defer database.Close()
	seedCommands(t, database)

	rec := serve(t, server, "/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"Command history", "1 sessions, 3 commands, 2 failed.", "weather today", "failed facets: os", "/history?kind=nmap"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body", want)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("argument was not escaped")
	}
	if strings.Index(body, "127.0.0.1") > strings.Index(body, "weather today") {
		t.Fatalf("expected newest command first")
	}
}

func TestHistoryPageEmpty(t *testing.T) {
	database, server := newTestServer(t)
	defer database.Close()

	rec := serve(t, server, "/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No commands recorded yet.") {
		t.Fatalf("expected empty state")
	}
}

func TestAPIHistoryFilters(t *testing.T) {
	database, server := newTestServer(t)
	defer database.Close()
	seedCommands(t, database)

	var all []map[string]any
	rec := serve(t, server, "/api/history")
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 3 || all[0]["kind"] != "gpt" {
		t.Fatalf("unexpected history: %v", all)
	}

	var limited []map[string]any
	rec = serve(t, server, "/api/history?limit=1")
	if err := json.Unmarshal(rec.Body.Bytes(), &limited); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 command, got %d", len(limited))
	}

	var byKind []map[string]any
	rec = serve(t, server, "/api/history?kind=NMAP")
	if err := json.Unmarshal(rec.Body.Bytes(), &byKind); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(byKind) != 1 || byKind[0]["argument"] != "127.0.0.1" {
		t.Fatalf("unexpected filtered history: %v", byKind)
	}
}

func TestAPIStats(t *testing.T) {
	database, server := newTestServer(t)
	defer database.Close()
	seedCommands(t, database)

	var stats db.Stats
	rec := serve(t, server, "/api/stats")
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Commands != 3 || len(stats.ByKind) != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHistoryExport(t *testing.T) {
	database, server := newTestServer(t)
	defer database.Close()
	seedCommands(t, database)

	rec := serve(t, server, "/history/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "id,session_id,kind") {
		t.Fatalf("unexpected csv:\n%s", rec.Body.String())
	}

	rec = serve(t, server, "/history/export?format=xml")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rec.Code)
	}
}
