package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"

	"github.com/sloppy/aria/internal/testutil"
)

func init() {
	pterm.DisableStyling()
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	exit := runContext(context.Background(), append([]string{"aria"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return exit, stdout.String(), stderr.String()
}

func TestSessionFirstRunCreatesConfig(t *testing.T) {
	tmp := testutil.TempDir(t)
	cfgPath := filepath.Join(tmp, "aria.yaml")
	t.Setenv("ARIA_JOURNAL_PATH", filepath.Join(tmp, "journal.db"))

	exit, stdout, stderr := runCLI(t, "DuckDuckGo\n!history\nquit\n", "--config", cfgPath)
	if exit != 0 {
		t.Fatalf("session exit %d, stderr %q", exit, stderr)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config not created: %v", err)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "DuckDuckGo") {
		t.Fatalf("expected engine in config, got %q", data)
	}
	if !strings.Contains(stdout, "search engine") {
		t.Fatalf("expected engine prompt, got %q", stdout)
	}
	if !strings.Contains(stdout, "No commands recorded.") {
		t.Fatalf("expected empty history, got %q", stdout)
	}

	// The journal outlives the session.
	exit, stdout, stderr = runCLI(t, "!history\nquit\n", "--config", cfgPath)
	if exit != 0 {
		t.Fatalf("second session exit %d, stderr %q", exit, stderr)
	}
	if !strings.Contains(stdout, "history") || strings.Contains(stdout, "No commands recorded.") {
		t.Fatalf("expected recorded history command, got %q", stdout)
	}
}

func TestSessionSurvivesOverlongLine(t *testing.T) {
	tmp := testutil.TempDir(t)
	cfgPath := testutil.WriteFile(t, tmp, "aria.yaml", []byte("search:\n  engine: Bing\njournal:\n  path: \"\"\n"))
	input := strings.Repeat("x", 2<<20) + "\n!history\nquit\n"

	exit, stdout, stderr := runCLI(t, input, "--config", cfgPath)
	if exit != 0 {
		t.Fatalf("session exit %d, stderr %q", exit, stderr)
	}
	if !strings.Contains(stdout, "input line too long") {
		t.Fatalf("expected overlong line error, got %q", stdout)
	}
}

func TestSessionWithoutEngineFails(t *testing.T) {
	tmp := testutil.TempDir(t)
	cfgPath := filepath.Join(tmp, "aria.yaml")

	exit, _, stderr := runCLI(t, "", "--config", cfgPath)
	if exit == 0 {
		t.Fatalf("expected non-zero exit without a search engine")
	}
	if !strings.Contains(stderr, "search engine") {
		t.Fatalf("expected search engine error, got %q", stderr)
	}
	if _, err := os.Stat(cfgPath); err == nil {
		t.Fatalf("config should not be written")
	}
}

func TestSessionRejectsInvalidScope(t *testing.T) {
	tmp := testutil.TempDir(t)
	cfgPath := testutil.WriteFile(t, tmp, "aria.yaml", []byte("search:\n  engine: Bing\nscan:\n  scope: [\"10.0.0.0/33\"]\njournal:\n  path: \"\"\n"))

	exit, _, stderr := runCLI(t, "quit\n", "--config", cfgPath)
	if exit != 1 {
		t.Fatalf("expected exit 1, got %d", exit)
	}
	if !strings.Contains(stderr, "scan.scope") {
		t.Fatalf("expected scope error, got %q", stderr)
	}
}

func TestReportCLI(t *testing.T) {
	exit, stdout, stderr := runCLI(t, "", "report", filepath.Join("testdata", "scan.xml"))
	if exit != 0 {
		t.Fatalf("report exit %d, stderr %q", exit, stderr)
	}
	for _, want := range []string{"192.0.2.20", "Linux 5.0 - 5.14", "OpenSSH 8.9p1", "445/tcp"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in report, got %q", want, stdout)
		}
	}
	if strings.Contains(stdout, "631/tcp") {
		t.Fatalf("closed port listed: %q", stdout)
	}
}

func TestReportCLIFormatsAndErrors(t *testing.T) {
	exit, stdout, _ := runCLI(t, "", "report", "--format", "json", "--target", "files", filepath.Join("testdata", "scan.xml"))
	if exit != 0 {
		t.Fatalf("json report exit %d", exit)
	}
	if !strings.Contains(stdout, `"target": "files"`) {
		t.Fatalf("expected target label in json, got %q", stdout)
	}

	if exit, _, _ := runCLI(t, "", "report", "--ports", "0-5", filepath.Join("testdata", "scan.xml")); exit == 0 {
		t.Fatalf("expected non-zero exit for invalid port range")
	}
	if exit, _, _ := runCLI(t, "", "report", filepath.Join("testdata", "missing.xml")); exit == 0 {
		t.Fatalf("expected non-zero exit for missing file")
	}
}

func TestHistoryCLIEmpty(t *testing.T) {
	tmp := testutil.TempDir(t)
	dbPath := filepath.Join(tmp, "journal.db")

	exit, stdout, stderr := runCLI(t, "", "history", "--db", dbPath)
	if exit != 0 {
		t.Fatalf("history exit %d, stderr %q", exit, stderr)
	}
	if !strings.Contains(stdout, "No commands recorded.") {
		t.Fatalf("expected empty history, got %q", stdout)
	}

	if exit, _, _ := runCLI(t, "", "history", "--db", dbPath, "--format", "xml"); exit == 0 {
		t.Fatalf("expected non-zero exit for unknown format")
	}
}

func TestVersionCLI(t *testing.T) {
	exit, stdout, _ := runCLI(t, "", "version")
	if exit != 0 {
		t.Fatalf("version exit %d", exit)
	}
	if !strings.Contains(stdout, "aria "+version) {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestRunCancelledSession(t *testing.T) {
	tmp := testutil.TempDir(t)
	cfgPath := testutil.WriteFile(t, tmp, "aria.yaml", []byte("search:\n  engine: Bing\njournal:\n  path: \"\"\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, w := io.Pipe()
	defer w.Close()
	exit := runContext(ctx, []string{"aria", "--config", cfgPath}, r, ioDiscard{}, ioDiscard{})
	if exit != exitInterrupted {
		t.Fatalf("expected exit %d, got %d", exitInterrupted, exit)
	}
}

// ioDiscard drops output.
type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) { return len(p), nil }
