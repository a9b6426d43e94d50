package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloppy/aria/internal/testutil"
)

func answer(s string) (Prompter, *int) {
	calls := 0
	return PromptFunc(func(question string) (string, error) {
		calls++
		return s, nil
	}), &calls
}

func TestLoadCreatesConfigOnFirstRun(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "aria.yaml")
	prompter, calls := answer("  DuckDuckGo \n")

	cfg, created, err := Load(path, prompter)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, "DuckDuckGo", cfg.Search.Engine)
	assert.Equal(t, Default().Scan.Ports, cfg.Scan.Ports)
	assert.Equal(t, 5*time.Minute, cfg.Model.Timeout)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, created, err := Load(path, prompter)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, *calls, "existing config must not prompt")
	assert.Equal(t, cfg, again)
}

func TestLoadWithoutEngineIsFatal(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "aria.yaml")
	prompter, _ := answer("   ")

	_, _, err := Load(path, prompter)
	require.Error(t, err)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "create", cfgErr.Op)
	assert.ErrorIs(t, err, ErrNoEngine)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be written")
}

func TestLoadPromptFailure(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "aria.yaml")
	boom := errors.New("stdin closed")

	_, _, err := Load(path, PromptFunc(func(string) (string, error) { return "", boom }))
	assert.ErrorIs(t, err, boom)
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	dir := testutil.TempDir(t)
	path := testutil.WriteFile(t, dir, "aria.yaml", []byte(`
search:
  engine: bing
scan:
  ports: "20-443"
  timeout: 90s
  scope: ["10.0.0.0/8", "lab.example"]
assistant:
  route_unprefixed: false
`))
	t.Setenv("ARIA_MODEL_NAME", "mistral")

	cfg, created, err := Load(path, nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "bing", cfg.Search.Engine)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, "20-443", cfg.Scan.Ports)
	assert.Equal(t, 90*time.Second, cfg.Scan.Timeout)
	assert.Equal(t, []string{"10.0.0.0/8", "lab.example"}, cfg.Scan.Scope)
	assert.Equal(t, "mistral", cfg.Model.Name)
	assert.False(t, cfg.Assistant.RouteUnprefixed)
	assert.Equal(t, "ARIA", cfg.Assistant.Name)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
}

func TestLoadKeepsZeroTemperature(t *testing.T) {
	dir := testutil.TempDir(t)
	path := testutil.WriteFile(t, dir, "aria.yaml", []byte("search:\n  engine: bing\nmodel:\n  temperature: 0\n"))

	cfg, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Zero(t, cfg.Model.Temperature)
}

func TestLoadRejectsBrokenFiles(t *testing.T) {
	dir := testutil.TempDir(t)

	broken := testutil.WriteFile(t, dir, "broken.yaml", []byte("search: [unterminated"))
	_, _, err := Load(broken, nil)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "read", cfgErr.Op)

	noEngine := testutil.WriteFile(t, dir, "empty.yaml", []byte("scan:\n  ports: 1-10\n"))
	_, _, err = Load(noEngine, nil)
	assert.ErrorIs(t, err, ErrNoEngine)

	badFormat := testutil.WriteFile(t, dir, "format.yaml", []byte("search:\n  engine: google\nlog:\n  format: xml\n"))
	_, _, err = Load(badFormat, nil)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "validate", cfgErr.Op)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "nested", "aria.yaml")
	cfg := Default()
	cfg.Search.Engine = "google"

	require.NoError(t, Save(path, cfg))
	cfg.Search.Engine = "startpage"
	require.NoError(t, Save(path, cfg))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "aria.yaml", entries[0].Name())

	loaded, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "startpage", loaded.Search.Engine)
}
