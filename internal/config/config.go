// Package config loads the assistant's YAML configuration, creating it
// interactively on first run. The loaded Config is a plain value passed to
// the components that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sloppy/aria/internal/llm"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "aria.yaml"

const enginePrompt = "Enter your preferred search engine (e.g., Google, Bing, DuckDuckGo): "

type Config struct {
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Model     ModelConfig     `mapstructure:"model" yaml:"model"`
	Scan      ScanConfig      `mapstructure:"scan" yaml:"scan"`
	Speech    SpeechConfig    `mapstructure:"speech" yaml:"speech"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Journal   JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
}

type SearchConfig struct {
	Engine     string `mapstructure:"engine" yaml:"engine"`
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	MaxResults int    `mapstructure:"max_results" yaml:"max_results"`
}

type ModelConfig struct {
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	Name        string        `mapstructure:"name" yaml:"name"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

type ScanConfig struct {
	NmapPath  string        `mapstructure:"nmap_path" yaml:"nmap_path"`
	Ports     string        `mapstructure:"ports" yaml:"ports"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ExtraArgs []string      `mapstructure:"extra_args" yaml:"extra_args"`
	Scope     []string      `mapstructure:"scope" yaml:"scope"`
}

// SpeechConfig names an external text-to-speech command; empty disables speech.
type SpeechConfig struct {
	Command []string `mapstructure:"command" yaml:"command"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

type JournalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type AssistantConfig struct {
	Name            string `mapstructure:"name" yaml:"name"`
	RouteUnprefixed bool   `mapstructure:"route_unprefixed" yaml:"route_unprefixed"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		Search: SearchConfig{
			Endpoint:   "http://localhost:8888",
			MaxResults: 10,
		},
		Model: ModelConfig{
			Endpoint:    "http://localhost:11434",
			Name:        "llama3",
			Timeout:     5 * time.Minute,
			Temperature: llm.DefaultTemperature,
			MaxTokens:   2500,
		},
		Scan: ScanConfig{
			NmapPath: "nmap",
			Ports:    "1-1024",
			Timeout:  5 * time.Minute,
		},
		Log: LogConfig{
			Level:      "warn",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Journal:   JournalConfig{Path: "aria.db"},
		Assistant: AssistantConfig{Name: "ARIA", RouteUnprefixed: true},
	}
}

// Error is a configuration failure. At startup it is fatal.
type Error struct {
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNoEngine means no search engine preference was given.
var ErrNoEngine = errors.New("a search engine is required")

// Prompter asks the user a question and returns the answer line.
type Prompter interface {
	Prompt(question string) (string, error)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(question string) (string, error)

func (f PromptFunc) Prompt(question string) (string, error) {
	return f(question)
}

// Load reads the configuration at path. When the file does not exist the
// search engine is requested through prompter and a new file is written
// before loading. created reports whether that happened.
func Load(path string, prompter Prompter) (cfg Config, created bool, err error) {
	if path == "" {
		path = DefaultPath
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		if err := create(path, prompter); err != nil {
			return Config{}, false, err
		}
		created = true
	} else if statErr != nil {
		return Config{}, false, &Error{Path: path, Op: "stat", Err: statErr}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ARIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, created, &Error{Path: path, Op: "read", Err: err}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, created, &Error{Path: path, Op: "decode", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, created, &Error{Path: path, Op: "validate", Err: err}
	}
	return cfg, created, nil
}

func create(path string, prompter Prompter) error {
	if prompter == nil {
		return &Error{Path: path, Op: "create", Err: ErrNoEngine}
	}
	answer, err := prompter.Prompt(enginePrompt)
	if err != nil {
		return &Error{Path: path, Op: "create", Err: fmt.Errorf("read search engine: %w", err)}
	}
	engine := strings.TrimSpace(answer)
	if engine == "" {
		return &Error{Path: path, Op: "create", Err: ErrNoEngine}
	}
	cfg := Default()
	cfg.Search.Engine = engine
	if err := Save(path, cfg); err != nil {
		return &Error{Path: path, Op: "create", Err: err}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("search.engine", d.Search.Engine)
	v.SetDefault("search.endpoint", d.Search.Endpoint)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("model.endpoint", d.Model.Endpoint)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.timeout", d.Model.Timeout)
	v.SetDefault("model.temperature", d.Model.Temperature)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)
	v.SetDefault("scan.nmap_path", d.Scan.NmapPath)
	v.SetDefault("scan.ports", d.Scan.Ports)
	v.SetDefault("scan.timeout", d.Scan.Timeout)
	v.SetDefault("scan.extra_args", []string{})
	v.SetDefault("scan.scope", []string{})
	v.SetDefault("speech.command", []string{})
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("assistant.name", d.Assistant.Name)
	v.SetDefault("assistant.route_unprefixed", d.Assistant.RouteUnprefixed)
}

// Validate checks the values the session cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Search.Engine) == "" {
		return ErrNoEngine
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must not be negative")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Scan.Timeout <= 0 {
		return fmt.Errorf("scan.timeout must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log.format %q", c.Log.Format)
	}
	return nil
}

// Save writes cfg to path atomically: a temp file in the same directory is
// renamed over the target, so readers never observe a partial file.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".aria-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
