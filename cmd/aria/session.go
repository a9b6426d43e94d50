package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/sloppy/aria/internal/assistant"
	"github.com/sloppy/aria/internal/config"
	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/llm"
	"github.com/sloppy/aria/internal/logger"
	"github.com/sloppy/aria/internal/scan"
	"github.com/sloppy/aria/internal/scope"
	"github.com/sloppy/aria/internal/search"
	"github.com/sloppy/aria/internal/speech"
)

func (a *app) runSession(ctx context.Context) error {
	src := assistant.NewReaderSource(a.stdin, a.out, "> ")

	cfg, created, err := config.Load(a.configPath, src)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, closer, err := logger.New(loggerConfig(cfg.Log), a.errOut)
	if err != nil {
		return &exitCodeError{code: exitError, err: err}
	}
	defer closer.Close()

	if created {
		pterm.Success.WithWriter(a.out).Printfln("Configuration saved to %s", a.configPath)
	}

	aggregator, err := newAggregator(cfg.Scan, log)
	if err != nil {
		return &exitCodeError{code: exitError, err: &config.Error{Path: a.configPath, Op: "validate", Err: err}}
	}

	opts := assistant.Options{
		Name:            cfg.Assistant.Name,
		Engine:          cfg.Search.Engine,
		RouteUnprefixed: cfg.Assistant.RouteUnprefixed,
		Search: search.NewClient(search.Options{
			Endpoint:   cfg.Search.Endpoint,
			MaxResults: cfg.Search.MaxResults,
			RetryMax:   2,
			Logger:     log,
		}),
		Model: llm.NewClient(llm.Options{
			Endpoint:    cfg.Model.Endpoint,
			Model:       cfg.Model.Name,
			Timeout:     cfg.Model.Timeout,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
			RetryMax:    1,
			Logger:      log,
		}),
		Scanner: aggregator,
		Speaker: speech.New(cfg.Speech.Command, log),
		Out:     a.out,
		Logger:  log,
	}

	if journal, session, ok := openJournal(cfg.Journal.Path, log); ok {
		defer journal.Close()
		opts.Journal = journal
		opts.SessionID = session.ID
	}

	pterm.Info.WithWriter(a.out).Printfln("%s ready. %s", opts.Name, assistant.UsageHint(""))
	err = assistant.New(opts).Run(ctx, src)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(a.out, "")
			return &exitCodeError{code: exitInterrupted}
		}
		return err
	}
	return nil
}

func loggerConfig(c config.LogConfig) logger.Config {
	return logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

func newAggregator(c config.ScanConfig, log logrus.FieldLogger) (*scan.Aggregator, error) {
	ports := scan.DefaultPortRange
	if strings.TrimSpace(c.Ports) != "" {
		r, err := scan.ParsePortRange(c.Ports)
		if err != nil {
			return nil, fmt.Errorf("scan.ports: %w", err)
		}
		ports = r
	}
	matcher, err := scope.NewMatcher(c.Scope)
	if err != nil {
		return nil, fmt.Errorf("scan.scope: %w", err)
	}
	invoker := scan.NewNmapInvoker(scan.InvokerOptions{
		Path:      c.NmapPath,
		ExtraArgs: c.ExtraArgs,
		Timeout:   c.Timeout,
		Logger:    log,
	})
	return scan.NewAggregator(invoker, scan.AggregatorOptions{
		Ports:  ports,
		Scope:  matcher,
		Logger: log,
	}), nil
}

// openJournal opens the command journal and starts a session. The session
// runs without a journal when it cannot be opened.
func openJournal(path string, log logrus.FieldLogger) (*db.DB, db.Session, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, db.Session{}, false
	}
	journal, err := db.Open(path)
	if err != nil {
		log.WithError(err).Warn("command journal unavailable")
		return nil, db.Session{}, false
	}
	session, err := journal.StartSession()
	if err != nil {
		log.WithError(err).Warn("command journal unavailable")
		journal.Close()
		return nil, db.Session{}, false
	}
	return journal, session, true
}
