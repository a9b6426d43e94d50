package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sloppy/aria/internal/config"
	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/render"
	"github.com/sloppy/aria/internal/scan"
	"github.com/sloppy/aria/internal/web"
)

func (a *app) reportCommand() *cobra.Command {
	var (
		ports  string
		format string
		target string
	)
	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Summarize saved nmap output (XML or JSON tree)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			portRange, err := scan.ParsePortRange(ports)
			if err != nil {
				return err
			}
			facets, err := scan.ParseFile(args[0])
			if err != nil {
				return err
			}
			if target == "" {
				target = reportTarget(args[0], facets)
			}
			return render.ScanReport(a.out, format, scan.ReportFromFacets(target, portRange, facets))
		},
	}
	cmd.Flags().StringVar(&ports, "ports", scan.DefaultPortRange.String(), "port range to keep")
	cmd.Flags().StringVar(&format, "format", render.FormatText, "output format (text, json)")
	cmd.Flags().StringVar(&target, "target", "", "target label (defaults to the first scanned address)")
	return cmd
}

func reportTarget(path string, facets scan.Facets) string {
	for _, rec := range facets.DNSRecords {
		if rec.IP != "" {
			return rec.IP
		}
	}
	return filepath.Base(path)
}

func (a *app) historyCommand() *cobra.Command {
	var (
		limit  int
		format string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := a.openJournal(dbPath)
			if err != nil {
				return err
			}
			defer journal.Close()
			commands, err := journal.ListCommands(limit)
			if err != nil {
				return err
			}
			return render.History(a.out, format, commands)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of commands to list (0 for all)")
	cmd.Flags().StringVar(&format, "format", render.FormatText, "output format (text, csv, json)")
	cmd.Flags().StringVar(&dbPath, "db", "", "journal database (defaults to journal.path from the config)")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var (
		addr   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the command history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := a.openJournal(dbPath)
			if err != nil {
				return err
			}
			defer journal.Close()
			return a.serve(cmd.Context(), addr, web.NewServer(journal, "ARIA").Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "journal database (defaults to journal.path from the config)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	pterm.Info.WithWriter(a.out).Printfln("Serving history on http://%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openJournal opens the journal named by --db, falling back to the journal
// path of an existing configuration file.
func (a *app) openJournal(dbPath string) (*db.DB, error) {
	if dbPath == "" {
		path, err := a.configuredJournalPath()
		if err != nil {
			return nil, err
		}
		dbPath = path
	}
	if dbPath == "" {
		return nil, errors.New("no journal database configured")
	}
	return db.Open(dbPath)
}

func (a *app) configuredJournalPath() (string, error) {
	if _, err := os.Stat(a.configPath); errors.Is(err, fs.ErrNotExist) {
		return config.Default().Journal.Path, nil
	}
	cfg, _, err := config.Load(a.configPath, nil)
	if err != nil {
		return "", err
	}
	return cfg.Journal.Path, nil
}
