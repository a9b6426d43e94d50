// Package assistant routes input lines to the search, model and scan
// capabilities and reports their results. A failing capability produces one
// error line; the session continues.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/sloppy/aria/internal/db"
	"github.com/sloppy/aria/internal/render"
	"github.com/sloppy/aria/internal/scan"
	"github.com/sloppy/aria/internal/search"
	"github.com/sloppy/aria/internal/speech"
)

// State is the dispatcher's position in its loop.
type State int

const (
	StateIdle State = iota
	StateClassify
	StateExecute
	StateReport
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateClassify:
		return "classify"
	case StateExecute:
		return "execute"
	case StateReport:
		return "report"
	case StateExiting:
		return "exiting"
	default:
		return "idle"
	}
}

const defaultHistoryLimit = 10

type Searcher interface {
	Search(ctx context.Context, engine, query string) ([]search.Result, error)
}

type Model interface {
	Query(ctx context.Context, prompt string) (string, error)
}

type Scanner interface {
	Aggregate(ctx context.Context, target string) scan.Report
}

// Journal records executed commands and lists them back.
type Journal interface {
	RecordCommand(c db.Command) (db.Command, error)
	ListCommands(limit int) ([]db.Command, error)
}

type Options struct {
	Name            string
	Engine          string
	RouteUnprefixed bool

	Search  Searcher
	Model   Model
	Scanner Scanner
	Speaker speech.Speaker
	Journal Journal
	// SessionID tags journal entries; required when Journal is set.
	SessionID string

	Out    io.Writer
	Logger logrus.FieldLogger
}

type Dispatcher struct {
	opts  Options
	out   io.Writer
	log   logrus.FieldLogger
	state State
	now   func() time.Time
}

func New(opts Options) *Dispatcher {
	if opts.Name == "" {
		opts.Name = "ARIA"
	}
	if opts.Speaker == nil {
		opts.Speaker = speech.Nop{}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		opts: opts,
		out:  opts.Out,
		log:  opts.Logger,
		now:  time.Now,
	}
}

// State returns the current loop state.
func (d *Dispatcher) State() State {
	return d.state
}

// Result describes how one line was handled.
type Result struct {
	Intent  Intent
	Outcome string
	Err     error
}

// Run handles lines from src until quit, end of input or cancellation.
// Quit and end of input return nil.
func (d *Dispatcher) Run(ctx context.Context, src LineSource) error {
	d.state = StateIdle
	for {
		line, err := d.next(ctx, src)
		if errors.Is(err, ErrLineTooLong) {
			d.fail(err)
			continue
		}
		if err != nil {
			d.state = StateExiting
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read input: %w", err)
		}
		res := d.Handle(ctx, line)
		if res.Intent.Kind == KindQuit {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			d.state = StateExiting
			return ctxErr
		}
	}
}

type lineResult struct {
	line string
	err  error
}

// next reads one line without blocking past cancellation. A read still
// pending at cancellation is left behind; it returns once the input is
// closed, and its result is dropped.
func (d *Dispatcher) next(ctx context.Context, src LineSource) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ch := make(chan lineResult, 1)
	go func() {
		line, err := src.Next()
		ch <- lineResult{line: line, err: err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Handle classifies and executes a single line, then reports the result.
func (d *Dispatcher) Handle(ctx context.Context, line string) Result {
	d.state = StateClassify
	intent, classErr := Classify(line, d.opts.RouteUnprefixed)
	res := Result{Intent: intent}
	start := d.now()

	switch intent.Kind {
	case KindEmpty:
		d.state = StateIdle
		return res
	case KindQuit:
		d.state = StateExiting
		res.Outcome = db.OutcomeOK
		d.record(intent, res, start)
		return res
	case KindUsage:
		d.state = StateReport
		d.warn(UsageHint(intent.Argument))
		res.Outcome = db.OutcomeUsage
	case KindUnrecognized:
		d.state = StateReport
		d.info(fmt.Sprintf("Unrecognized command %q. %s", intent.Raw, UsageHint("")))
		d.log.WithError(classErr).Debug("input not classified")
		res.Outcome = db.OutcomeUnrecognized
	default:
		d.state = StateExecute
		res.Outcome, res.Err = d.execute(ctx, intent)
		if res.Err != nil {
			d.state = StateReport
			d.fail(res.Err)
		}
	}

	d.record(intent, res, start)
	d.log.WithFields(logrus.Fields{
		"kind":     intent.Kind.String(),
		"outcome":  res.Outcome,
		"duration": d.now().Sub(start),
	}).Debug("command handled")
	d.state = StateIdle
	return res
}

// execute runs the capability for intent and reports its result. Panics in
// a capability are converted to a SubsystemError.
func (d *Dispatcher) execute(ctx context.Context, intent Intent) (outcome string, err error) {
	subsystem := intent.Kind.String()
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("subsystem", subsystem).Errorf("recovered panic: %v", r)
			outcome = db.OutcomeError
			err = &SubsystemError{Subsystem: subsystem, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var runErr error
	switch intent.Kind {
	case KindSearch:
		outcome, runErr = d.search(ctx, intent.Argument)
	case KindModelQuery:
		outcome, runErr = d.query(ctx, intent.Argument)
	case KindNetworkScan:
		outcome, runErr = d.scan(ctx, intent.Argument)
	case KindHistory:
		outcome, runErr = d.history(intent.Limit)
	default:
		runErr = fmt.Errorf("no handler for %s", subsystem)
	}
	if runErr != nil {
		return db.OutcomeError, &SubsystemError{Subsystem: subsystem, Err: runErr}
	}
	return outcome, nil
}

var errNotConfigured = errors.New("not configured")

func (d *Dispatcher) search(ctx context.Context, query string) (string, error) {
	if d.opts.Search == nil {
		return "", errNotConfigured
	}
	results, err := d.opts.Search.Search(ctx, d.opts.Engine, query)
	if err != nil {
		return "", err
	}
	d.state = StateReport
	if err := render.SearchResultsText(d.out, results); err != nil {
		return "", err
	}
	return db.OutcomeOK, nil
}

func (d *Dispatcher) query(ctx context.Context, text string) (string, error) {
	if d.opts.Model == nil {
		return "", errNotConfigured
	}
	response, err := d.opts.Model.Query(ctx, "user: "+text)
	if err != nil {
		return "", err
	}
	d.state = StateReport
	fmt.Fprintf(d.out, "%s: %s\n", d.opts.Name, response)
	if err := d.opts.Speaker.Speak(ctx, response); err != nil {
		d.log.WithError(err).Warn("speech failed")
	}
	return db.OutcomeOK, nil
}

func (d *Dispatcher) scan(ctx context.Context, target string) (string, error) {
	if d.opts.Scanner == nil {
		return "", errNotConfigured
	}
	report := d.opts.Scanner.Aggregate(ctx, target)
	d.state = StateReport
	if err := render.ScanReportText(d.out, report); err != nil {
		return "", err
	}
	if report.Cancelled {
		d.warn("scan cancelled")
		return db.OutcomeError, nil
	}
	if failed := report.PartialFailures(); len(failed) > 0 {
		d.warn("scan incomplete, failed facets: " + joinFacets(failed))
		return db.OutcomePartial, nil
	}
	return db.OutcomeOK, nil
}

func (d *Dispatcher) history(limit int) (string, error) {
	if d.opts.Journal == nil {
		return "", errors.New("journal not configured")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	commands, err := d.opts.Journal.ListCommands(limit)
	if err != nil {
		return "", err
	}
	d.state = StateReport
	if err := render.HistoryText(d.out, commands); err != nil {
		return "", err
	}
	return db.OutcomeOK, nil
}

// record appends the handled command to the journal. Failures are logged
// only.
func (d *Dispatcher) record(intent Intent, res Result, start time.Time) {
	if d.opts.Journal == nil {
		return
	}
	c := db.Command{
		SessionID: d.opts.SessionID,
		Kind:      intent.Kind.String(),
		Argument:  intent.Argument,
		Outcome:   res.Outcome,
		StartedAt: start,
		Duration:  d.now().Sub(start),
	}
	if intent.Kind == KindUnrecognized {
		c.Argument = intent.Raw
	}
	if res.Err != nil {
		c.Message = res.Err.Error()
	}
	if _, err := d.opts.Journal.RecordCommand(c); err != nil {
		d.log.WithError(err).Warn("journal write failed")
	}
}

func joinFacets(facets []scan.Facet) string {
	names := make([]string, len(facets))
	for i, f := range facets {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func (d *Dispatcher) fail(err error) {
	pterm.Error.WithWriter(d.out).Println(err.Error())
}

func (d *Dispatcher) warn(msg string) {
	pterm.Warning.WithWriter(d.out).Println(msg)
}

func (d *Dispatcher) info(msg string) {
	pterm.Info.WithWriter(d.out).Println(msg)
}
