package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single scanner process.
const DefaultTimeout = 5 * time.Minute

// Invoker runs one scan variant and returns the raw structured output.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) ([]byte, error)
}

type commandRunner func(ctx context.Context, path string, args []string) (stdout, stderr []byte, err error)

// NmapInvoker spawns the nmap binary once per invocation and captures its
// XML output from stdout.
type NmapInvoker struct {
	path      string
	extraArgs []string
	timeout   time.Duration
	log       logrus.FieldLogger
	run       commandRunner
}

// InvokerOptions configures an NmapInvoker. Zero values select defaults.
type InvokerOptions struct {
	Path      string
	ExtraArgs []string
	Timeout   time.Duration
	Logger    logrus.FieldLogger
}

func NewNmapInvoker(opts InvokerOptions) *NmapInvoker {
	inv := &NmapInvoker{
		path:      opts.Path,
		extraArgs: append([]string(nil), opts.ExtraArgs...),
		timeout:   opts.Timeout,
		log:       opts.Logger,
		run:       runCommand,
	}
	if inv.path == "" {
		inv.path = "nmap"
	}
	if inv.timeout <= 0 {
		inv.timeout = DefaultTimeout
	}
	if inv.log == nil {
		inv.log = logrus.StandardLogger()
	}
	return inv
}

// Args returns the nmap command line for an invocation, excluding the binary.
func (n *NmapInvoker) Args(inv Invocation) []string {
	args := append([]string(nil), n.extraArgs...)
	args = append(args, "-oX", "-")
	switch inv.Mode {
	case ModePortScan:
		args = append(args, "-p", inv.Range.String())
	case ModeOSDetect:
		args = append(args, "-O")
	case ModeVersionDetect:
		args = append(args, "-sV")
	}
	return append(args, strings.TrimSpace(inv.Target))
}

// Invoke runs nmap for inv. Failures are returned as *Error; cancellation of
// ctx kills the process and returns the context error.
func (n *NmapInvoker) Invoke(ctx context.Context, inv Invocation) ([]byte, error) {
	if err := inv.Validate(); err != nil {
		return nil, &Error{Kind: KindFailed, Mode: inv.Mode, Target: inv.Target, Err: err}
	}
	path, err := exec.LookPath(n.path)
	if err != nil {
		return nil, &Error{Kind: KindToolNotFound, Mode: inv.Mode, Target: inv.Target, Err: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	log := n.log.WithFields(logrus.Fields{"mode": inv.Mode.String(), "target": inv.Target})
	started := time.Now()
	stdout, stderr, err := n.run(runCtx, path, n.Args(inv))
	log = log.WithField("duration_ms", time.Since(started).Milliseconds())
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("scan cancelled")
			return nil, fmt.Errorf("nmap %s %s: %w", inv.Mode, inv.Target, ctx.Err())
		}
		scanErr := classify(runCtx, inv, stderr, err)
		log.WithError(scanErr).Debug("scan failed")
		return nil, scanErr
	}
	if reHostsDown.Match(stdout) {
		log.Debug("scan found no live host")
		return nil, &Error{Kind: KindUnreachable, Mode: inv.Mode, Target: inv.Target, Err: ErrHostDown}
	}
	log.Debug("scan finished")
	return stdout, nil
}

var (
	reHostsDown       = regexp.MustCompile(`<hosts\s+up="0"`)
	rePermission      = regexp.MustCompile(`(?i)requires root privileges|operation not permitted|permission denied`)
	reResolveFailure  = regexp.MustCompile(`(?i)failed to resolve|no targets were specified|host seems down`)
	errNonZeroNoCause = errors.New("scanner exited with an error")
)

func classify(runCtx context.Context, inv Invocation, stderr []byte, err error) *Error {
	out := &Error{Kind: KindFailed, Mode: inv.Mode, Target: inv.Target, Err: err}
	msg := firstLine(stderr)
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		out.Kind = KindTimeout
		out.Err = runCtx.Err()
		return out
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		out.Kind = KindToolNotFound
		return out
	case errors.Is(err, fs.ErrPermission), rePermission.Match(stderr):
		out.Kind = KindPermissionDenied
	case reResolveFailure.Match(stderr):
		out.Kind = KindUnreachable
	}
	if msg != "" {
		out.Err = errors.New(msg)
	} else if out.Err == nil {
		out.Err = errNonZeroNoCause
	}
	return out
}

func firstLine(b []byte) string {
	for _, line := range bytes.Split(b, []byte("\n")) {
		if s := strings.TrimSpace(string(line)); s != "" {
			return s
		}
	}
	return ""
}

func runCommand(ctx context.Context, path string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
