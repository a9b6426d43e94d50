package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sloppy/aria/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, out, errOut io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runContext(ctx, args, stdin, out, errOut)
}

// exitCodeError carries a specific exit code out of a cobra command.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func runContext(ctx context.Context, args []string, stdin io.Reader, out, errOut io.Writer) int {
	app := &app{stdin: stdin, out: out, errOut: errOut}
	root := app.rootCommand()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var codeErr *exitCodeError
	if errors.As(err, &codeErr) {
		if codeErr.err != nil {
			app.printError(codeErr.err)
		}
		return codeErr.code
	}
	app.printError(err)
	return exitError
}

type app struct {
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "aria",
		Short: "Interactive assistant for search, model queries and nmap reconnaissance",
		Long: `aria reads commands line by line:

  !search <query>   web search with the configured engine
  !gpt <prompt>     ask the language model (plain text does the same)
  !nmap <target>    port scan, OS and version detection
  !history [n]      recent commands from the journal
  quit              leave the session`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSession(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(a.reportCommand())
	root.AddCommand(a.historyCommand())
	root.AddCommand(a.serveCommand())
	root.AddCommand(a.versionCommand())
	return root
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "aria %s\n", version)
		},
	}
}

func (a *app) printError(err error) {
	pterm.Error.WithWriter(a.errOut).Println(err.Error())
}
