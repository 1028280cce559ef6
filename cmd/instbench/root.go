package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nersc/instbench/config"
	"github.com/nersc/instbench/dlog"
	"github.com/nersc/instbench/errors"
)

// Returned when a benchmark yields no result.  The diagnostic has already
// been printed, so main only sets the exit status.
var errNoResult = errors.New("no result")

// State shared by the subcommands, set up in PersistentPreRunE.
type env struct {
	cfg     *config.Config
	console *dlog.BufferedConsole
	logger  zerolog.Logger
}

func (e *env) close() {
	if e.console != nil {
		_ = e.console.Close()
	}
}

// Runs the command line in args.  Buffered log output is flushed before
// returning, whether or not the command succeeded.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd, e := newRootCmd()
	defer e.close()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newRootCmd() (*cobra.Command, *env) {
	e := &env{}
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:           "instbench",
		Short:         "Instrumented matrix multiply benchmarks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			e.cfg = cfg
			return e.setupLogging(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", dlog.FormatConsole, "log format (json, console)")

	cmd.AddCommand(
		newMatmulCmd(e),
		newServeCmd(e),
		newVerifyCmd(e),
	)
	return cmd, e
}

// Logs go to a buffered console over stderr, which is deliberately not the
// redirectable dlog.Stderr(): captured benchmark output must never contain
// log lines.
func (e *env) setupLogging(stderr io.Writer) error {
	e.console = dlog.NewBufferedConsole(
		stderr,
		e.cfg.Logging.ConsoleBufferSize,
		e.cfg.Logging.MaxFlushInterval)
	logger, err := dlog.NewLogger(dlog.LoggerParams{
		Level:  e.cfg.Logging.Level,
		Format: e.cfg.Logging.Format,
		Output: e.console,
	})
	if err != nil {
		return err
	}
	e.logger = logger
	return nil
}
