package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	config "github.com/cochaviz/bento-kaniko/config"
	"github.com/cochaviz/bento-kaniko/internal/clierr"
	"github.com/cochaviz/bento-kaniko/internal/exitcode"
	"github.com/cochaviz/bento-kaniko/internal/logging"
	"github.com/cochaviz/bento-kaniko/internal/setup"
)

const defaultLogLevel = "info"

// flag name -> environment variable consulted when the flag is not given.
var envFallbacks = map[string]string{
	"yatai-token":    "YATAI_TOKEN",
	"yatai-endpoint": "YATAI_ENDPOINT",
	"bentoml-home":   setup.HomeEnv,
}

type buildFunc func(ctx context.Context, opts config.BuildOptions, logger *slog.Logger) (int, error)

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.NewCLI(os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], logger, &levelVar, config.BuildWithLogger)
	stop()
	exitcode.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, logger *slog.Logger, levelVar *slog.LevelVar, build buildFunc) int {
	code := exitcode.Success
	root := newRootCommand(logger, levelVar, build, &code)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		code = exitcode.FromError(err)
		if code == exitcode.Interrupted {
			logger.Warn("command interrupted", "error", err)
			return code
		}
		attrs := []any{"error", err, "exit_code", code, "reason", exitcode.Describe(code)}
		var cuiErr *clierr.Error
		if errors.As(err, &cuiErr) {
			attrs = append(attrs, "detail", cuiErr.Verbose())
		}
		logger.Error("command execution failed", attrs...)
		if code == exitcode.UsageError {
			fmt.Fprintln(root.ErrOrStderr(), root.UsageString())
		}
	}
	return code
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar, build buildFunc, code *int) *cobra.Command {
	setup.SetLogger(logger.With("component", "setup"))

	var (
		logLevel   = defaultLogLevel
		opts       config.BuildOptions
		noProgress bool
	)

	root := &cobra.Command{
		Use:           "bento-kaniko <bento>",
		Short:         "Pull a bento from yatai and build its image with kaniko",
		Args:          exactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.Flags()
	flags.StringVar(&opts.Registry, "registry", "", "Registry (and namespace) the image is pushed to, e.g. registry.example.com/ns")
	flags.StringVar(&opts.Token, "yatai-token", "", "Yatai API token (env YATAI_TOKEN)")
	flags.StringVar(&opts.Endpoint, "yatai-endpoint", "", "Yatai endpoint URL (env YATAI_ENDPOINT)")
	flags.StringVar(&opts.Executable, "executor", config.DefaultExecutable, "Path to the kaniko executor")
	flags.BoolVar(&opts.Cache, "cache", false, "Pass --cache=true to kaniko")
	flags.StringVar(&opts.Home, "bentoml-home", "", "BentoML home holding yatai contexts and bentos (env BENTOML_HOME, default ~/bentoml)")
	flags.BoolVar(&noProgress, "no-progress", false, "Do not draw a download progress bar")
	flags.StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.New(err.Error(), clierr.WithKind(clierr.KindUsage), clierr.WithCause(err))
	})

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return clierr.New(err.Error(), clierr.WithKind(clierr.KindUsage))
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		return applyEnvFallbacks(cmd.Flags())
	}

	root.RunE = func(cmd *cobra.Command, args []string) error {
		opts.Service = strings.TrimSpace(args[0])
		opts.Progress = config.ProgressWriter(!noProgress)
		opts.Stdout = cmd.OutOrStdout()

		cmdLogger := logger.With("command", "build", "bento", opts.Service)
		exit, err := build(cmd.Context(), opts, cmdLogger)
		if err != nil {
			return err
		}
		*code = exit
		if exit != exitcode.Success {
			cmdLogger.Warn("builder failed", "exit_code", exit)
		}
		return nil
	}

	return root
}

// applyEnvFallbacks fills flags left unset from their environment variables.
func applyEnvFallbacks(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		env, ok := envFallbacks[f.Name]
		if !ok || f.Changed || err != nil {
			return
		}
		value, set := os.LookupEnv(env)
		if !set || strings.TrimSpace(value) == "" {
			return
		}
		if serr := flags.Set(f.Name, value); serr != nil {
			err = clierr.New(
				fmt.Sprintf("invalid value of %s", env),
				clierr.WithKind(clierr.KindUsage),
				clierr.WithCause(serr),
			)
		}
	})
	return err
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return clierr.New(err.Error(), clierr.WithKind(clierr.KindUsage))
		}
		if strings.TrimSpace(args[0]) == "" {
			return clierr.New("bento tag is required", clierr.WithKind(clierr.KindUsage))
		}
		return nil
	}
}
