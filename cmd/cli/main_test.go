package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/cochaviz/bento-kaniko/config"
	"github.com/cochaviz/bento-kaniko/internal/build"
	"github.com/cochaviz/bento-kaniko/internal/clierr"
	"github.com/cochaviz/bento-kaniko/internal/exitcode"
	"github.com/cochaviz/bento-kaniko/internal/logging"
	"github.com/cochaviz/bento-kaniko/internal/session"
)

type recordedBuild struct {
	calls int
	opts  config.BuildOptions
	code  int
	err   error
}

func (r *recordedBuild) build(_ context.Context, opts config.BuildOptions, _ *slog.Logger) (int, error) {
	r.calls++
	r.opts = opts
	return r.code, r.err
}

func runCLI(t *testing.T, rec *recordedBuild, args ...string) (int, *slog.LevelVar) {
	t.Helper()
	var level slog.LevelVar
	logger := logging.New(logging.FormatText, &bytes.Buffer{}, &level)
	return run(context.Background(), args, logger, &level, rec.build), &level
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envFallbacks {
		t.Setenv(env, "")
	}
}

func TestRunPassesFlags(t *testing.T) {
	clearEnv(t)
	rec := &recordedBuild{}

	code, _ := runCLI(t, rec,
		"iris_classifier:latest",
		"--registry", "registry.example.com/ns",
		"--yatai-endpoint", "https://yatai.example.com",
		"--yatai-token", "tok",
		"--cache",
	)

	assert.Equal(t, exitcode.Success, code)
	require.Equal(t, 1, rec.calls)
	assert.Equal(t, "iris_classifier:latest", rec.opts.Service)
	assert.Equal(t, "registry.example.com/ns", rec.opts.Registry)
	assert.Equal(t, "https://yatai.example.com", rec.opts.Endpoint)
	assert.Equal(t, "tok", rec.opts.Token)
	assert.Equal(t, build.DefaultExecutable, rec.opts.Executable)
	assert.True(t, rec.opts.Cache)
}

func TestRunFallsBackToEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("YATAI_TOKEN", "env-token")
	t.Setenv("YATAI_ENDPOINT", "https://env.yatai.example.com")
	t.Setenv("BENTOML_HOME", "/srv/bentoml")
	rec := &recordedBuild{}

	code, _ := runCLI(t, rec, "iris_classifier", "--registry", "registry.example.com/ns")

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "env-token", rec.opts.Token)
	assert.Equal(t, "https://env.yatai.example.com", rec.opts.Endpoint)
	assert.Equal(t, "/srv/bentoml", rec.opts.Home)
}

func TestRunPrefersFlagsOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("YATAI_TOKEN", "env-token")
	rec := &recordedBuild{}

	runCLI(t, rec, "iris_classifier", "--registry", "r.example.com", "--yatai-token", "flag-token")

	assert.Equal(t, "flag-token", rec.opts.Token)
}

func TestRunReturnsBuilderExitCode(t *testing.T) {
	clearEnv(t)
	rec := &recordedBuild{code: 42}

	code, _ := runCLI(t, rec, "iris_classifier", "--registry", "r.example.com")

	assert.Equal(t, 42, code)
}

func TestRunMapsErrorsToExitCodes(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"auth":    {session.ErrUserNotFound, exitcode.AuthError},
		"resolve": {clierr.Newf(clierr.KindResolution, "cannot resolve bento %q", "x"), exitcode.ResolveError},
		"launch":  {&build.LaunchError{Executable: "/kaniko/executor", Err: errors.New("missing")}, exitcode.LaunchError},
		"cancel":  {context.Canceled, exitcode.Interrupted},
		"general": {errors.New("disk full"), exitcode.GeneralError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			rec := &recordedBuild{err: tc.err}

			code, _ := runCLI(t, rec, "iris_classifier", "--registry", "r.example.com")

			assert.Equal(t, tc.want, code)
		})
	}
}

func TestRunRejectsBadUsage(t *testing.T) {
	cases := map[string][]string{
		"no bento":      {"--registry", "r.example.com"},
		"two bentos":    {"a", "b", "--registry", "r.example.com"},
		"unknown flag":  {"a", "--registry", "r.example.com", "--push"},
		"bad log level": {"a", "--log-level", "loud"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			rec := &recordedBuild{}

			code, _ := runCLI(t, rec, args...)

			assert.Equal(t, exitcode.UsageError, code)
			assert.Zero(t, rec.calls)
		})
	}
}

func TestRunSetsLogLevel(t *testing.T) {
	clearEnv(t)
	rec := &recordedBuild{}

	_, level := runCLI(t, rec, "iris_classifier", "--registry", "r.example.com", "--log-level", "debug")

	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestRunLogsExitReason(t *testing.T) {
	clearEnv(t)
	var logs bytes.Buffer
	var level slog.LevelVar
	logger := logging.New(logging.FormatText, &logs, &level)
	rec := &recordedBuild{err: session.ErrOrganizationNotFound}

	code := run(context.Background(), []string{"iris_classifier", "--registry", "r.example.com"}, logger, &level, rec.build)

	assert.Equal(t, exitcode.AuthError, code)
	assert.Contains(t, logs.String(), `reason="Authentication error"`)
	assert.Contains(t, logs.String(), `error="current organization is not found"`)
}
