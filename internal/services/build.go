package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cochaviz/bento-kaniko/internal/artifacts"
	"github.com/cochaviz/bento-kaniko/internal/build"
	"github.com/cochaviz/bento-kaniko/internal/clierr"
	"github.com/cochaviz/bento-kaniko/internal/session"
)

// Stage is a step of the build pipeline.
type Stage string

const (
	StageAuthenticating Stage = "authenticating"
	StageResolving      Stage = "resolving"
	StageBuilding       Stage = "building"
	StageExited         Stage = "exited"
)

type SessionEstablisher interface {
	Establish(ctx context.Context, endpoint, token string) (session.Context, error)
}

type ArtifactResolver interface {
	Resolve(ctx context.Context, id string) (artifacts.Handle, error)
}

type BuildInvoker interface {
	Run(ctx context.Context, argv []string) (int, error)
}

// BuildRequest carries everything a single run needs.
type BuildRequest struct {
	Service    string
	Registry   string
	Endpoint   string
	Token      string
	Executable string
	Cache      bool
}

func (r *BuildRequest) validate() error {
	switch {
	case r == nil:
		return clierr.Newf(clierr.KindUsage, "no build request given")
	case strings.TrimSpace(r.Service) == "":
		return clierr.Newf(clierr.KindUsage, "a bento tag is required")
	case strings.TrimSpace(r.Registry) == "":
		return clierr.Newf(clierr.KindUsage, "--registry is required")
	case strings.TrimSpace(r.Endpoint) == "":
		return clierr.Newf(clierr.KindUsage, "--yatai-endpoint (or YATAI_ENDPOINT) is required")
	case strings.TrimSpace(r.Token) == "":
		return clierr.Newf(clierr.KindUsage, "--yatai-token (or YATAI_TOKEN) is required")
	}
	return nil
}

// BuildService logs in to yatai, pulls the bento and hands it to kaniko.
type BuildService struct {
	Logger    *slog.Logger
	Sessions  SessionEstablisher
	Artifacts ArtifactResolver
	Invoker   BuildInvoker
}

// Run executes the pipeline and returns the builder's exit code. Any error
// stops the pipeline at the stage it happened in; the builder is not started
// unless login and resolution both succeeded.
func (s *BuildService) Run(ctx context.Context, request *BuildRequest) (int, error) {
	if err := request.validate(); err != nil {
		return -1, err
	}
	if s.Sessions == nil || s.Artifacts == nil || s.Invoker == nil {
		return -1, errors.New("build service is not configured")
	}

	registry := strings.TrimSuffix(strings.TrimSpace(request.Registry), "/")
	if err := build.ValidateRegistry(registry); err != nil {
		return -1, registryError(err)
	}
	logger := s.logger().With("bento", request.Service, "registry", registry)

	logger.Info("stage", "stage", StageAuthenticating, "endpoint", request.Endpoint)
	if _, err := s.Sessions.Establish(ctx, request.Endpoint, request.Token); err != nil {
		return -1, authenticationError(err)
	}

	logger.Info("stage", "stage", StageResolving)
	handle, err := s.Artifacts.Resolve(ctx, request.Service)
	if err != nil {
		return -1, err
	}
	logger = logger.With("version", handle.Version)

	if err := build.ValidateDestination(build.Destination(handle, registry)); err != nil {
		return -1, registryError(err)
	}
	argv := build.Command(handle, registry, build.Options{
		Executable: request.Executable,
		Cache:      request.Cache,
	})

	logger.Info("stage", "stage", StageBuilding, "context", handle.Path)
	code, err := s.Invoker.Run(ctx, argv)
	if err != nil {
		return code, err
	}

	logger.Info("stage", "stage", StageExited, "exit_code", code)
	return code, nil
}

func (s *BuildService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func registryError(err error) error {
	return clierr.New(
		"cannot derive an image reference from --registry",
		clierr.WithKind(clierr.KindUsage),
		clierr.WithCause(err),
	)
}

// authenticationError keeps already classified errors as they are and files
// the rest (transport failures, rejected tokens) under authentication.
func authenticationError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var kinded clierr.Kinded
	if errors.As(err, &kinded) {
		return err
	}
	return clierr.New(
		"cannot log in to yatai",
		clierr.WithKind(clierr.KindAuthentication),
		clierr.WithCause(err),
	)
}
