package simple

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cochaviz/bento-kaniko/internal/bento"
	"github.com/cochaviz/bento-kaniko/internal/build"
	"github.com/cochaviz/bento-kaniko/internal/logging"
	"github.com/cochaviz/bento-kaniko/internal/services"
	"github.com/cochaviz/bento-kaniko/internal/session"
	"github.com/cochaviz/bento-kaniko/internal/setup"
	"github.com/cochaviz/bento-kaniko/internal/yatai"
)

var DefaultExecutable = build.DefaultExecutable

// Version is reported to yatai in the User-Agent; set at link time.
var Version = "dev"

// yataiOptions configures every yatai client: connection setup and response
// headers are bounded, bento downloads are not.
func yataiOptions() []yatai.Option {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: time.Minute,
		IdleConnTimeout:       90 * time.Second,
	}
	return []yatai.Option{
		yatai.WithHTTPClient(&http.Client{Transport: transport}),
		yatai.WithUserAgent("bento-kaniko/" + Version),
	}
}

// BuildOptions is everything the command line collects for one build.
type BuildOptions struct {
	Service    string
	Registry   string
	Endpoint   string
	Token      string
	Executable string
	Cache      bool
	// Home is the BentoML home; empty means setup.Home().
	Home string
	// Progress receives the download progress bar; nil disables it.
	Progress io.Writer
	// Stdout receives the builder output; nil means os.Stdout.
	Stdout io.Writer
}

// Build logs in, pulls the bento and runs kaniko on it, returning the exit
// code of kaniko.
func Build(ctx context.Context, opts BuildOptions) (int, error) {
	return BuildWithLogger(ctx, opts, nil)
}

// BuildWithLogger is Build using the provided logger.
func BuildWithLogger(ctx context.Context, opts BuildOptions, logger *slog.Logger) (int, error) {
	logger = logging.Ensure(logger).With("component", "config.simple")

	home := opts.Home
	if home == "" {
		var err error
		if home, err = setup.Home(); err != nil {
			return -1, err
		}
	}
	if err := setup.Prepare(home); err != nil {
		return -1, fmt.Errorf("prepare bentoml home: %w", err)
	}
	logger.Debug("using bentoml home", "home", home)

	clientOptions := yataiOptions()
	contexts := &session.FileStore{
		Path:   setup.YataiConfigPath(home),
		Logger: logger.With("store", "yatai-contexts"),
	}

	buildService := services.BuildService{
		Logger: logger.With("service", "build"),
		Sessions: &session.Establisher{
			Logger:    logger.With("service", "session"),
			NewClient: session.YataiClientFactory(clientOptions...),
			Store:     contexts,
		},
		Artifacts: &bento.Resolver{
			Logger: logger.With("service", "resolver"),
			Store: &bento.Puller{
				Client: &storedContextClient{
					Store:   contexts,
					Name:    session.DefaultContextName,
					Options: clientOptions,
					Logger:  logger.With("client", "yatai"),
				},
				Store: &bento.LocalStore{
					BaseDir: setup.BentoStoreDir(home),
					Logger:  logger.With("store", "bentos"),
				},
				Progress: opts.Progress,
				Logger:   logger.With("service", "puller"),
			},
		},
		Invoker: &build.Invoker{
			Stdout: opts.Stdout,
			Logger: logger.With("driver", "kaniko"),
		},
	}

	return buildService.Run(ctx, &services.BuildRequest{
		Service:    opts.Service,
		Registry:   opts.Registry,
		Endpoint:   opts.Endpoint,
		Token:      opts.Token,
		Executable: opts.Executable,
		Cache:      opts.Cache,
	})
}

// storedContextClient pulls with the yatai context stored by the login step,
// opening the client on first use.
type storedContextClient struct {
	Store   session.Store
	Name    string
	Options []yatai.Option
	Logger  *slog.Logger

	once   sync.Once
	client *yatai.Client
	err    error
}

var _ bento.RemoteClient = (*storedContextClient)(nil)

func (c *storedContextClient) open() (*yatai.Client, error) {
	c.once.Do(func() {
		stored, err := c.Store.Get(c.Name)
		if err != nil {
			c.err = fmt.Errorf("load yatai context: %w", err)
			return
		}
		c.client, c.err = yatai.NewClient(stored.Endpoint, stored.APIToken, c.Options...)
		if c.err == nil {
			logging.Ensure(c.Logger).Debug("pulling with stored yatai context", "context", stored.Name, "endpoint", c.client.Endpoint())
		}
	})
	return c.client, c.err
}

func (c *storedContextClient) GetBentoRepository(ctx context.Context, name string) (*yatai.BentoRepository, error) {
	client, err := c.open()
	if err != nil {
		return nil, err
	}
	return client.GetBentoRepository(ctx, name)
}

func (c *storedContextClient) GetBento(ctx context.Context, name, version string) (*yatai.Bento, error) {
	client, err := c.open()
	if err != nil {
		return nil, err
	}
	return client.GetBento(ctx, name, version)
}

func (c *storedContextClient) PresignBentoDownloadURL(ctx context.Context, name, version string) (*yatai.Bento, error) {
	client, err := c.open()
	if err != nil {
		return nil, err
	}
	return client.PresignBentoDownloadURL(ctx, name, version)
}

func (c *storedContextClient) DownloadBento(ctx context.Context, b *yatai.Bento, handler func(r io.Reader, size int64) error) error {
	client, err := c.open()
	if err != nil {
		return err
	}
	return client.DownloadBento(ctx, b, handler)
}

// ProgressWriter returns where download progress goes: stderr when it is a
// terminal and progress is wanted, nothing otherwise.
func ProgressWriter(enabled bool) io.Writer {
	if !enabled || !logging.IsTerminal(os.Stderr) {
		return nil
	}
	return os.Stderr
}
