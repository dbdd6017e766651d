package bento

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cheggaaa/pb/v3"
	"github.com/zeebo/blake3"

	"github.com/cochaviz/bento-kaniko/internal/artifacts"
	"github.com/cochaviz/bento-kaniko/internal/yatai"
)

// ErrIncompleteDownload is returned when fewer or more bytes arrive than yatai
// announced.
var ErrIncompleteDownload = errors.New("bento download size mismatch")

type byteCounter struct{ n int64 }

func (c *byteCounter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// RemoteClient is the part of the yatai API needed to pull bentos.
type RemoteClient interface {
	GetBentoRepository(ctx context.Context, name string) (*yatai.BentoRepository, error)
	GetBento(ctx context.Context, name, version string) (*yatai.Bento, error)
	PresignBentoDownloadURL(ctx context.Context, name, version string) (*yatai.Bento, error)
	DownloadBento(ctx context.Context, bento *yatai.Bento, handler func(r io.Reader, size int64) error) error
}

// Puller pulls bentos from yatai into a LocalStore.
type Puller struct {
	Client RemoteClient
	Store  *LocalStore
	// Progress receives a download progress bar; nil disables it.
	Progress io.Writer
	Logger   *slog.Logger
}

var _ artifacts.Store = (*Puller)(nil)

func (p *Puller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ForcePull downloads id and replaces whatever local copy exists.
func (p *Puller) ForcePull(ctx context.Context, id string) error {
	if p.Client == nil || p.Store == nil {
		return errors.New("bento puller is not configured")
	}

	tag, err := artifacts.ParseTag(id)
	if err != nil {
		return err
	}
	if tag.IsLatest() {
		if tag, err = p.latestRemote(ctx, tag.Name); err != nil {
			return err
		}
	}
	logger := p.logger().With("bento", tag.String())

	remote, err := p.Client.GetBento(ctx, tag.Name, tag.Version)
	if err != nil {
		return fmt.Errorf("get bento %s: %w", tag, err)
	}
	if remote == nil {
		return fmt.Errorf("%w: %s on yatai", artifacts.ErrNotFound, tag)
	}
	if remote.UploadStatus != "" && remote.UploadStatus != yatai.UploadStatusSuccess {
		return fmt.Errorf("bento %s is not ready for download (upload status %q)", tag, remote.UploadStatus)
	}

	download, err := p.Client.PresignBentoDownloadURL(ctx, tag.Name, tag.Version)
	if err != nil {
		return fmt.Errorf("presign download of %s: %w", tag, err)
	}
	if download.Repository.Name == "" {
		download.Repository.Name = tag.Name
	}
	if download.Version == "" {
		download.Version = tag.Version
	}

	logger.Info("pulling bento")
	hasher := blake3.New()
	var (
		handle   artifacts.Handle
		received int64
	)
	err = p.Client.DownloadBento(ctx, download, func(r io.Reader, size int64) error {
		if p.Progress != nil {
			bar := pb.New64(size)
			bar.Set(pb.Bytes, true)
			bar.Set("prefix", tag.String()+" ")
			bar.SetWriter(p.Progress)
			bar.Start()
			defer bar.Finish()
			r = bar.NewProxyReader(r)
		}

		counter := &byteCounter{}
		tee := io.TeeReader(r, io.MultiWriter(hasher, counter))
		imported, err := p.Store.Import(tag, tee)
		if err != nil {
			return err
		}
		// hash the gzip trailer too.
		if _, err := io.Copy(io.Discard, tee); err != nil {
			return err
		}
		if size >= 0 && counter.n != size {
			_ = p.Store.Delete(tag)
			return fmt.Errorf("%w: got %d of %d bytes", ErrIncompleteDownload, counter.n, size)
		}
		handle = imported
		received = counter.n
		return nil
	})
	if err != nil {
		return fmt.Errorf("download bento %s: %w", tag, err)
	}

	logger.Info("pulled bento",
		"path", handle.Path,
		"bytes", received,
		"blake3", hex.EncodeToString(hasher.Sum(nil)),
	)
	return nil
}

// Resolve looks id up in the local store only.
func (p *Puller) Resolve(_ context.Context, id string) (artifacts.Handle, error) {
	if p.Store == nil {
		return artifacts.Handle{}, errors.New("bento store is not configured")
	}
	tag, err := artifacts.ParseTag(id)
	if err != nil {
		return artifacts.Handle{}, err
	}
	return p.Store.Get(tag)
}

func (p *Puller) latestRemote(ctx context.Context, name string) (artifacts.Tag, error) {
	repo, err := p.Client.GetBentoRepository(ctx, name)
	if err != nil {
		return artifacts.Tag{}, fmt.Errorf("get bento repository %s: %w", name, err)
	}
	if repo == nil || repo.LatestBento == nil || repo.LatestBento.Version == "" {
		return artifacts.Tag{}, fmt.Errorf("%w: no versions of %s on yatai", artifacts.ErrNotFound, name)
	}
	return artifacts.ParseTag(name + ":" + repo.LatestBento.Version)
}
