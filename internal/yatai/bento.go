package yatai

import (
	"context"
	"errors"
	"io"
	"net/http"
)

var ErrNoDownloadURL = errors.New("yatai returned no download url")

// GetBentoRepository returns the repository for name, or nil if yatai has
// none.
func (c *Client) GetBentoRepository(ctx context.Context, name string) (*BentoRepository, error) {
	return getOptional[BentoRepository](ctx, c, "looking up bento repository", "api", "v1", "bento_repositories", name)
}

// GetBento returns one bento version, or nil if yatai has none.
func (c *Client) GetBento(ctx context.Context, name, version string) (*Bento, error) {
	return getOptional[Bento](ctx, c, "looking up bento", bentoPath(name, version)...)
}

// PresignBentoDownloadURL asks yatai for a short-lived download URL.
func (c *Client) PresignBentoDownloadURL(ctx context.Context, name, version string) (*Bento, error) {
	resp, err := c.do(ctx, http.MethodPatch, append(bentoPath(name, version), "presign_download_url")...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return unmarshalJSONResponse[Bento](resp, "presigning bento download")
}

// DownloadBento streams the archive of bento to handler along with its
// advertised size (-1 if unknown). A presigned URL is used when yatai offered
// one; otherwise the archive is proxied through yatai.
func (c *Client) DownloadBento(ctx context.Context, bento *Bento, handler func(r io.Reader, size int64) error) error {
	if bento == nil {
		return ErrNoDownloadURL
	}

	var (
		req *http.Request
		err error
	)
	if bento.PresignedDownloadURL != "" && bento.TransmissionStrategy != TransmissionStrategyProxy {
		// presigned URLs carry their own credentials
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, bento.PresignedDownloadURL, nil)
	} else {
		req, err = c.newRequest(ctx, http.MethodGet, c.apipath(append(bentoPath(bentoName(bento), bento.Version), "download")...), nil)
	}
	if err != nil {
		return err
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp, "downloading bento"); err != nil {
		return err
	}

	if err := handler(resp.Body, resp.ContentLength); err != nil {
		return err
	}
	// drain rest of the body so the connection can be reused.
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func bentoPath(name, version string) []string {
	return []string{"api", "v1", "bento_repositories", name, "bentos", version}
}

func bentoName(b *Bento) string {
	if b.Repository.Name != "" {
		return b.Repository.Name
	}
	return b.Name
}
