package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cochaviz/bento-kaniko/internal/yatai"
)

// ControlPlaneClient is the part of the yatai API needed to log in.
type ControlPlaneClient interface {
	CurrentUser(ctx context.Context) (*yatai.User, error)
	CurrentOrganization(ctx context.Context) (*yatai.Organization, error)
}

// ClientFactory opens a control plane client for endpoint using token.
type ClientFactory func(endpoint, token string) (ControlPlaneClient, error)

// YataiClientFactory opens real yatai clients.
func YataiClientFactory(opts ...yatai.Option) ClientFactory {
	return func(endpoint, token string) (ControlPlaneClient, error) {
		return yatai.NewClient(endpoint, token, opts...)
	}
}

// Establisher logs in against yatai and stores the resulting context.
type Establisher struct {
	Logger    *slog.Logger
	NewClient ClientFactory
	Store     Store
}

// Establish verifies that token resolves to a user and an organization on
// endpoint, then stores the context under DefaultContextName. Nothing is
// stored when either lookup comes back empty.
func (e *Establisher) Establish(ctx context.Context, endpoint, token string) (Context, error) {
	if e.NewClient == nil || e.Store == nil {
		return Context{}, errors.New("session establisher is not configured")
	}
	if strings.TrimSpace(endpoint) == "" || strings.TrimSpace(token) == "" {
		return Context{}, ErrInvalidInput
	}

	logger := e.logger().With("endpoint", endpoint)

	client, err := e.NewClient(endpoint, token)
	if err != nil {
		return Context{}, fmt.Errorf("open yatai client: %w", err)
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return Context{}, fmt.Errorf("get current user: %w", err)
	}
	if user == nil {
		return Context{}, ErrUserNotFound
	}

	org, err := client.CurrentOrganization(ctx)
	if err != nil {
		return Context{}, fmt.Errorf("get current organization: %w", err)
	}
	if org == nil {
		return Context{}, ErrOrganizationNotFound
	}

	session := Context{
		Name:     DefaultContextName,
		Endpoint: endpoint,
		APIToken: token,
		Email:    user.Email,
	}
	if err := e.Store.Put(session); err != nil {
		return Context{}, fmt.Errorf("store yatai context: %w", err)
	}

	logger.Info("logged in to yatai", "user", user.Email, "organization", org.Name, "context", session.Name)
	return session, nil
}

func (e *Establisher) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
