package session

import (
	"errors"

	"github.com/cochaviz/bento-kaniko/internal/clierr"
)

var (
	ErrUserNotFound = clierr.New(
		"current user is not found",
		clierr.WithKind(clierr.KindAuthentication),
	)
	ErrOrganizationNotFound = clierr.New(
		"current organization is not found",
		clierr.WithKind(clierr.KindAuthentication),
	)
	ErrInvalidInput    = errors.New("yatai endpoint and token are required")
	ErrContextNotFound = errors.New("yatai context is not found")
)
