package service

//go:generate mockgen -source=auth.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"smp/internal/owner"
)

// Authenticator verifies the credentials presented with a mutating request.
type Authenticator interface {
	Authenticate(ctx context.Context, creds owner.Credentials) (*owner.User, error)
}
