package owner

//go:generate mockgen -source=authenticator.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	dErrors "smp/pkg/domain-errors"
	"smp/pkg/platform/sentinel"
)

const (
	DefaultCacheTTL             = 5 * time.Minute
	defaultCacheCleanupInterval = 10 * time.Minute
)

// UserStore looks users up by login name.
type UserStore interface {
	FindByLoginName(ctx context.Context, loginName string) (*User, error)
}

// Authenticator verifies basic auth credentials. Successful verifications
// are cached so repeated requests skip bcrypt.
type Authenticator struct {
	users  UserStore
	cache  *gocache.Cache
	logger *slog.Logger
}

type Option func(*Authenticator)

func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Authenticator) {
		a.cache = gocache.New(ttl, defaultCacheCleanupInterval)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(users UserStore, opts ...Option) (*Authenticator, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	a := &Authenticator{users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = gocache.New(DefaultCacheTTL, defaultCacheCleanupInterval)
	}
	return a, nil
}

// Authenticate returns the user matching creds or an unauthorized error.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*User, error) {
	if creds.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credentials are required")
	}

	key := cacheKey(creds)
	if cached, ok := a.cache.Get(key); ok {
		if user, ok := cached.(User); ok {
			return &user, nil
		}
	}

	user, err := a.users.FindByLoginName(ctx, creds.UserName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			a.logger.InfoContext(ctx, "authentication failed", "login_name", creds.UserName, "reason", "unknown_user")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := VerifyPassword(creds.Password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			a.logger.InfoContext(ctx, "authentication failed", "login_name", creds.UserName, "reason", "bad_password")
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}

	a.cache.SetDefault(key, *user)
	return user, nil
}

// Forget drops cached verifications, e.g. after the users file changed.
func (a *Authenticator) Forget() {
	a.cache.Flush()
}

// cacheKey never holds the plain password.
func cacheKey(creds Credentials) string {
	sum := sha256.Sum256([]byte(creds.UserName + "\x00" + creds.Password))
	return hex.EncodeToString(sum[:])
}
