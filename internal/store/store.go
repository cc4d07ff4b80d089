// Package store is the durable source of truth. Two implementations
// share one interface: Postgres for production and Memory for tests
// and local tooling. Multi-statement flows (OTP send, pair issue,
// rotation, cascading revoke) are single transactions inside store
// methods; callers never compose partial writes.
package store

import (
	"context"
	"time"

	"github.com/bonusclub/auth-api/internal/model"
)

// CreateOTPParams drives the transactional OTP send: rate-limit
// checks, old-code revocation, and the insert happen atomically.
type CreateOTPParams struct {
	Phone        string
	Realm        model.Realm
	BusinessCode *string
	Code         string
	Now          time.Time
	Lifetime     time.Duration
	Cooldown     time.Duration
	Window       time.Duration
	Limit        int
	RevokeOld    bool
}

// TokenPairParams drives the transactional pair issue.
type TokenPairParams struct {
	UserID       string
	Realm        model.Realm
	BusinessCode *string
	IPAddress    string
	UserAgent    string
	Now          time.Time
}

// RotateParams carries the request metadata stamped onto the new pair
// during refresh rotation.
type RotateParams struct {
	IPAddress string
	UserAgent string
	Now       time.Time
}

// Rotation is the outcome of a successful refresh: the two revoked
// jtis (for cache invalidation) and the freshly issued pair.
type Rotation struct {
	OldAccessJTI  string
	OldRefreshJTI string
	Access        *model.AccessToken
	Refresh       *model.RefreshToken
}

// RevokedPair names one access/refresh pair flipped by a bulk revoke.
type RevokedPair struct {
	AccessJTI  string
	RefreshJTI string
}

// TokenFilter scopes token listing and counting.
type TokenFilter struct {
	UserID       string
	Realm        model.Realm
	BusinessCode *string
	Limit        int
	Offset       int
}

// Store is the persistence surface of the auth core. Lookups return
// nil, nil when the row does not exist; domain failures (duplicate
// user, unknown business, tripped rate limit, dead refresh) come back
// as apperr kinds.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByPhone(ctx context.Context, phone string) (*model.User, error)

	CreateBusiness(ctx context.Context, b *model.Business) error
	BusinessByCode(ctx context.Context, code string) (*model.Business, error)
	BusinessByOwner(ctx context.Context, ownerID string) (*model.Business, error)

	CreateClient(ctx context.Context, c *model.Client) error
	ClientByPair(ctx context.Context, userID, businessCode string) (*model.Client, error)
	UpdateClientProfile(ctx context.Context, userID, businessCode string, firstName, lastName *string) (*model.Client, error)

	CreateOTP(ctx context.Context, p CreateOTPParams) (*model.OTP, error)
	LiveOTP(ctx context.Context, phone string, businessCode *string, now time.Time) (*model.OTP, error)
	MarkOTPUsed(ctx context.Context, id string) error

	CreateTokenPair(ctx context.Context, p TokenPairParams) (*model.AccessToken, *model.RefreshToken, error)
	AccessTokenByJTI(ctx context.Context, jti string, aliveOnly bool, now time.Time) (*model.AccessToken, error)
	RefreshTokenByJTI(ctx context.Context, jti string, aliveOnly bool, now time.Time) (*model.RefreshToken, error)
	RotateTokenPair(ctx context.Context, refreshJTI string, p RotateParams) (*Rotation, error)
	RevokeTokenPair(ctx context.Context, accessJTI, refreshJTI string) error
	RevokeUserAccessToken(ctx context.Context, userID, accessJTI string) (refreshJTI string, revoked bool, err error)
	RevokeAllExceptCurrent(ctx context.Context, userID string, realm model.Realm, businessCode *string, currentJTI string, now time.Time) ([]RevokedPair, error)
	ListAccessTokens(ctx context.Context, f TokenFilter) ([]*model.AccessToken, error)
	CountAccessTokens(ctx context.Context, f TokenFilter) (int, error)
}
