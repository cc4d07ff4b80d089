// Package authservice implements the account-facing flows in front of
// the token layer: OTP issue and confirm for the mobile realm, password
// login for the web console, and provisioning of users, businesses and
// client memberships. Plain lookups go through the cache; anything that
// decides whether a login succeeds reads the store directly.
package authservice

import (
	"time"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
	"github.com/bonusclub/auth-api/internal/sms"
	"github.com/bonusclub/auth-api/internal/store"
)

// Deps are the service's collaborators. Hasher defaults to the bcrypt
// hasher and Now to the UTC clock.
type Deps struct {
	Store  store.Store
	Cache  *cache.Cache
	SMS    sms.Sender
	Tokens *tokenservice.Service
	Hasher *auth.PasswordHasher
	Now    func() time.Time
}

type Service struct {
	store  store.Store
	cache  *cache.Cache
	sms    sms.Sender
	tokens *tokenservice.Service
	hasher *auth.PasswordHasher
	now    func() time.Time
}

func New(d Deps) *Service {
	if d.Hasher == nil {
		d.Hasher = auth.NewPasswordHasher()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:  d.Store,
		cache:  d.Cache,
		sms:    d.SMS,
		tokens: d.Tokens,
		hasher: d.Hasher,
		now:    d.Now,
	}
}
