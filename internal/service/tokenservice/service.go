// Package tokenservice owns the credential pair lifecycle: issue,
// lookup, rotation, revocation, and listing. Every mutation keeps the
// cache coherent; the store stays authoritative.
package tokenservice

import (
	"context"
	"time"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/store"
)

// Deps are the service's collaborators. Now defaults to the UTC clock
// and exists so tests can pin time.
type Deps struct {
	Store store.Store
	Cache *cache.Cache
	Codec *auth.Codec
	Now   func() time.Time
}

type Service struct {
	store store.Store
	cache *cache.Cache
	codec *auth.Codec
	now   func() time.Time
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: d.Store, cache: d.Cache, codec: d.Codec, now: d.Now}
}

// Pair is an issued credential pair: the stored rows plus their signed
// envelopes.
type Pair struct {
	Access     *model.AccessToken
	Refresh    *model.RefreshToken
	AccessJWT  string
	RefreshJWT string
}

// signPair caches the freshly committed rows and signs their
// envelopes.
func (s *Service) signPair(ctx context.Context, access *model.AccessToken, refresh *model.RefreshToken) (*Pair, error) {
	s.cache.StoreEntity(ctx, access)
	s.cache.StoreEntity(ctx, refresh)

	accessJWT, err := s.codec.EncodeAccess(access)
	if err != nil {
		return nil, err
	}
	refreshJWT, err := s.codec.EncodeRefresh(refresh)
	if err != nil {
		return nil, err
	}
	return &Pair{Access: access, Refresh: refresh, AccessJWT: accessJWT, RefreshJWT: refreshJWT}, nil
}
