package tokenservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/store"
)

// IssueParams scope a new credential pair.
type IssueParams struct {
	UserID       string
	Realm        model.Realm
	BusinessCode *string
	IPAddress    string
	UserAgent    string
}

// Issue creates a linked pair for the scope. Mobile pairs require a
// business code and the business must exist; web pairs never carry
// one.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*Pair, error) {
	switch p.Realm {
	case model.RealmMobile:
		if p.BusinessCode == nil {
			return nil, apperr.New(apperr.KindBadRequest, "For mobile app business id should be provided.")
		}
	case model.RealmWeb:
		if p.BusinessCode != nil {
			return nil, apperr.New(apperr.KindBadRequest, "Business code is not allowed in WEB realm.")
		}
	default:
		return nil, apperr.Newf(apperr.KindBadRequest, "Unknown realm %s.", p.Realm)
	}

	if p.BusinessCode != nil {
		business, err := s.businessByCode(ctx, *p.BusinessCode)
		if err != nil {
			return nil, err
		}
		if business == nil {
			return nil, apperr.Newf(apperr.KindNotFound, "Business with code %s does not exist", *p.BusinessCode)
		}
	}

	access, refresh, err := s.store.CreateTokenPair(ctx, store.TokenPairParams{
		UserID:       p.UserID,
		Realm:        p.Realm,
		BusinessCode: p.BusinessCode,
		IPAddress:    orDefault(p.IPAddress, model.NoIP),
		UserAgent:    orDefault(p.UserAgent, model.NoUserAgent),
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	return s.signPair(ctx, access, refresh)
}

// AccessByJTI reads an access token through the cache. With aliveOnly
// the row is filtered against revocation and expiry after the read, so
// the cached blob always mirrors the stored row.
func (s *Service) AccessByJTI(ctx context.Context, jti string, aliveOnly bool) (*model.AccessToken, error) {
	t, err := cache.ReadThrough[model.AccessToken](ctx, s.cache, model.AccessTokenKey(jti), nil,
		func(ctx context.Context) (*model.AccessToken, error) {
			return s.store.AccessTokenByJTI(ctx, jti, false, s.now())
		})
	if err != nil || t == nil {
		return nil, err
	}
	if aliveOnly && !t.Alive(s.now()) {
		return nil, nil
	}
	return t, nil
}

// RefreshByJTI is AccessByJTI for the long-lived half.
func (s *Service) RefreshByJTI(ctx context.Context, jti string, aliveOnly bool) (*model.RefreshToken, error) {
	t, err := cache.ReadThrough[model.RefreshToken](ctx, s.cache, model.RefreshTokenKey(jti), nil,
		func(ctx context.Context) (*model.RefreshToken, error) {
			return s.store.RefreshTokenByJTI(ctx, jti, false, s.now())
		})
	if err != nil || t == nil {
		return nil, err
	}
	if aliveOnly && !t.Alive(s.now()) {
		return nil, nil
	}
	return t, nil
}

// Refresh rotates a pair: the presented refresh envelope is verified,
// its row is retired, and a new pair with the same scope is issued
// carrying the caller's request metadata. Replays lose in the store
// and surface as BadRequest.
func (s *Service) Refresh(ctx context.Context, rawToken, ip, ua string) (*Pair, error) {
	payload, err := s.codec.Decode(rawToken, false)
	if err != nil {
		return nil, apperr.New(apperr.KindBadRequest, "Not a token")
	}
	if payload.Type != model.TokenRefresh {
		return nil, apperr.New(apperr.KindBadRequest, "Not a token")
	}

	rot, err := s.store.RotateTokenPair(ctx, payload.JTI, store.RotateParams{
		IPAddress: orDefault(ip, model.NoIP),
		UserAgent: orDefault(ua, model.NoUserAgent),
		Now:       s.now(),
	})
	if err != nil {
		return nil, err
	}

	stale := []string{model.RefreshTokenKey(rot.OldRefreshJTI)}
	if rot.OldAccessJTI != "" {
		stale = append(stale, model.AccessTokenKey(rot.OldAccessJTI))
	}
	s.cache.InvalidateKeys(ctx, stale...)

	return s.signPair(ctx, rot.Access, rot.Refresh)
}

// RevokePair retires both halves of the caller's pair. Idempotent;
// logging out twice is fine.
func (s *Service) RevokePair(ctx context.Context, access *model.AccessToken) error {
	if err := s.store.RevokeTokenPair(ctx, access.JTI, access.RefreshTokenJTI); err != nil {
		return err
	}
	s.cache.InvalidateKeys(ctx,
		model.AccessTokenKey(access.JTI),
		model.RefreshTokenKey(access.RefreshTokenJTI))
	return nil
}

// RevokeByJTI retires one pair by its access jti, but only when the
// row belongs to userID. A miss is a BadRequest, not a NotFound, so
// callers cannot probe other users' jtis.
func (s *Service) RevokeByJTI(ctx context.Context, userID, jti string) error {
	if _, err := uuid.Parse(jti); err != nil {
		return apperr.New(apperr.KindBadRequest, "Bad Request")
	}
	refreshJTI, ok, err := s.store.RevokeUserAccessToken(ctx, userID, jti)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.KindBadRequest, "Bad Request")
	}
	s.cache.InvalidateKeys(ctx, model.AccessTokenKey(jti), model.RefreshTokenKey(refreshJTI))
	return nil
}

// RevokeAllExceptCurrent retires every live pair in the caller's scope
// except the one authenticating this request. Returns the number of
// pairs revoked.
func (s *Service) RevokeAllExceptCurrent(ctx context.Context, userID string, realm model.Realm, businessCode *string, currentJTI string) (int, error) {
	pairs, err := s.store.RevokeAllExceptCurrent(ctx, userID, realm, businessCode, currentJTI, s.now())
	if err != nil {
		return 0, err
	}
	stale := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		stale = append(stale, model.AccessTokenKey(p.AccessJTI), model.RefreshTokenKey(p.RefreshJTI))
	}
	s.cache.InvalidateKeys(ctx, stale...)
	return len(pairs), nil
}

// ListParams scope a token listing.
type ListParams struct {
	UserID       string
	Realm        model.Realm
	BusinessCode *string
	Limit        int
	Offset       int
}

// ListIssued returns one page of the scope's tokens, newest first,
// plus the unpaged total. Revoked and expired rows are included.
func (s *Service) ListIssued(ctx context.Context, p ListParams) ([]*model.AccessToken, int, error) {
	if p.Realm == model.RealmMobile && p.BusinessCode == nil {
		return nil, 0, apperr.New(apperr.KindBadRequest, "For mobile app business id should be provided.")
	}
	f := store.TokenFilter{
		UserID:       p.UserID,
		Realm:        p.Realm,
		BusinessCode: p.BusinessCode,
		Limit:        p.Limit,
		Offset:       p.Offset,
	}
	tokens, err := s.store.ListAccessTokens(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountAccessTokens(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return tokens, total, nil
}

func (s *Service) businessByCode(ctx context.Context, code string) (*model.Business, error) {
	return cache.ReadThrough[model.Business](ctx, s.cache, model.BusinessKey(code), nil,
		func(ctx context.Context) (*model.Business, error) {
			return s.store.BusinessByCode(ctx, code)
		})
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
