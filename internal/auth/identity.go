package auth

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bonusclub/auth-api/internal/model"
)

// Getters resolve the entities behind a credential. They are injected
// as closures by the composition root so this package stays decoupled
// from the service layer. The access token getter must return alive
// rows only.
type Getters struct {
	AccessToken func(ctx context.Context, jti string) (*model.AccessToken, error)
	User        func(ctx context.Context, id string) (*model.User, error)
	Business    func(ctx context.Context, code string) (*model.Business, error)
	Client      func(ctx context.Context, userID, businessCode string) (*model.Client, error)
}

// Identity resolves the caller of a request lazily:
// payload -> access token -> user -> business -> client. Every link
// memoizes its result, absence included, and a break anywhere in the
// chain leaves the links after it nil. Requests are handled by a
// single goroutine, so no locking.
type Identity struct {
	codec          *Codec
	get            Getters
	bearer         string
	headerBusiness string

	payload      *Payload
	payloadDone  bool
	token        *model.AccessToken
	tokenDone    bool
	user         *model.User
	userDone     bool
	business     *model.Business
	businessDone bool
	client       *model.Client
	clientDone   bool
}

// NewIdentity builds an unresolved identity for one request. bearer is
// the raw credential from the Authorization header (may be empty);
// headerBusiness is the X-Business-ID fallback.
func NewIdentity(codec *Codec, get Getters, bearer, headerBusiness string) *Identity {
	return &Identity{codec: codec, get: get, bearer: bearer, headerBusiness: headerBusiness}
}

// Payload decodes the bearer credential, once.
func (id *Identity) Payload(ctx context.Context) *Payload {
	if id.payloadDone {
		return id.payload
	}
	id.payloadDone = true
	if id.bearer == "" {
		return nil
	}
	p, err := id.codec.Decode(id.bearer, false)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("bearer decode failed")
		return nil
	}
	id.payload = p
	return id.payload
}

// AccessToken resolves the alive access token row named by the
// payload. Refresh payloads never resolve to a token here.
func (id *Identity) AccessToken(ctx context.Context) *model.AccessToken {
	if id.tokenDone {
		return id.token
	}
	id.tokenDone = true
	p := id.Payload(ctx)
	if p == nil || p.Type != model.TokenAccess {
		return nil
	}
	t, err := id.get.AccessToken(ctx, p.JTI)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("jti", p.JTI).Msg("access token resolve failed")
		return nil
	}
	id.token = t
	return id.token
}

// User resolves the owner of the access token.
func (id *Identity) User(ctx context.Context) *model.User {
	if id.userDone {
		return id.user
	}
	id.userDone = true
	t := id.AccessToken(ctx)
	if t == nil {
		return nil
	}
	u, err := id.get.User(ctx, t.UserID)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("user_id", t.UserID).Msg("user resolve failed")
		return nil
	}
	id.user = u
	return id.user
}

// Business resolves the tenant the access token is scoped to, if any.
func (id *Identity) Business(ctx context.Context) *model.Business {
	if id.businessDone {
		return id.business
	}
	id.businessDone = true
	t := id.AccessToken(ctx)
	if t == nil || t.BusinessCode == nil {
		return nil
	}
	b, err := id.get.Business(ctx, *t.BusinessCode)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("business_code", *t.BusinessCode).Msg("business resolve failed")
		return nil
	}
	id.business = b
	return id.business
}

// Client resolves the caller's membership in the scoped business.
func (id *Identity) Client(ctx context.Context) *model.Client {
	if id.clientDone {
		return id.client
	}
	id.clientDone = true
	u := id.User(ctx)
	b := id.Business(ctx)
	if u == nil || b == nil {
		return nil
	}
	c, err := id.get.Client(ctx, u.ID, b.Code)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("client resolve failed")
		return nil
	}
	id.client = c
	return id.client
}

// Realm returns the realm claimed by the bearer payload, or empty.
func (id *Identity) Realm(ctx context.Context) model.Realm {
	if p := id.Payload(ctx); p != nil {
		return p.Realm
	}
	return ""
}

// BusinessCode returns the business scope of the request: the access
// token's code when present, otherwise the X-Business-ID header.
func (id *Identity) BusinessCode(ctx context.Context) string {
	if t := id.AccessToken(ctx); t != nil && t.BusinessCode != nil {
		return *t.BusinessCode
	}
	return id.headerBusiness
}
