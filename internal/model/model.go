// Package model holds the persisted entities of the auth core and the
// cache key descriptors they expose. Entities are plain structs; the
// JSON tags define the blob layout used by the cache.
package model

import "time"

// Realm is the surface a credential belongs to.
type Realm string

const (
	RealmWeb    Realm = "web"
	RealmMobile Realm = "mobile"
)

// Valid reports whether r is one of the two known realms.
func (r Realm) Valid() bool {
	return r == RealmWeb || r == RealmMobile
}

// TokenKind discriminates the two halves of a token pair.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// User is an account keyed by phone number. Business owners and admins
// additionally carry a bcrypt password hash.
type User struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	PasswordHash *string   `json:"password_hash,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Business is a tenant. The code doubles as the public identifier
// handed to mobile clients.
type Business struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is the membership of a user in a business, created the first
// time the pair authenticates in the mobile realm.
type Client struct {
	UserID       string     `json:"user_id"`
	BusinessCode string     `json:"business_code"`
	FirstName    string     `json:"first_name"`
	LastName     *string    `json:"last_name,omitempty"`
	Bonuses      float64    `json:"bonuses"`
	Image        *string    `json:"image,omitempty"`
	IsStaff      bool       `json:"is_staff"`
	QRCode       string     `json:"qr_code"`
	Deleted      bool       `json:"deleted"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// OTP is a one-time code sent to a phone for a (phone, business) pair.
type OTP struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	BusinessCode *string   `json:"business_code,omitempty"`
	Realm        Realm     `json:"realm"`
	Code         string    `json:"code"`
	SentAt       time.Time `json:"sent_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Used         bool      `json:"used"`
	Revoked      bool      `json:"revoked"`
}

// Live reports whether the OTP can still be confirmed at now.
func (o *OTP) Live(now time.Time) bool {
	return !o.Revoked && !o.Used && o.ExpiresAt.After(now)
}

// AccessToken is the short-lived half of a credential pair.
type AccessToken struct {
	JTI             string    `json:"jti"`
	UserID          string    `json:"user_id"`
	Realm           Realm     `json:"realm"`
	BusinessCode    *string   `json:"business_code,omitempty"`
	IPAddress       string    `json:"ip_address"`
	UserAgent       string    `json:"user_agent"`
	IssuedAt        time.Time `json:"issued_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	Revoked         bool      `json:"revoked"`
	RefreshTokenJTI string    `json:"refresh_token_jti"`
}

// Alive reports whether the token is neither revoked nor expired at now.
func (t *AccessToken) Alive(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// RefreshToken is the long-lived half of a credential pair. The access
// link is nullable at the schema level and back-patched inside the
// issuing transaction.
type RefreshToken struct {
	JTI            string    `json:"jti"`
	UserID         string    `json:"user_id"`
	Realm          Realm     `json:"realm"`
	BusinessCode   *string   `json:"business_code,omitempty"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Revoked        bool      `json:"revoked"`
	AccessTokenJTI *string   `json:"access_token_jti,omitempty"`
}

// Alive reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) Alive(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

// Token lifetimes. Rotation is the only way to extend a session.
const (
	AccessTokenLifetime  = 7 * 24 * time.Hour
	RefreshTokenLifetime = 14 * 24 * time.Hour
)

// Fallbacks recorded on tokens issued without request metadata.
const (
	NoIP        = "<no ip>"
	NoUserAgent = "<no user agent>"
)
