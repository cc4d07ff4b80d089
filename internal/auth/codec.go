// Package auth carries the credential envelope codec, the bcrypt
// hasher, and the per-request identity chain. It decides nothing about
// routes; the HTTP layer composes these pieces.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

// Payload is the decoded claim set of a bearer credential. It mirrors
// a token row at issue time; revocation is never part of the envelope
// and only the store answers it.
type Payload struct {
	JTI          string
	UserID       string
	Realm        model.Realm
	BusinessCode *string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Type         model.TokenKind
}

// Codec signs and verifies bearer envelopes with HMAC-SHA256.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// EncodeAccess signs the envelope for an access token row.
func (c *Codec) EncodeAccess(t *model.AccessToken) (string, error) {
	return c.encode(t.JTI, t.UserID, t.Realm, t.BusinessCode, t.IssuedAt, t.ExpiresAt, model.TokenAccess)
}

// EncodeRefresh signs the envelope for a refresh token row.
func (c *Codec) EncodeRefresh(t *model.RefreshToken) (string, error) {
	return c.encode(t.JTI, t.UserID, t.Realm, t.BusinessCode, t.IssuedAt, t.ExpiresAt, model.TokenRefresh)
}

func (c *Codec) encode(jti, userID string, realm model.Realm, businessCode *string, issuedAt, expiresAt time.Time, kind model.TokenKind) (string, error) {
	claims := jwt.MapClaims{
		"jti":           jti,
		"user_id":       userID,
		"realm":         string(realm),
		"business_code": businessCode,
		"issued_at":     issuedAt.Unix(),
		"expires_at":    expiresAt.Unix(),
		"type":          string(kind),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and claim shape of a bearer credential
// and returns its payload. Expired envelopes are rejected unless
// allowExpired is set. Every failure mode collapses to the same
// Unauthorized error so callers cannot probe for distinctions.
func (c *Codec) Decode(raw string, allowExpired bool) (*Payload, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, errTokenNotValid()
	}

	p, ok := payloadFromClaims(claims)
	if !ok {
		return nil, errTokenNotValid()
	}
	if !allowExpired && !p.ExpiresAt.After(time.Now().UTC()) {
		return nil, errTokenNotValid()
	}
	return p, nil
}

func errTokenNotValid() error {
	return apperr.New(apperr.KindUnauthorized, "Provided token is not valid or revoked")
}

func payloadFromClaims(claims jwt.MapClaims) (*Payload, bool) {
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return nil, false
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, false
	}
	realm, ok := claims["realm"].(string)
	if !ok || !model.Realm(realm).Valid() {
		return nil, false
	}
	kind, ok := claims["type"].(string)
	if !ok || (kind != string(model.TokenAccess) && kind != string(model.TokenRefresh)) {
		return nil, false
	}
	issuedAt, ok := claimUnix(claims, "issued_at")
	if !ok {
		return nil, false
	}
	expiresAt, ok := claimUnix(claims, "expires_at")
	if !ok {
		return nil, false
	}

	p := &Payload{
		JTI:       jti,
		UserID:    userID,
		Realm:     model.Realm(realm),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Type:      model.TokenKind(kind),
	}
	if bc, ok := claims["business_code"].(string); ok && bc != "" {
		p.BusinessCode = &bc
	}
	return p, true
}

func claimUnix(claims jwt.MapClaims, name string) (time.Time, bool) {
	n, ok := claims[name].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(n), 0).UTC(), true
}
