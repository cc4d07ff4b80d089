package model

import "fmt"

// Cache key derivation. Canonical keys are "{table}:{primary_value}";
// reference keys are "ref:{table}:{attr}:{value}" and their cached
// value is the canonical key, so readers dereference one hop. The
// *Key/*Refs functions build candidate keys for a lookup value; the
// CacheKey/CacheRefs methods build the keys of a loaded entity. No
// other key shapes exist.

// UserKey returns the canonical key candidate for a lookup value.
func UserKey(v string) string { return "users:" + v }

// UserRefs returns the reference key candidates for a lookup value.
// Users are findable by phone.
func UserRefs(v string) []string {
	return []string{"ref:users:phone:" + v}
}

func (u *User) CacheKey() string    { return UserKey(u.ID) }
func (u *User) CacheRefs() []string { return UserRefs(u.Phone) }

// BusinessKey returns the canonical key candidate for a lookup value.
func BusinessKey(v string) string { return "businesses:" + v }

func (b *Business) CacheKey() string    { return BusinessKey(b.Code) }
func (b *Business) CacheRefs() []string { return nil }

// ClientKey returns the canonical key for the composite client
// identity.
func ClientKey(userID, businessCode string) string {
	return fmt.Sprintf("clients:%s:%s", userID, businessCode)
}

func (c *Client) CacheKey() string    { return ClientKey(c.UserID, c.BusinessCode) }
func (c *Client) CacheRefs() []string { return nil }

// AccessTokenKey returns the canonical key candidate for a jti.
func AccessTokenKey(jti string) string { return "access_tokens:" + jti }

func (t *AccessToken) CacheKey() string    { return AccessTokenKey(t.JTI) }
func (t *AccessToken) CacheRefs() []string { return nil }

// RefreshTokenKey returns the canonical key candidate for a jti.
func RefreshTokenKey(jti string) string { return "refresh_tokens:" + jti }

func (t *RefreshToken) CacheKey() string    { return RefreshTokenKey(t.JTI) }
func (t *RefreshToken) CacheRefs() []string { return nil }
