package httpapi

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, "COFFEECLUB")
	pair := env.mobileLogin(t, "+79001234567", "COFFEECLUB")

	rec := doJSON(t, env.router, http.MethodPost, "/tokens/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rotated tokenPairBody
	decodeJSON(t, rec, &rotated)
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatal("rotated pair incomplete")
	}
	if rotated.AccessToken == pair.AccessToken || rotated.RefreshToken == pair.RefreshToken {
		t.Error("rotation returned the old credentials")
	}

	// The spent pair is dead on both halves.
	rec = doJSON(t, env.router, http.MethodGet, "/users/me", pair.AccessToken, nil)
	wantError(t, rec, http.StatusUnauthorized, "Unauthorized")

	rec = doJSON(t, env.router, http.MethodPost, "/tokens/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	wantError(t, rec, http.StatusBadRequest, "Provided token is not valid or revoked")

	// The fresh pair works.
	rec = doJSON(t, env.router, http.MethodGet, "/users/me", rotated.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("users/me with rotated access: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshRejectsNonRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, "COFFEECLUB")
	pair := env.mobileLogin(t, "+79001234567", "COFFEECLUB")

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-jwt"},
		{"access token", pair.AccessToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, env.router, http.MethodPost, "/tokens/refresh", "", map[string]any{
				"refresh_token": tc.raw,
			})
			wantError(t, rec, http.StatusBadRequest, "Not a token")
		})
	}
}

func TestLogoutCascade(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, "COFFEECLUB")
	pair := env.mobileLogin(t, "+79001234567", "COFFEECLUB")

	rec := doJSON(t, env.router, http.MethodPost, "/tokens/logout", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ack successBody
	decodeJSON(t, rec, &ack)
	if !ack.Success || ack.Message != "Logged out successfully." {
		t.Errorf("ack = %+v", ack)
	}

	// Both halves are dead: reads reject the access token and the
	// refresh half cannot rotate.
	rec = doJSON(t, env.router, http.MethodGet, "/users/me", pair.AccessToken, nil)
	wantError(t, rec, http.StatusUnauthorized, "Unauthorized")

	rec = doJSON(t, env.router, http.MethodPost, "/tokens/refresh", "", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	wantError(t, rec, http.StatusBadRequest, "Provided token is not valid or revoked")

	// The revoked access token no longer authenticates anything,
	// logout included.
	rec = doJSON(t, env.router, http.MethodPost, "/tokens/logout", pair.AccessToken, nil)
	wantError(t, rec, http.StatusUnauthorized, "Unauthorized")
}

func TestRevokeByJTI(t *testing.T) {
	env := newTestEnv(t)
	env.seedWebOwner(t, "+79005550001", "hunter2secret", false)

	first := env.webLogin(t, "+79005550001", "hunter2secret")
	second := env.webLogin(t, "+79005550001", "hunter2secret")

	rec := doJSON(t, env.router, http.MethodGet, "/tokens", second.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var list tokenListBody
	decodeJSON(t, rec, &list)
	if list.Total != 2 || list.OnPage != 2 {
		t.Fatalf("list = %+v", list)
	}

	// Newest first: the second entry is the first login's pair.
	oldJTI := list.Tokens[1].JTI
	rec = doJSON(t, env.router, http.MethodPost, "/tokens/"+oldJTI+"/revoke", second.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ack successBody
	decodeJSON(t, rec, &ack)
	if !ack.Success || ack.Message != "Token revoked successfully." {
		t.Errorf("ack = %+v", ack)
	}

	rec = doJSON(t, env.router, http.MethodGet, "/users/me", first.AccessToken, nil)
	wantError(t, rec, http.StatusUnauthorized, "Unauthorized")

	// The listing keeps the revoked session, flagged.
	rec = doJSON(t, env.router, http.MethodGet, "/tokens", second.AccessToken, nil)
	var after tokenListBody
	decodeJSON(t, rec, &after)
	var revoked bool
	for _, tok := range after.Tokens {
		if tok.JTI == oldJTI {
			revoked = tok.Revoked
		}
	}
	if !revoked {
		t.Error("revoked token not flagged in listing")
	}

	// Bogus jtis and other users' jtis are indistinguishable.
	rec = doJSON(t, env.router, http.MethodPost, "/tokens/not-a-uuid/revoke", second.AccessToken, nil)
	wantError(t, rec, http.StatusBadRequest, "Bad Request")

	rec = doJSON(t, env.router, http.MethodPost, "/tokens/"+uuid.NewString()+"/revoke", second.AccessToken, nil)
	wantError(t, rec, http.StatusBadRequest, "Bad Request")
}

func TestRevokeAllKeepsCurrent(t *testing.T) {
	env := newTestEnv(t)
	env.seedWebOwner(t, "+79005550001", "hunter2secret", false)

	first := env.webLogin(t, "+79005550001", "hunter2secret")
	second := env.webLogin(t, "+79005550001", "hunter2secret")
	current := env.webLogin(t, "+79005550001", "hunter2secret")

	rec := doJSON(t, env.router, http.MethodPost, "/tokens/revoke-all", current.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke-all: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp revokeAllBody
	decodeJSON(t, rec, &resp)
	if !resp.Success || resp.TokensRevoked != 2 {
		t.Errorf("resp = %+v", resp)
	}

	for i, pair := range []tokenPairBody{first, second} {
		rec = doJSON(t, env.router, http.MethodGet, "/users/me", pair.AccessToken, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("pair %d: status = %d, want 401", i, rec.Code)
		}
	}
	rec = doJSON(t, env.router, http.MethodGet, "/users/me", current.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("current pair: status = %d, want 200", rec.Code)
	}
}

func TestListTokensPagination(t *testing.T) {
	env := newTestEnv(t)
	env.seedWebOwner(t, "+79005550001", "hunter2secret", false)

	var latest tokenPairBody
	for i := 0; i < 3; i++ {
		latest = env.webLogin(t, "+79005550001", "hunter2secret")
	}

	rec := doJSON(t, env.router, http.MethodGet, "/tokens?per_page=2", latest.AccessToken, nil)
	var list tokenListBody
	decodeJSON(t, rec, &list)
	if list.Page != 1 || list.PerPage != 2 || list.OnPage != 2 || list.Total != 3 {
		t.Errorf("page 1 = %+v", list)
	}

	rec = doJSON(t, env.router, http.MethodGet, "/tokens?per_page=2&page=2", latest.AccessToken, nil)
	var second tokenListBody
	decodeJSON(t, rec, &second)
	if second.Page != 2 || second.OnPage != 1 || second.Total != 3 {
		t.Errorf("page 2 = %+v", second)
	}

	// Oversized and garbage paging collapses to the defaults.
	rec = doJSON(t, env.router, http.MethodGet, "/tokens?per_page=500&page=0", latest.AccessToken, nil)
	var clamped tokenListBody
	decodeJSON(t, rec, &clamped)
	if clamped.Page != 1 || clamped.PerPage != 20 || clamped.OnPage != 3 {
		t.Errorf("clamped = %+v", clamped)
	}
}
