package httpapi

import (
	"net/http"
	"testing"
)

func TestCreateUserEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedWebOwner(t, "+79005550001", "adminpass1", true)
	admin := env.webLogin(t, "+79005550001", "adminpass1")

	rec := doJSON(t, env.router, http.MethodPost, "/users", admin.AccessToken, map[string]any{
		"phone":         "+7 900 777 66 55",
		"password":      "ownerpass",
		"business_name": "Bakery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created createUserBody
	decodeJSON(t, rec, &created)
	if created.User.Phone != "+79007776655" {
		t.Errorf("user phone = %q", created.User.Phone)
	}
	if created.Business == nil || created.Business.Name != "Bakery" {
		t.Fatalf("business = %+v", created.Business)
	}
	if created.Business.OwnerID != created.User.ID {
		t.Errorf("owner = %q, want %q", created.Business.OwnerID, created.User.ID)
	}

	// The fresh owner can log in on the web surface.
	env.webLogin(t, "+79007776655", "ownerpass")

	// Duplicates are rejected.
	rec = doJSON(t, env.router, http.MethodPost, "/users", admin.AccessToken, map[string]any{
		"phone": "+79007776655",
	})
	wantError(t, rec, http.StatusBadRequest, "User with phone +79007776655 already exists.")

	// Plain client accounts carry no business.
	rec = doJSON(t, env.router, http.MethodPost, "/users", admin.AccessToken, map[string]any{
		"phone": "+79007776656",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plain: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var plain createUserBody
	decodeJSON(t, rec, &plain)
	if plain.Business != nil {
		t.Errorf("plain account got business %+v", plain.Business)
	}

	// Password without a business name is a half-specified owner.
	rec = doJSON(t, env.router, http.MethodPost, "/users", admin.AccessToken, map[string]any{
		"phone":    "+79007776657",
		"password": "ownerpass",
	})
	wantError(t, rec, http.StatusBadRequest, "Business users have passwords but no business name was provided.")
}

func TestRouteGuards(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, "COFFEECLUB")
	env.seedWebOwner(t, "+79005550002", "hunter2secret", false)
	mobile := env.mobileLogin(t, "+79001234567", "COFFEECLUB")
	web := env.webLogin(t, "+79005550002", "hunter2secret")

	tests := []struct {
		name    string
		method  string
		path    string
		bearer  string
		status  int
		message string
	}{
		{"anonymous me", http.MethodGet, "/users/me", "", http.StatusUnauthorized, "Unauthorized"},
		{"garbage bearer", http.MethodGet, "/users/me", "garbage", http.StatusUnauthorized, "Unauthorized"},
		{"anonymous list", http.MethodGet, "/tokens", "", http.StatusUnauthorized, "Unauthorized"},
		{"web token on mobile surface", http.MethodGet, "/clients/me", web.AccessToken, http.StatusForbidden, "Forbidden"},
		{"mobile token on admin surface", http.MethodPost, "/users", mobile.AccessToken, http.StatusForbidden, "Forbidden"},
		{"non-admin on admin surface", http.MethodPost, "/users", web.AccessToken, http.StatusForbidden, "Forbidden"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, env.router, tc.method, tc.path, tc.bearer, nil)
			wantError(t, rec, tc.status, tc.message)
		})
	}
}

func TestClientProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, "COFFEECLUB")
	pair := env.mobileLogin(t, "+79001234567", "COFFEECLUB")

	rec := doJSON(t, env.router, http.MethodPatch, "/clients/me", pair.AccessToken, map[string]any{
		"first_name": "Anna",
		"last_name":  "Karenina",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated clientBody
	decodeJSON(t, rec, &updated)
	if updated.FirstName != "Anna" {
		t.Errorf("first name = %q", updated.FirstName)
	}
	if updated.LastName == nil || *updated.LastName != "Karenina" {
		t.Errorf("last name = %v", updated.LastName)
	}

	// Partial updates leave the other field alone.
	rec = doJSON(t, env.router, http.MethodPatch, "/clients/me", pair.AccessToken, map[string]any{
		"last_name": "Smith",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("partial patch: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var partial clientBody
	decodeJSON(t, rec, &partial)
	if partial.FirstName != "Anna" {
		t.Errorf("first name after partial update = %q", partial.FirstName)
	}
	if partial.LastName == nil || *partial.LastName != "Smith" {
		t.Errorf("last name = %v", partial.LastName)
	}

	// The read surface serves the updated profile.
	rec = doJSON(t, env.router, http.MethodGet, "/clients/me", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clients/me: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var read clientBody
	decodeJSON(t, rec, &read)
	if read.FirstName != "Anna" || read.LastName == nil || *read.LastName != "Smith" {
		t.Errorf("clients/me = %+v", read)
	}
}
