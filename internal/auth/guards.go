package auth

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bonusclub/auth-api/internal/model"
)

// Route guards. Each one resolves just enough of the request identity
// to decide and leaves the rest of the chain to the handler.

type deniedBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func deny(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(deniedBody{Message: message}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode denial failed")
	}
}

// RequireLogin admits only requests whose bearer resolves to an alive
// access token owned by an existing user.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := From(r.Context())
		if ident == nil || ident.User(r.Context()) == nil {
			deny(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits only admin users.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := From(r.Context())
		if ident == nil || ident.User(r.Context()) == nil {
			deny(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !ident.User(r.Context()).IsAdmin {
			deny(w, r, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRealm gates a subtree to one realm. A bearer that does not
// decode reads as missing.
func RequireRealm(realm model.Realm) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := From(r.Context())
			if ident == nil || ident.Payload(r.Context()) == nil {
				deny(w, r, http.StatusUnauthorized, "Access token is not provided")
				return
			}
			if ident.Realm(r.Context()) != realm {
				deny(w, r, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBusiness admits only requests carrying a business scope,
// either on the access token or in the X-Business-ID header.
func RequireBusiness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := From(r.Context())
		if ident == nil || ident.BusinessCode(r.Context()) == "" {
			deny(w, r, http.StatusBadRequest, "The business ID is required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
