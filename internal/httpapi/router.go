// Package httpapi is the JSON surface of the auth core: the two login
// flows, the token lifecycle endpoints, and the current-user and
// client-profile reads. Handlers stay thin; flow logic lives in the
// services and identity resolution in the auth middleware.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/service/authservice"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	Auth    *authservice.Service
	Tokens  *tokenservice.Service
	Codec   *auth.Codec
	Getters auth.Getters

	// AllowedOrigins configures CORS for the web console. Empty means
	// any origin.
	AllowedOrigins []string
}

// Routes builds the router with the full endpoint surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Business-ID"},
		MaxAge:         300,
	}).Handler)
	r.Use(auth.Middleware(s.Codec, s.Getters))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Public authorization flows, throttled per client address.
	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(RateLimitConfig{WindowSeconds: 60, MaxRequests: 60, Burst: 20}))

		r.Post("/auth", s.Authorize)
		r.Post("/auth/confirm", s.ConfirmAuth)
		r.Post("/tokens/refresh", s.RefreshTokens)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Get("/users/me", s.CurrentUser)
		r.Get("/tokens", s.ListTokens)
		r.Post("/tokens/logout", s.Logout)
		r.Post("/tokens/{jti}/revoke", s.RevokeToken)
		r.Post("/tokens/revoke-all", s.RevokeAll)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRealm(model.RealmWeb))
			r.Use(auth.RequireAdmin)

			r.Post("/users", s.CreateUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRealm(model.RealmMobile))
			r.Use(auth.RequireBusiness)

			r.Get("/clients/me", s.CurrentClient)
			r.Patch("/clients/me", s.UpdateCurrentClient)
		})
	})

	return r
}
