package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokens rotates a refresh token into a fresh pair. The spent
// pair is revoked; a replayed refresh token is rejected.
func (s *Server) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}
	pair, err := s.Tokens.Refresh(r.Context(), body.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tokenPairDTO(pair))
}

// Logout revokes the caller's current pair.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := auth.From(ctx).AccessToken(ctx)
	if err := s.Tokens.RevokePair(ctx, token); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successBody{Success: true, Message: "Logged out successfully."})
}

// RevokeToken revokes one of the caller's access tokens by jti,
// cascading to its refresh peer.
func (s *Server) RevokeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jti := chi.URLParam(r, "jti")
	user := auth.From(ctx).User(ctx)
	if err := s.Tokens.RevokeByJTI(ctx, user.ID, jti); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, successBody{Success: true, Message: "Token revoked successfully."})
}

type revokeAllBody struct {
	Success       bool `json:"success"`
	TokensRevoked int  `json:"tokens_revoked"`
}

// RevokeAll revokes every alive pair in the caller's scope except the
// current one.
func (s *Server) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := auth.From(ctx).AccessToken(ctx)
	n, err := s.Tokens.RevokeAllExceptCurrent(ctx, token.UserID, token.Realm, token.BusinessCode, token.JTI)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, revokeAllBody{Success: true, TokensRevoked: n})
}

type tokenListBody struct {
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
	OnPage  int               `json:"on_page"`
	Total   int               `json:"total"`
	Tokens  []issuedTokenBody `json:"tokens"`
}

// ListTokens returns one page of the sessions issued in the caller's
// scope, newest first, revoked ones included.
func (s *Server) ListTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := auth.From(ctx).AccessToken(ctx)

	page := parsePage(r.URL.Query().Get("page"))
	perPage := parseLimit(r.URL.Query().Get("per_page"), 20, 20)

	tokens, total, err := s.Tokens.ListIssued(ctx, tokenservice.ListParams{
		UserID:       token.UserID,
		Realm:        token.Realm,
		BusinessCode: token.BusinessCode,
		Limit:        perPage,
		Offset:       (page - 1) * perPage,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	resp := tokenListBody{
		Page:    page,
		PerPage: perPage,
		OnPage:  len(tokens),
		Total:   total,
		Tokens:  make([]issuedTokenBody, 0, len(tokens)),
	}
	for _, t := range tokens {
		resp.Tokens = append(resp.Tokens, issuedTokenDTO(t))
	}
	writeJSON(w, r, http.StatusOK, resp)
}
