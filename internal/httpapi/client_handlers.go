package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/auth"
)

// CurrentClient returns the caller's membership in the business the
// access token is scoped to.
func (s *Server) CurrentClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident := auth.From(ctx)
	client := ident.Client(ctx)
	if client == nil {
		fail(w, r, apperr.New(apperr.KindInternal, "authorized user has no client record"))
		return
	}
	writeJSON(w, r, http.StatusOK, clientDTO(client, ident.User(ctx).Phone))
}

type clientUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UpdateCurrentClient applies a partial profile update to the caller's
// membership and returns the updated profile.
func (s *Server) UpdateCurrentClient(w http.ResponseWriter, r *http.Request) {
	var body clientUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}

	ctx := r.Context()
	ident := auth.From(ctx)
	user := ident.User(ctx)

	updated, err := s.Auth.UpdateClientProfile(ctx, user.ID, ident.BusinessCode(ctx), body.FirstName, body.LastName)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, clientDTO(updated, user.Phone))
}
