package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/service/authservice"
)

// CurrentUser returns the authenticated account.
func (s *Server) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.From(ctx).User(ctx)
	writeJSON(w, r, http.StatusOK, userDTO(user))
}

type createUserRequest struct {
	Phone        string  `json:"phone"`
	Password     *string `json:"password"`
	BusinessName *string `json:"business_name"`
	IsAdmin      bool    `json:"is_admin"`
}

type createUserBody struct {
	User     userBody      `json:"user"`
	Business *businessBody `json:"business,omitempty"`
}

// CreateUser provisions an account; with a password and business name
// it also creates the owned business.
func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, business, err := s.Auth.CreateUser(r.Context(), authservice.CreateUserParams{
		Phone:        body.Phone,
		Password:     body.Password,
		BusinessName: body.BusinessName,
		IsAdmin:      body.IsAdmin,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	resp := createUserBody{User: userDTO(user)}
	if business != nil {
		b := businessDTO(business)
		resp.Business = &b
	}
	writeJSON(w, r, http.StatusCreated, resp)
}
