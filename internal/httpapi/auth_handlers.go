package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/service/authservice"
)

type authRequest struct {
	Phone    string      `json:"phone"`
	Realm    model.Realm `json:"realm"`
	Password *string     `json:"password"`
	Business *string     `json:"business"`
}

type webAuthBody struct {
	User     userBody      `json:"user"`
	Business businessBody  `json:"business"`
	Tokens   tokenPairBody `json:"tokens"`
}

// Authorize starts an authorization flow. The web realm performs a
// password login and answers with tokens; the mobile realm sends an
// OTP and answers with an acknowledgment.
func (s *Server) Authorize(w http.ResponseWriter, r *http.Request) {
	var body authRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Realm == "" {
		body.Realm = model.RealmWeb
	}
	if (body.Password == nil || *body.Password == "") && body.Realm == model.RealmWeb {
		writeError(w, r, http.StatusBadRequest, "Authorization in WEB requires password.")
		return
	}
	if (body.Business == nil || *body.Business == "") && body.Realm == model.RealmMobile {
		writeError(w, r, http.StatusBadRequest, "Authorization in mobile app requires business code.")
		return
	}

	switch body.Realm {
	case model.RealmWeb:
		user, business, pair, err := s.Auth.WebLogin(r.Context(), body.Phone, *body.Password, clientIP(r), r.UserAgent())
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, webAuthBody{
			User:     userDTO(user),
			Business: businessDTO(business),
			Tokens:   tokenPairDTO(pair),
		})
	case model.RealmMobile:
		if err := s.Auth.SendOTP(r.Context(), body.Phone, body.Realm, body.Business); err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, successBody{Success: true, Message: "OTP sent successfully."})
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Unknown realm %s.", body.Realm))
	}
}

type confirmRequest struct {
	Phone    string `json:"phone"`
	OTP      string `json:"otp"`
	Business string `json:"business"`
}

type authorizedClientBody struct {
	Client clientBody    `json:"client"`
	Tokens tokenPairBody `json:"tokens"`
}

// ConfirmAuth completes a mobile authorization with the sent OTP.
func (s *Server) ConfirmAuth(w http.ResponseWriter, r *http.Request) {
	var body confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, client, pair, err := s.Auth.ConfirmMobile(r.Context(), authservice.ConfirmParams{
		Phone:        body.Phone,
		Code:         body.OTP,
		BusinessCode: body.Business,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, authorizedClientBody{
		Client: clientDTO(client, user.Phone),
		Tokens: tokenPairDTO(pair),
	})
}
