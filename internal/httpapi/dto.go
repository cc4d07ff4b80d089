package httpapi

import (
	"time"

	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
)

// Response projections. Stored rows carry more columns than clients
// need; only these shapes leave the API.

const defaultClientImage = "default-image.png"

type tokenPairBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func tokenPairDTO(p *tokenservice.Pair) tokenPairBody {
	return tokenPairBody{AccessToken: p.AccessJWT, RefreshToken: p.RefreshJWT}
}

type userBody struct {
	ID      string `json:"id"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"is_admin"`
}

func userDTO(u *model.User) userBody {
	return userBody{ID: u.ID, Phone: u.Phone, IsAdmin: u.IsAdmin}
}

type businessBody struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	OwnerID string `json:"owner_id"`
}

func businessDTO(b *model.Business) businessBody {
	return businessBody{Name: b.Name, Code: b.Code, OwnerID: b.OwnerID}
}

type clientBody struct {
	FirstName    string  `json:"first_name"`
	LastName     *string `json:"last_name"`
	BusinessCode string  `json:"business_code"`
	QRCode       string  `json:"qr_code"`
	Bonuses      float64 `json:"bonuses"`
	Phone        string  `json:"phone"`
	IsStaff      bool    `json:"is_staff"`
	Image        string  `json:"image"`
}

// clientDTO renders a membership. The phone lives on the user row, not
// the client row.
func clientDTO(c *model.Client, phone string) clientBody {
	image := defaultClientImage
	if c.Image != nil {
		image = *c.Image
	}
	return clientBody{
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		BusinessCode: c.BusinessCode,
		QRCode:       c.QRCode,
		Bonuses:      c.Bonuses,
		Phone:        phone,
		IsStaff:      c.IsStaff,
		Image:        image,
	}
}

type issuedTokenBody struct {
	JTI          string      `json:"jti"`
	Realm        model.Realm `json:"realm"`
	BusinessCode *string     `json:"business_code"`
	IPAddress    string      `json:"ip_address"`
	UserAgent    string      `json:"user_agent"`
	IssuedAt     time.Time   `json:"issued_at"`
	Revoked      bool        `json:"revoked"`
}

func issuedTokenDTO(t *model.AccessToken) issuedTokenBody {
	return issuedTokenBody{
		JTI:          t.JTI,
		Realm:        t.Realm,
		BusinessCode: t.BusinessCode,
		IPAddress:    t.IPAddress,
		UserAgent:    t.UserAgent,
		IssuedAt:     t.IssuedAt,
		Revoked:      t.Revoked,
	}
}
