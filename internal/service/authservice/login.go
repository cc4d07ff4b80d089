package authservice

import (
	"context"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/ident"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
)

// ConfirmParams carries one OTP confirmation attempt.
type ConfirmParams struct {
	Phone        string
	Code         string
	BusinessCode string
	IPAddress    string
	UserAgent    string
}

// ConfirmMobile checks the submitted code against the newest live OTP
// of the (phone, business) pair, burns it, materializes the user and
// client records on first contact, and issues a pair in the realm the
// OTP was requested for.
func (s *Service) ConfirmMobile(ctx context.Context, p ConfirmParams) (*model.User, *model.Client, *tokenservice.Pair, error) {
	phone, ok := ident.NormalizePhone(p.Phone)
	if !ok {
		return nil, nil, nil, apperr.New(apperr.KindBadRequest, "Invalid phone number")
	}
	otp, err := s.store.LiveOTP(ctx, phone, &p.BusinessCode, s.now())
	if err != nil {
		return nil, nil, nil, err
	}
	if otp == nil {
		return nil, nil, nil, apperr.New(apperr.KindBadRequest, "OTP code is expired")
	}
	if otp.Code != p.Code {
		return nil, nil, nil, apperr.New(apperr.KindBadRequest, "Wrong or expired otp code")
	}
	if err := s.store.MarkOTPUsed(ctx, otp.ID); err != nil {
		return nil, nil, nil, err
	}

	user, err := s.getOrCreateUser(ctx, phone)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := s.getOrCreateClient(ctx, user, p.BusinessCode)
	if err != nil {
		return nil, nil, nil, err
	}

	pair, err := s.tokens.Issue(ctx, tokenservice.IssueParams{
		UserID:       user.ID,
		Realm:        otp.Realm,
		BusinessCode: otp.BusinessCode,
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return user, client, pair, nil
}

// WebLogin authenticates a business owner by phone and password and
// issues a web pair. Lookups here hit the store directly so a stale
// cache entry can never decide the outcome.
func (s *Service) WebLogin(ctx context.Context, rawPhone, password, ip, ua string) (*model.User, *model.Business, *tokenservice.Pair, error) {
	phone, ok := ident.NormalizePhone(rawPhone)
	if !ok {
		return nil, nil, nil, apperr.Newf(apperr.KindBadRequest, "Phone number is invalid: %s", rawPhone)
	}
	user, err := s.store.UserByPhone(ctx, phone)
	if err != nil {
		return nil, nil, nil, err
	}
	if user == nil {
		return nil, nil, nil, apperr.Newf(apperr.KindBadRequest, "User with phone %s does not exists.", phone)
	}
	business, err := s.store.BusinessByOwner(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if business == nil {
		return nil, nil, nil, apperr.New(apperr.KindBadRequest, "User has no businesses to manage.")
	}
	if user.PasswordHash == nil {
		return nil, nil, nil, apperr.Newf(apperr.KindInternal, "user %s owns business %s but has no password set", user.ID, business.Code)
	}
	match, err := s.hasher.Compare(ctx, *user.PasswordHash, password)
	if err != nil {
		return nil, nil, nil, err
	}
	if !match {
		return nil, nil, nil, apperr.New(apperr.KindBadRequest, "Wrong password.")
	}

	pair, err := s.tokens.Issue(ctx, tokenservice.IssueParams{
		UserID:    user.ID,
		Realm:     model.RealmWeb,
		IPAddress: ip,
		UserAgent: ua,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return user, business, pair, nil
}
