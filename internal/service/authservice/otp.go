package authservice

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/ident"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/store"
)

// OTP engine parameters. The cooldown throttles resends; the rolling
// window caps total sends per (phone, business) pair.
const (
	otpCodeLength  = 6
	otpLifetime    = 5 * time.Minute
	otpCooldown    = 30 * time.Second
	otpWindow      = 3 * time.Hour
	otpWindowLimit = 10
)

// SendOTP generates a fresh code for the pair, persists it with rate
// limits applied, and dispatches the SMS in the background. Older live
// codes for the same pair are revoked so only the newest one confirms.
func (s *Service) SendOTP(ctx context.Context, rawPhone string, realm model.Realm, businessCode *string) error {
	phone, ok := ident.NormalizePhone(rawPhone)
	if !ok {
		return apperr.Newf(apperr.KindBadRequest, "Phone number is invalid: %s", rawPhone)
	}
	code, err := ident.RandomNumericCode(otpCodeLength)
	if err != nil {
		return err
	}
	otp, err := s.store.CreateOTP(ctx, store.CreateOTPParams{
		Phone:        phone,
		Realm:        realm,
		BusinessCode: businessCode,
		Code:         code,
		Now:          s.now(),
		Lifetime:     otpLifetime,
		Cooldown:     otpCooldown,
		Window:       otpWindow,
		Limit:        otpWindowLimit,
		RevokeOld:    true,
	})
	if err != nil {
		return err
	}
	s.dispatch(ctx, otp)
	return nil
}

// dispatch hands the code to the SMS gateway without holding up the
// request. The OTP row is already committed, so a delivery failure is
// only logged; the client can retry after the cooldown.
func (s *Service) dispatch(ctx context.Context, otp *model.OTP) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.sms.Send(bg, otp.Phone, otp.Code); err != nil {
			zerolog.Ctx(bg).Error().Err(err).Str("phone", otp.Phone).Msg("sms dispatch failed")
		}
	}()
}
