package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

const otpColumns = "id, phone, business_code, realm, code, sent_at, expires_at, used, revoked"

// CreateOTP runs the whole send flow in one transaction: cooldown
// check, window check, revocation of older live codes, business
// existence check, insert. Rate limits count store rows for the
// (phone, business_code) tuple, never the cache.
func (s *Postgres) CreateOTP(ctx context.Context, p CreateOTPParams) (*model.OTP, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin otp tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var recent int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM otps
		 WHERE phone = $1 AND business_code IS NOT DISTINCT FROM $2 AND sent_at >= $3`,
		p.Phone, p.BusinessCode, p.Now.Add(-p.Cooldown)).Scan(&recent)
	if err != nil {
		return nil, fmt.Errorf("count otps in cooldown: %w", err)
	}
	if recent >= 1 {
		return nil, apperr.New(apperr.KindSMSCooldown, "Too many SMS")
	}

	var windowed int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM otps
		 WHERE phone = $1 AND business_code IS NOT DISTINCT FROM $2 AND sent_at >= $3`,
		p.Phone, p.BusinessCode, p.Now.Add(-p.Window)).Scan(&windowed)
	if err != nil {
		return nil, fmt.Errorf("count otps in window: %w", err)
	}
	if windowed >= p.Limit {
		return nil, apperr.New(apperr.KindSMSCooldown, "Too many SMS")
	}

	if p.RevokeOld {
		_, err = tx.Exec(ctx,
			`UPDATE otps SET revoked = true
			 WHERE phone = $1 AND business_code IS NOT DISTINCT FROM $2
			   AND NOT revoked AND NOT used`,
			p.Phone, p.BusinessCode)
		if err != nil {
			return nil, fmt.Errorf("revoke old otps: %w", err)
		}
	}

	if p.BusinessCode != nil {
		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM businesses WHERE code = $1)`, *p.BusinessCode).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check business: %w", err)
		}
		if !exists {
			return nil, apperr.Newf(apperr.KindNotFound, "Business with code %s does not exist", *p.BusinessCode)
		}
	}

	otp := &model.OTP{
		ID:           uuid.New().String(),
		Phone:        p.Phone,
		BusinessCode: p.BusinessCode,
		Realm:        p.Realm,
		Code:         p.Code,
		SentAt:       p.Now,
		ExpiresAt:    p.Now.Add(p.Lifetime),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO otps (id, phone, business_code, realm, code, sent_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		otp.ID, otp.Phone, otp.BusinessCode, string(otp.Realm), otp.Code, otp.SentAt, otp.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert otp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit otp tx: %w", err)
	}
	return otp, nil
}

// LiveOTP returns the one unused, unrevoked, unexpired code for the
// (phone, business_code) tuple, or nil.
func (s *Postgres) LiveOTP(ctx context.Context, phone string, businessCode *string, now time.Time) (*model.OTP, error) {
	var o model.OTP
	row := s.pool.QueryRow(ctx,
		`SELECT `+otpColumns+` FROM otps
		 WHERE phone = $1 AND business_code IS NOT DISTINCT FROM $2
		   AND NOT revoked AND NOT used AND expires_at > $3
		 ORDER BY sent_at DESC
		 LIMIT 1`,
		phone, businessCode, now)
	err := row.Scan(&o.ID, &o.Phone, &o.BusinessCode, &o.Realm, &o.Code,
		&o.SentAt, &o.ExpiresAt, &o.Used, &o.Revoked)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select live otp: %w", err)
	}
	return &o, nil
}

// MarkOTPUsed flips the used flag. Idempotent.
func (s *Postgres) MarkOTPUsed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE otps SET used = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark otp used: %w", err)
	}
	return nil
}
