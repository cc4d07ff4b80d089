package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

const (
	accessColumns  = "jti, user_id, realm, business_code, ip_address, user_agent, issued_at, expires_at, revoked, refresh_token_jti"
	refreshColumns = "jti, user_id, realm, business_code, issued_at, expires_at, revoked, access_token_jti"
)

// insertTokenPair writes a linked pair inside the caller's
// transaction. The refresh row goes in first with a null access link;
// the link is patched once the access row exists, so both sides point
// at each other by commit time.
func insertTokenPair(ctx context.Context, tx pgx.Tx, p TokenPairParams) (*model.AccessToken, *model.RefreshToken, error) {
	refresh := &model.RefreshToken{
		JTI:          uuid.New().String(),
		UserID:       p.UserID,
		Realm:        p.Realm,
		BusinessCode: p.BusinessCode,
		IssuedAt:     p.Now,
		ExpiresAt:    p.Now.Add(model.RefreshTokenLifetime),
	}
	access := &model.AccessToken{
		JTI:             uuid.New().String(),
		UserID:          p.UserID,
		Realm:           p.Realm,
		BusinessCode:    p.BusinessCode,
		IPAddress:       p.IPAddress,
		UserAgent:       p.UserAgent,
		IssuedAt:        p.Now,
		ExpiresAt:       p.Now.Add(model.AccessTokenLifetime),
		RefreshTokenJTI: refresh.JTI,
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (jti, user_id, realm, business_code, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		refresh.JTI, refresh.UserID, string(refresh.Realm), refresh.BusinessCode,
		refresh.IssuedAt, refresh.ExpiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert refresh token: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO access_tokens (jti, user_id, realm, business_code, ip_address, user_agent, issued_at, expires_at, refresh_token_jti)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		access.JTI, access.UserID, string(access.Realm), access.BusinessCode,
		access.IPAddress, access.UserAgent, access.IssuedAt, access.ExpiresAt, access.RefreshTokenJTI)
	if err != nil {
		return nil, nil, fmt.Errorf("insert access token: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE refresh_tokens SET access_token_jti = $1 WHERE jti = $2`,
		access.JTI, refresh.JTI)
	if err != nil {
		return nil, nil, fmt.Errorf("link refresh token: %w", err)
	}
	accessJTI := access.JTI
	refresh.AccessTokenJTI = &accessJTI

	return access, refresh, nil
}

func (s *Postgres) CreateTokenPair(ctx context.Context, p TokenPairParams) (*model.AccessToken, *model.RefreshToken, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin pair tx: %w", err)
	}
	defer tx.Rollback(ctx)

	access, refresh, err := insertTokenPair(ctx, tx, p)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit pair tx: %w", err)
	}
	return access, refresh, nil
}

func (s *Postgres) AccessTokenByJTI(ctx context.Context, jti string, aliveOnly bool, now time.Time) (*model.AccessToken, error) {
	q := `SELECT ` + accessColumns + ` FROM access_tokens WHERE jti = $1`
	args := []any{jti}
	if aliveOnly {
		q += ` AND NOT revoked AND expires_at > $2`
		args = append(args, now)
	}
	var t model.AccessToken
	err := scanAccessToken(s.pool.QueryRow(ctx, q, args...), &t)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select access token: %w", err)
	}
	return &t, nil
}

func (s *Postgres) RefreshTokenByJTI(ctx context.Context, jti string, aliveOnly bool, now time.Time) (*model.RefreshToken, error) {
	q := `SELECT ` + refreshColumns + ` FROM refresh_tokens WHERE jti = $1`
	args := []any{jti}
	if aliveOnly {
		q += ` AND NOT revoked AND expires_at > $2`
		args = append(args, now)
	}
	var t model.RefreshToken
	err := scanRefreshToken(s.pool.QueryRow(ctx, q, args...), &t)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return &t, nil
}

// RotateTokenPair retires a live refresh token and issues a
// replacement pair with the same scope. The revoking UPDATE matches
// only unrevoked, unexpired rows, so concurrent rotations of the same
// token produce exactly one winner; losers get zero rows back.
func (s *Postgres) RotateTokenPair(ctx context.Context, refreshJTI string, p RotateParams) (*Rotation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rotate tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		userID       string
		realm        model.Realm
		businessCode *string
		oldAccessJTI *string
	)
	err = tx.QueryRow(ctx,
		`UPDATE refresh_tokens SET revoked = true
		 WHERE jti = $1 AND NOT revoked AND expires_at > $2
		 RETURNING user_id, realm, business_code, access_token_jti`,
		refreshJTI, p.Now).Scan(&userID, &realm, &businessCode, &oldAccessJTI)
	if noRows(err) {
		return nil, apperr.New(apperr.KindBadRequest, "Provided token is not valid or revoked")
	}
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	rot := &Rotation{OldRefreshJTI: refreshJTI}
	if oldAccessJTI != nil {
		rot.OldAccessJTI = *oldAccessJTI
		_, err = tx.Exec(ctx, `UPDATE access_tokens SET revoked = true WHERE jti = $1`, *oldAccessJTI)
		if err != nil {
			return nil, fmt.Errorf("revoke paired access token: %w", err)
		}
	}

	rot.Access, rot.Refresh, err = insertTokenPair(ctx, tx, TokenPairParams{
		UserID:       userID,
		Realm:        realm,
		BusinessCode: businessCode,
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
		Now:          p.Now,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rotate tx: %w", err)
	}
	return rot, nil
}

// RevokeTokenPair flips both halves of a pair. Idempotent.
func (s *Postgres) RevokeTokenPair(ctx context.Context, accessJTI, refreshJTI string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin revoke tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE access_tokens SET revoked = true WHERE jti = $1`, accessJTI); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE jti = $1`, refreshJTI); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit revoke tx: %w", err)
	}
	return nil
}

// RevokeUserAccessToken revokes one access token owned by userID and
// cascades to its refresh peer. Returns false when no row matched the
// (jti, owner) pair.
func (s *Postgres) RevokeUserAccessToken(ctx context.Context, userID, accessJTI string) (string, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("begin revoke tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var refreshJTI string
	err = tx.QueryRow(ctx,
		`UPDATE access_tokens SET revoked = true
		 WHERE jti = $1 AND user_id = $2
		 RETURNING refresh_token_jti`,
		accessJTI, userID).Scan(&refreshJTI)
	if noRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("revoke access token: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE jti = $1`, refreshJTI); err != nil {
		return "", false, fmt.Errorf("revoke refresh token: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", false, fmt.Errorf("commit revoke tx: %w", err)
	}
	return refreshJTI, true, nil
}

// RevokeAllExceptCurrent revokes every live pair in the caller's
// (user, realm, business) scope except the pair behind currentJTI.
func (s *Postgres) RevokeAllExceptCurrent(ctx context.Context, userID string, realm model.Realm, businessCode *string, currentJTI string, now time.Time) ([]RevokedPair, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin revoke-all tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`UPDATE access_tokens SET revoked = true
		 WHERE user_id = $1 AND realm = $2 AND business_code IS NOT DISTINCT FROM $3
		   AND NOT revoked AND expires_at > $4 AND jti <> $5
		 RETURNING jti, refresh_token_jti`,
		userID, string(realm), businessCode, now, currentJTI)
	if err != nil {
		return nil, fmt.Errorf("revoke access tokens: %w", err)
	}
	var pairs []RevokedPair
	var refreshJTIs []string
	for rows.Next() {
		var p RevokedPair
		if err := rows.Scan(&p.AccessJTI, &p.RefreshJTI); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan revoked pair: %w", err)
		}
		pairs = append(pairs, p)
		refreshJTIs = append(refreshJTIs, p.RefreshJTI)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("revoke access tokens: %w", err)
	}

	if len(refreshJTIs) > 0 {
		_, err = tx.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE jti = ANY($1)`, refreshJTIs)
		if err != nil {
			return nil, fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit revoke-all tx: %w", err)
	}
	return pairs, nil
}

// ListAccessTokens returns a page of the scope's tokens, newest first.
// Revoked and expired tokens are listed too; the scope is the only
// filter.
func (s *Postgres) ListAccessTokens(ctx context.Context, f TokenFilter) ([]*model.AccessToken, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accessColumns+` FROM access_tokens
		 WHERE user_id = $1 AND realm = $2 AND business_code IS NOT DISTINCT FROM $3
		 ORDER BY issued_at DESC
		 LIMIT $4 OFFSET $5`,
		f.UserID, string(f.Realm), f.BusinessCode, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list access tokens: %w", err)
	}
	defer rows.Close()

	var out []*model.AccessToken
	for rows.Next() {
		var t model.AccessToken
		if err := scanAccessToken(rows, &t); err != nil {
			return nil, fmt.Errorf("scan access token: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list access tokens: %w", err)
	}
	return out, nil
}

func (s *Postgres) CountAccessTokens(ctx context.Context, f TokenFilter) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM access_tokens
		 WHERE user_id = $1 AND realm = $2 AND business_code IS NOT DISTINCT FROM $3`,
		f.UserID, string(f.Realm), f.BusinessCode).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count access tokens: %w", err)
	}
	return n, nil
}

func scanAccessToken(row rowScanner, t *model.AccessToken) error {
	return row.Scan(&t.JTI, &t.UserID, &t.Realm, &t.BusinessCode, &t.IPAddress,
		&t.UserAgent, &t.IssuedAt, &t.ExpiresAt, &t.Revoked, &t.RefreshTokenJTI)
}

func scanRefreshToken(row rowScanner, t *model.RefreshToken) error {
	return row.Scan(&t.JTI, &t.UserID, &t.Realm, &t.BusinessCode,
		&t.IssuedAt, &t.ExpiresAt, &t.Revoked, &t.AccessTokenJTI)
}
