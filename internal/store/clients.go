package store

import (
	"context"
	"fmt"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

const clientColumns = "user_id, business_code, first_name, last_name, bonuses, image, is_staff, qr_code, deleted, deleted_at, created_at"

func (s *Postgres) CreateClient(ctx context.Context, c *model.Client) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO clients (user_id, business_code, first_name, last_name, bonuses, is_staff, qr_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		c.UserID, c.BusinessCode, c.FirstName, c.LastName, c.Bonuses, c.IsStaff, c.QRCode)
	err := row.Scan(&c.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Newf(apperr.KindBadRequest, "Client already exists.")
	}
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *Postgres) ClientByPair(ctx context.Context, userID, businessCode string) (*model.Client, error) {
	var c model.Client
	row := s.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = $1 AND business_code = $2`,
		userID, businessCode)
	err := scanClient(row, &c)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select client: %w", err)
	}
	return &c, nil
}

// UpdateClientProfile applies a partial profile update and returns the
// fresh row. Nil fields are left untouched.
func (s *Postgres) UpdateClientProfile(ctx context.Context, userID, businessCode string, firstName, lastName *string) (*model.Client, error) {
	var c model.Client
	row := s.pool.QueryRow(ctx,
		`UPDATE clients
		 SET first_name = COALESCE($3, first_name),
		     last_name  = COALESCE($4, last_name)
		 WHERE user_id = $1 AND business_code = $2
		 RETURNING `+clientColumns,
		userID, businessCode, firstName, lastName)
	err := scanClient(row, &c)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return &c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner, c *model.Client) error {
	return row.Scan(&c.UserID, &c.BusinessCode, &c.FirstName, &c.LastName, &c.Bonuses,
		&c.Image, &c.IsStaff, &c.QRCode, &c.Deleted, &c.DeletedAt, &c.CreatedAt)
}
