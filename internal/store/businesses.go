package store

import (
	"context"
	"fmt"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

const businessColumns = "code, name, image, owner_id, created_at"

func (s *Postgres) CreateBusiness(ctx context.Context, b *model.Business) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO businesses (code, name, image, owner_id) VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		b.Code, b.Name, b.Image, b.OwnerID)
	err := row.Scan(&b.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Newf(apperr.KindBadRequest, "User already owns a business.")
	}
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

func (s *Postgres) BusinessByCode(ctx context.Context, code string) (*model.Business, error) {
	return s.businessBy(ctx, "code", code)
}

func (s *Postgres) BusinessByOwner(ctx context.Context, ownerID string) (*model.Business, error) {
	return s.businessBy(ctx, "owner_id", ownerID)
}

func (s *Postgres) businessBy(ctx context.Context, column, value string) (*model.Business, error) {
	var b model.Business
	row := s.pool.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE `+column+` = $1`, value)
	err := row.Scan(&b.Code, &b.Name, &b.Image, &b.OwnerID, &b.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select business by %s: %w", column, err)
	}
	return &b, nil
}
