package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

const userColumns = "id, phone, password_hash, is_admin, created_at"

func (s *Postgres) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, phone, password_hash, is_admin) VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		u.ID, u.Phone, u.PasswordHash, u.IsAdmin)
	err := row.Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.Newf(apperr.KindUserExists, "User with phone %s already exists.", u.Phone)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.userBy(ctx, "id", id)
}

func (s *Postgres) UserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return s.userBy(ctx, "phone", phone)
}

func (s *Postgres) userBy(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	err := row.Scan(&u.ID, &u.Phone, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user by %s: %w", column, err)
	}
	return &u, nil
}
