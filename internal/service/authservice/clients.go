package authservice

import (
	"context"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/ident"
	"github.com/bonusclub/auth-api/internal/model"
)

const qrCodeLength = 16

// ClientByPair resolves a membership through the cache.
func (s *Service) ClientByPair(ctx context.Context, userID, businessCode string) (*model.Client, error) {
	return cache.ReadThrough[model.Client](ctx, s.cache, model.ClientKey(userID, businessCode), nil, func(ctx context.Context) (*model.Client, error) {
		return s.store.ClientByPair(ctx, userID, businessCode)
	})
}

// getOrCreateClient materializes the membership on first mobile login.
// New members start with a placeholder name and a fresh QR code.
func (s *Service) getOrCreateClient(ctx context.Context, user *model.User, businessCode string) (*model.Client, error) {
	client, err := s.store.ClientByPair(ctx, user.ID, businessCode)
	if err != nil || client != nil {
		return client, err
	}
	qr, err := ident.RandomNumericCode(qrCodeLength)
	if err != nil {
		return nil, err
	}
	client = &model.Client{
		UserID:       user.ID,
		BusinessCode: businessCode,
		FirstName:    "User " + user.ID,
		QRCode:       qr,
	}
	err = s.store.CreateClient(ctx, client)
	if apperr.IsKind(err, apperr.KindBadRequest) {
		// lost a concurrent create, use the winner's row
		return s.store.ClientByPair(ctx, user.ID, businessCode)
	}
	if err != nil {
		return nil, err
	}
	s.cache.StoreEntity(ctx, client)
	return client, nil
}

// UpdateClientProfile applies a partial profile update and refreshes
// the cached entry.
func (s *Service) UpdateClientProfile(ctx context.Context, userID, businessCode string, firstName, lastName *string) (*model.Client, error) {
	client, err := s.store.UpdateClientProfile(ctx, userID, businessCode, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, apperr.New(apperr.KindNotFound, "Client not found.")
	}
	s.cache.StoreEntity(ctx, client)
	return client, nil
}
