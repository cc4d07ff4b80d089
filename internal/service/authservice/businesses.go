package authservice

import (
	"context"

	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/model"
)

const businessCodeLength = 16

// BusinessByCode resolves a tenant through the cache.
func (s *Service) BusinessByCode(ctx context.Context, code string) (*model.Business, error) {
	return cache.ReadThrough[model.Business](ctx, s.cache, model.BusinessKey(code), nil, func(ctx context.Context) (*model.Business, error) {
		return s.store.BusinessByCode(ctx, code)
	})
}
