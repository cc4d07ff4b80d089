package authservice

import (
	"context"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/ident"
	"github.com/bonusclub/auth-api/internal/model"
)

// UserByID resolves a user through the cache.
func (s *Service) UserByID(ctx context.Context, id string) (*model.User, error) {
	return cache.ReadThrough[model.User](ctx, s.cache, model.UserKey(id), nil, func(ctx context.Context) (*model.User, error) {
		return s.store.UserByID(ctx, id)
	})
}

// UserByPhone resolves a user through the phone reference key; the
// canonical key is only known once the row is loaded.
func (s *Service) UserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return cache.ReadThrough[model.User](ctx, s.cache, "", model.UserRefs(phone), func(ctx context.Context) (*model.User, error) {
		return s.store.UserByPhone(ctx, phone)
	})
}

// getOrCreateUser backs OTP confirmation: the code proved ownership of
// the phone, so an unknown number becomes a fresh account on the spot.
// Losing a concurrent create is fine, the winner's row serves.
func (s *Service) getOrCreateUser(ctx context.Context, phone string) (*model.User, error) {
	user, err := s.store.UserByPhone(ctx, phone)
	if err != nil || user != nil {
		return user, err
	}
	user = &model.User{Phone: phone}
	err = s.store.CreateUser(ctx, user)
	if apperr.IsKind(err, apperr.KindUserExists) {
		return s.store.UserByPhone(ctx, phone)
	}
	if err != nil {
		return nil, err
	}
	s.cache.StoreEntity(ctx, user)
	return user, nil
}

// CreateUserParams describes an operator-provisioned account. A
// password marks a business user and requires BusinessName; plain
// mobile accounts carry neither.
type CreateUserParams struct {
	Phone        string
	Password     *string
	BusinessName *string
	IsAdmin      bool
}

// CreateUser provisions an account, and for business users also the
// owned business with a generated code. The returned business is nil
// for plain accounts.
func (s *Service) CreateUser(ctx context.Context, p CreateUserParams) (*model.User, *model.Business, error) {
	phone, ok := ident.NormalizePhone(p.Phone)
	if !ok {
		return nil, nil, apperr.Newf(apperr.KindBadRequest, "Phone number is invalid: %s", p.Phone)
	}
	existing, err := s.store.UserByPhone(ctx, phone)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, apperr.Newf(apperr.KindUserExists, "User with phone %s already exists.", phone)
	}

	isBusiness := p.Password != nil && *p.Password != ""
	if isBusiness && (p.BusinessName == nil || *p.BusinessName == "") {
		return nil, nil, apperr.New(apperr.KindBadRequest, "Business users have passwords but no business name was provided.")
	}

	user := &model.User{Phone: phone, IsAdmin: p.IsAdmin}
	if isBusiness {
		hash, err := s.hasher.Hash(ctx, *p.Password)
		if err != nil {
			return nil, nil, err
		}
		user.PasswordHash = &hash
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, err
	}
	s.cache.StoreEntity(ctx, user)

	if !isBusiness {
		return user, nil, nil
	}
	code, err := ident.RandomUppercaseCode(businessCodeLength)
	if err != nil {
		return nil, nil, err
	}
	business := &model.Business{Code: code, Name: *p.BusinessName, OwnerID: user.ID}
	if err := s.store.CreateBusiness(ctx, business); err != nil {
		return nil, nil, err
	}
	s.cache.StoreEntity(ctx, business)
	return user, business, nil
}
