package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bonusclub/auth-api/internal/apperr"
	"github.com/bonusclub/auth-api/internal/model"
)

// Memory is an in-process Store with the same observable semantics as
// Postgres, including the one-winner rotation rule. It backs tests and
// local tooling; all methods hand out copies so callers never alias
// internal state.
type Memory struct {
	mu         sync.Mutex
	users      map[string]*model.User
	phoneIndex map[string]string
	businesses map[string]*model.Business
	ownerIndex map[string]string
	clients    map[string]*model.Client
	otps       map[string]*model.OTP
	access     map[string]*model.AccessToken
	refresh    map[string]*model.RefreshToken
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*model.User),
		phoneIndex: make(map[string]string),
		businesses: make(map[string]*model.Business),
		ownerIndex: make(map[string]string),
		clients:    make(map[string]*model.Client),
		otps:       make(map[string]*model.OTP),
		access:     make(map[string]*model.AccessToken),
		refresh:    make(map[string]*model.RefreshToken),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.phoneIndex[u.Phone]; dup {
		return apperr.Newf(apperr.KindUserExists, "User with phone %s already exists.", u.Phone)
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	m.users[u.ID] = &cp
	m.phoneIndex[u.Phone] = u.ID
	return nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.users[id]), nil
}

func (m *Memory) UserByPhone(_ context.Context, phone string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.phoneIndex[phone]
	if !ok {
		return nil, nil
	}
	return copyUser(m.users[id]), nil
}

func (m *Memory) CreateBusiness(_ context.Context, b *model.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.businesses[b.Code]; dup {
		return apperr.Newf(apperr.KindBadRequest, "User already owns a business.")
	}
	if _, dup := m.ownerIndex[b.OwnerID]; dup {
		return apperr.Newf(apperr.KindBadRequest, "User already owns a business.")
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	cp := *b
	m.businesses[b.Code] = &cp
	m.ownerIndex[b.OwnerID] = b.Code
	return nil
}

func (m *Memory) BusinessByCode(_ context.Context, code string) (*model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyBusiness(m.businesses[code]), nil
}

func (m *Memory) BusinessByOwner(_ context.Context, ownerID string) (*model.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.ownerIndex[ownerID]
	if !ok {
		return nil, nil
	}
	return copyBusiness(m.businesses[code]), nil
}

func clientKey(userID, businessCode string) string {
	return userID + "|" + businessCode
}

func (m *Memory) CreateClient(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := clientKey(c.UserID, c.BusinessCode)
	if _, dup := m.clients[key]; dup {
		return apperr.Newf(apperr.KindBadRequest, "Client already exists.")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	m.clients[key] = &cp
	return nil
}

func (m *Memory) ClientByPair(_ context.Context, userID, businessCode string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyClient(m.clients[clientKey(userID, businessCode)]), nil
}

func (m *Memory) UpdateClientProfile(_ context.Context, userID, businessCode string, firstName, lastName *string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[clientKey(userID, businessCode)]
	if !ok {
		return nil, nil
	}
	if firstName != nil {
		c.FirstName = *firstName
	}
	if lastName != nil {
		c.LastName = lastName
	}
	return copyClient(c), nil
}

func (m *Memory) CreateOTP(_ context.Context, p CreateOTPParams) (*model.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var recent, windowed int
	for _, o := range m.otps {
		if o.Phone != p.Phone || !sameCode(o.BusinessCode, p.BusinessCode) {
			continue
		}
		if !o.SentAt.Before(p.Now.Add(-p.Cooldown)) {
			recent++
		}
		if !o.SentAt.Before(p.Now.Add(-p.Window)) {
			windowed++
		}
	}
	if recent >= 1 || windowed >= p.Limit {
		return nil, apperr.New(apperr.KindSMSCooldown, "Too many SMS")
	}

	// Checks precede mutations: Postgres gets this for free from the
	// transaction rollback.
	if p.BusinessCode != nil {
		if _, ok := m.businesses[*p.BusinessCode]; !ok {
			return nil, apperr.Newf(apperr.KindNotFound, "Business with code %s does not exist", *p.BusinessCode)
		}
	}

	if p.RevokeOld {
		for _, o := range m.otps {
			if o.Phone == p.Phone && sameCode(o.BusinessCode, p.BusinessCode) && !o.Revoked && !o.Used {
				o.Revoked = true
			}
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
	m.otps[otp.ID] = otp
	cp := *otp
	return &cp, nil
}

func (m *Memory) LiveOTP(_ context.Context, phone string, businessCode *string, now time.Time) (*model.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *model.OTP
	for _, o := range m.otps {
		if o.Phone != phone || !sameCode(o.BusinessCode, businessCode) || !o.Live(now) {
			continue
		}
		if latest == nil || o.SentAt.After(latest.SentAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) MarkOTPUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.otps[id]; ok {
		o.Used = true
	}
	return nil
}

func (m *Memory) CreateTokenPair(_ context.Context, p TokenPairParams) (*model.AccessToken, *model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	access, refresh := m.newPairLocked(p)
	return copyAccess(access), copyRefresh(refresh), nil
}

// newPairLocked builds and stores a mutually linked pair. Callers hold
// the lock.
func (m *Memory) newPairLocked(p TokenPairParams) (*model.AccessToken, *model.RefreshToken) {
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
	accessJTI := access.JTI
	refresh.AccessTokenJTI = &accessJTI

	m.access[access.JTI] = access
	m.refresh[refresh.JTI] = refresh
	return access, refresh
}

func (m *Memory) AccessTokenByJTI(_ context.Context, jti string, aliveOnly bool, now time.Time) (*model.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.access[jti]
	if !ok || (aliveOnly && !t.Alive(now)) {
		return nil, nil
	}
	return copyAccess(t), nil
}

func (m *Memory) RefreshTokenByJTI(_ context.Context, jti string, aliveOnly bool, now time.Time) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.refresh[jti]
	if !ok || (aliveOnly && !t.Alive(now)) {
		return nil, nil
	}
	return copyRefresh(t), nil
}

func (m *Memory) RotateTokenPair(_ context.Context, refreshJTI string, p RotateParams) (*Rotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.refresh[refreshJTI]
	if !ok || !old.Alive(p.Now) {
		return nil, apperr.New(apperr.KindBadRequest, "Provided token is not valid or revoked")
	}
	old.Revoked = true

	rot := &Rotation{OldRefreshJTI: refreshJTI}
	if old.AccessTokenJTI != nil {
		rot.OldAccessJTI = *old.AccessTokenJTI
		if a, ok := m.access[*old.AccessTokenJTI]; ok {
			a.Revoked = true
		}
	}

	access, refresh := m.newPairLocked(TokenPairParams{
		UserID:       old.UserID,
		Realm:        old.Realm,
		BusinessCode: old.BusinessCode,
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
		Now:          p.Now,
	})
	rot.Access = copyAccess(access)
	rot.Refresh = copyRefresh(refresh)
	return rot, nil
}

func (m *Memory) RevokeTokenPair(_ context.Context, accessJTI, refreshJTI string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.access[accessJTI]; ok {
		a.Revoked = true
	}
	if r, ok := m.refresh[refreshJTI]; ok {
		r.Revoked = true
	}
	return nil
}

func (m *Memory) RevokeUserAccessToken(_ context.Context, userID, accessJTI string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.access[accessJTI]
	if !ok || a.UserID != userID {
		return "", false, nil
	}
	a.Revoked = true
	if r, ok := m.refresh[a.RefreshTokenJTI]; ok {
		r.Revoked = true
	}
	return a.RefreshTokenJTI, true, nil
}

func (m *Memory) RevokeAllExceptCurrent(_ context.Context, userID string, realm model.Realm, businessCode *string, currentJTI string, now time.Time) ([]RevokedPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pairs []RevokedPair
	for _, a := range m.access {
		if a.UserID != userID || a.Realm != realm || !sameCode(a.BusinessCode, businessCode) {
			continue
		}
		if !a.Alive(now) || a.JTI == currentJTI {
			continue
		}
		a.Revoked = true
		if r, ok := m.refresh[a.RefreshTokenJTI]; ok {
			r.Revoked = true
		}
		pairs = append(pairs, RevokedPair{AccessJTI: a.JTI, RefreshJTI: a.RefreshTokenJTI})
	}
	return pairs, nil
}

func (m *Memory) ListAccessTokens(_ context.Context, f TokenFilter) ([]*model.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var scoped []*model.AccessToken
	for _, a := range m.access {
		if a.UserID == f.UserID && a.Realm == f.Realm && sameCode(a.BusinessCode, f.BusinessCode) {
			scoped = append(scoped, a)
		}
	}
	sort.Slice(scoped, func(i, j int) bool {
		return scoped[i].IssuedAt.After(scoped[j].IssuedAt)
	})

	if f.Offset >= len(scoped) {
		return nil, nil
	}
	scoped = scoped[f.Offset:]
	if f.Limit > 0 && f.Limit < len(scoped) {
		scoped = scoped[:f.Limit]
	}
	out := make([]*model.AccessToken, 0, len(scoped))
	for _, a := range scoped {
		out = append(out, copyAccess(a))
	}
	return out, nil
}

func (m *Memory) CountAccessTokens(_ context.Context, f TokenFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.access {
		if a.UserID == f.UserID && a.Realm == f.Realm && sameCode(a.BusinessCode, f.BusinessCode) {
			n++
		}
	}
	return n, nil
}

// sameCode matches Postgres IS NOT DISTINCT FROM over nullable
// business codes.
func sameCode(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func copyBusiness(b *model.Business) *model.Business {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}

func copyClient(c *model.Client) *model.Client {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func copyAccess(t *model.AccessToken) *model.AccessToken {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func copyRefresh(t *model.RefreshToken) *model.RefreshToken {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
