package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bonusclub/auth-api/internal/auth"
	"github.com/bonusclub/auth-api/internal/cache"
	"github.com/bonusclub/auth-api/internal/model"
	"github.com/bonusclub/auth-api/internal/service/authservice"
	"github.com/bonusclub/auth-api/internal/service/tokenservice"
	"github.com/bonusclub/auth-api/internal/store"
)

// testEnv wires the full stack against the in-memory store and a
// miniredis cache, mirroring the composition root in cmd/server.
type testEnv struct {
	router http.Handler
	store  *store.Memory
	auth   *authservice.Service
	tokens *tokenservice.Service
}

// quietSender drops codes; tests read them back from the store.
type quietSender struct{}

func (quietSender) Send(ctx context.Context, phone, code string) error { return nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	c := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	st := store.NewMemory()
	codec := auth.NewCodec("httpapi-test-secret")

	tokens := tokenservice.New(tokenservice.Deps{Store: st, Cache: c, Codec: codec})
	authSvc := authservice.New(authservice.Deps{
		Store:  st,
		Cache:  c,
		SMS:    quietSender{},
		Tokens: tokens,
	})

	srv := &Server{
		Auth:   authSvc,
		Tokens: tokens,
		Codec:  codec,
		Getters: auth.Getters{
			AccessToken: func(ctx context.Context, jti string) (*model.AccessToken, error) {
				return tokens.AccessByJTI(ctx, jti, true)
			},
			User:     authSvc.UserByID,
			Business: authSvc.BusinessByCode,
			Client:   authSvc.ClientByPair,
		},
	}
	return &testEnv{router: srv.Routes(), store: st, auth: authSvc, tokens: tokens}
}

// doJSON performs one request against the router. bearer may be empty.
func doJSON(t *testing.T, router http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// decodeJSON unmarshals a response body or fails the test.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// wantError asserts the failure envelope with the given status and
// message.
func wantError(t *testing.T, rec *httptest.ResponseRecorder, code int, message string) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, code, rec.Body.String())
	}
	var body errorBody
	decodeJSON(t, rec, &body)
	if body.Success {
		t.Error("success = true, want false")
	}
	if body.Message != message {
		t.Errorf("message = %q, want %q", body.Message, message)
	}
}

// seedBusiness creates a tenant with a password-less owner, the state
// mobile logins expect to exist already.
func (e *testEnv) seedBusiness(t *testing.T, code string) *model.Business {
	t.Helper()
	ctx := context.Background()
	owner := &model.User{Phone: "+79990000001"}
	if err := e.store.CreateUser(ctx, owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	b := &model.Business{Code: code, Name: "Coffee Shop", OwnerID: owner.ID}
	if err := e.store.CreateBusiness(ctx, b); err != nil {
		t.Fatalf("seed business: %v", err)
	}
	return b
}

// seedWebOwner provisions a password account owning a fresh business.
func (e *testEnv) seedWebOwner(t *testing.T, phone, password string, admin bool) (*model.User, *model.Business) {
	t.Helper()
	name := "Coffee Shop"
	u, b, err := e.auth.CreateUser(context.Background(), authservice.CreateUserParams{
		Phone:        phone,
		Password:     &password,
		BusinessName: &name,
		IsAdmin:      admin,
	})
	if err != nil {
		t.Fatalf("seed web owner: %v", err)
	}
	return u, b
}

// liveOTPCode reads the code the client would have received by SMS.
func (e *testEnv) liveOTPCode(t *testing.T, phone, business string) string {
	t.Helper()
	otp, err := e.store.LiveOTP(context.Background(), phone, &business, time.Now().UTC())
	if err != nil {
		t.Fatalf("read live otp: %v", err)
	}
	if otp == nil {
		t.Fatalf("no live otp for %s in %s", phone, business)
	}
	return otp.Code
}

// mobileLogin walks send plus confirm and returns the issued pair.
func (e *testEnv) mobileLogin(t *testing.T, phone, business string) tokenPairBody {
	t.Helper()
	rec := doJSON(t, e.router, http.MethodPost, "/auth", "", map[string]any{
		"phone": phone, "realm": "mobile", "business": business,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("send otp: status = %d, body %s", rec.Code, rec.Body.String())
	}
	code := e.liveOTPCode(t, phone, business)
	rec = doJSON(t, e.router, http.MethodPost, "/auth/confirm", "", map[string]any{
		"phone": phone, "otp": code, "business": business,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm otp: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp authorizedClientBody
	decodeJSON(t, rec, &resp)
	return resp.Tokens
}

// webLogin performs a password login and returns the issued pair.
func (e *testEnv) webLogin(t *testing.T, phone, password string) tokenPairBody {
	t.Helper()
	rec := doJSON(t, e.router, http.MethodPost, "/auth", "", map[string]any{
		"phone": phone, "realm": "web", "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("web login: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp webAuthBody
	decodeJSON(t, rec, &resp)
	return resp.Tokens
}
