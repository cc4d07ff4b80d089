package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bonusclub/auth-api/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func testUser() *model.User {
	return &model.User{
		ID:    "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Phone: "+15551234567",
	}
}

func TestStoreEntityWritesCanonicalAndRefs(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	u := testUser()

	c.StoreEntity(ctx, u)

	if !mr.Exists("users:" + u.ID) {
		t.Fatal("canonical key missing")
	}
	refVal, err := mr.Get("ref:users:phone:+15551234567")
	if err != nil {
		t.Fatalf("reference key missing: %v", err)
	}
	if refVal != "users:"+u.ID {
		t.Errorf("reference value = %q, want canonical key %q", refVal, "users:"+u.ID)
	}

	if ttl := mr.TTL("users:" + u.ID); ttl != DefaultTTL {
		t.Errorf("canonical TTL = %v, want %v", ttl, DefaultTTL)
	}
	if ttl := mr.TTL("ref:users:phone:+15551234567"); ttl != DefaultTTL {
		t.Errorf("reference TTL = %v, want %v", ttl, DefaultTTL)
	}
}

func TestFetchByCanonicalAndByReference(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	u := testUser()
	c.StoreEntity(ctx, u)

	if raw := c.Fetch(ctx, model.UserKey(u.ID), model.UserRefs(u.ID)); raw == nil {
		t.Error("lookup by id should hit the canonical key")
	}

	// Lookup by phone: the canonical candidate "users:+1555..." misses,
	// the reference candidate dereferences to the entity.
	raw := c.Fetch(ctx, model.UserKey(u.Phone), model.UserRefs(u.Phone))
	if raw == nil {
		t.Fatal("lookup by phone should hit through the reference key")
	}

	if raw := c.Fetch(ctx, model.UserKey("nope"), model.UserRefs("nope")); raw != nil {
		t.Error("unknown lookup should miss")
	}
}

func TestReadThroughCallsLoaderOncePerMiss(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	u := testUser()

	calls := 0
	load := func(ctx context.Context) (*model.User, error) {
		calls++
		return u, nil
	}

	got, err := ReadThrough(ctx, c, model.UserKey(u.Phone), model.UserRefs(u.Phone), load)
	if err != nil {
		t.Fatalf("ReadThrough: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("got user %q, want %q", got.ID, u.ID)
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1", calls)
	}

	// Warm now, by phone and by id.
	if _, err := ReadThrough(ctx, c, model.UserKey(u.Phone), model.UserRefs(u.Phone), load); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadThrough(ctx, c, model.UserKey(u.ID), model.UserRefs(u.ID), load); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("loader calls after warm reads = %d, want 1", calls)
	}
}

func TestReadThroughMissingEntity(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	got, err := ReadThrough(ctx, c, model.UserKey("x"), model.UserRefs("x"),
		func(ctx context.Context) (*model.User, error) { return nil, nil })
	if err != nil {
		t.Fatalf("ReadThrough: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent entity, got %+v", got)
	}
}

func TestReadThroughLoaderError(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("store down")

	_, err := ReadThrough(ctx, c, model.UserKey("x"), model.UserRefs("x"),
		func(ctx context.Context) (*model.User, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestInvalidateLaws(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	u := testUser()

	// cache(e); invalidate(e); read == loader
	c.StoreEntity(ctx, u)
	c.Invalidate(ctx, u)
	if mr.Exists("users:"+u.ID) || mr.Exists("ref:users:phone:+15551234567") {
		t.Fatal("invalidate left keys behind")
	}
	calls := 0
	_, err := ReadThrough(ctx, c, model.UserKey(u.ID), model.UserRefs(u.ID),
		func(ctx context.Context) (*model.User, error) { calls++; return u, nil })
	if err != nil || calls != 1 {
		t.Fatalf("after invalidate: err=%v loader calls=%d, want 1", err, calls)
	}

	// invalidate(e); cache(e); read == e
	c.Invalidate(ctx, u)
	c.StoreEntity(ctx, u)
	raw := c.Fetch(ctx, model.UserKey(u.ID), nil)
	if raw == nil {
		t.Fatal("entity should be readable after re-store")
	}

	// Invalidate is idempotent.
	c.Invalidate(ctx, u)
	c.Invalidate(ctx, u)
}

func TestDegradedModeFallsBackToLoader(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	u := testUser()
	c.StoreEntity(ctx, u)

	mr.SetError("connection refused")
	defer mr.SetError("")

	calls := 0
	got, err := ReadThrough(ctx, c, model.UserKey(u.ID), model.UserRefs(u.ID),
		func(ctx context.Context) (*model.User, error) { calls++; return u, nil })
	if err != nil {
		t.Fatalf("ReadThrough under cache failure: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("got %+v, want loader entity", got)
	}
	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}
}

func TestTTLExpiryFallsBackToLoader(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	u := testUser()
	c.StoreEntity(ctx, u)

	mr.FastForward(DefaultTTL)

	calls := 0
	_, err := ReadThrough(ctx, c, model.UserKey(u.ID), model.UserRefs(u.ID),
		func(ctx context.Context) (*model.User, error) { calls++; return u, nil })
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("loader calls after TTL expiry = %d, want 1", calls)
	}
}

func TestNoopCache(t *testing.T) {
	c := NewNoop()
	ctx := context.Background()
	u := testUser()

	c.StoreEntity(ctx, u)
	if raw := c.Fetch(ctx, model.UserKey(u.ID), model.UserRefs(u.ID)); raw != nil {
		t.Error("noop cache should never hit")
	}

	calls := 0
	_, err := ReadThrough(ctx, c, model.UserKey(u.ID), model.UserRefs(u.ID),
		func(ctx context.Context) (*model.User, error) { calls++; return u, nil })
	if err != nil || calls != 1 {
		t.Errorf("noop ReadThrough: err=%v calls=%d", err, calls)
	}
}
