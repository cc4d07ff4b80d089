package cache

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// ReadThrough resolves a lookup through the cache. canonical and refs
// are the key candidates derived from the lookup value; on a full miss
// the loader is invoked exactly once and a non-nil result is cached
// under the loaded entity's own keys. A nil, nil return means the
// entity does not exist.
func ReadThrough[T any, PT interface {
	Entity
	*T
}](ctx context.Context, c *Cache, canonical string, refs []string, load func(context.Context) (PT, error)) (PT, error) {
	if raw := c.Fetch(ctx, canonical, refs); raw != nil {
		e := PT(new(T))
		if err := json.Unmarshal(raw, e); err == nil {
			return e, nil
		}
		zerolog.Ctx(ctx).Warn().Str("key", canonical).Msg("cache blob corrupt, reloading")
		c.InvalidateKeys(ctx, canonical)
	}

	e, err := load(ctx)
	if err != nil || e == nil {
		return nil, err
	}
	c.StoreEntity(ctx, e)
	return e, nil
}
