package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type cacheValue struct {
	items []Item
	attrs *Attributes
	count int
}

// CachedSource memoizes successful reads of another source for a fixed TTL.
// Failures are never cached so a recovering database is picked up on the next call.
type CachedSource struct {
	src   Source
	cache *ttlcache.Cache[string, cacheValue]
}

// NewCachedSource wraps src. Call Close to stop the expiry goroutine.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	c := &CachedSource{
		src: src,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, cacheValue](ttl),
			ttlcache.WithDisableTouchOnHit[string, cacheValue](),
		),
	}
	go c.cache.Start()
	return c
}

// Close stops the cache
func (c *CachedSource) Close() {
	c.cache.Stop()
}

func (c *CachedSource) All(ctx context.Context) ([]Item, error) {
	v, err := c.load(ctx, "all", func(ctx context.Context) (cacheValue, error) {
		items, err := c.src.All(ctx)
		return cacheValue{items: items}, err
	})
	return cloneItems(v.items), err
}

func (c *CachedSource) ByStyle(ctx context.Context, style string, limit int) ([]Item, error) {
	key := "style:" + style + ":" + strconv.Itoa(limit)
	v, err := c.load(ctx, key, func(ctx context.Context) (cacheValue, error) {
		items, err := c.src.ByStyle(ctx, style, limit)
		return cacheValue{items: items}, err
	})
	return cloneItems(v.items), err
}

func (c *CachedSource) Recommended(ctx context.Context, styles []string, limit int) ([]Item, error) {
	key := "recommended:" + strings.Join(styles, ",") + ":" + strconv.Itoa(limit)
	v, err := c.load(ctx, key, func(ctx context.Context) (cacheValue, error) {
		items, err := c.src.Recommended(ctx, styles, limit)
		return cacheValue{items: items}, err
	})
	return cloneItems(v.items), err
}

func (c *CachedSource) Attributes(ctx context.Context, furnitureID string) (*Attributes, error) {
	v, err := c.load(ctx, "attributes:"+furnitureID, func(ctx context.Context) (cacheValue, error) {
		a, err := c.src.Attributes(ctx, furnitureID)
		return cacheValue{attrs: a}, err
	})
	if err != nil {
		return nil, err
	}
	a := *v.attrs
	return &a, nil
}

func (c *CachedSource) Count(ctx context.Context) (int, error) {
	v, err := c.load(ctx, "count", func(ctx context.Context) (cacheValue, error) {
		n, err := c.src.Count(ctx)
		return cacheValue{count: n}, err
	})
	return v.count, err
}

func (c *CachedSource) load(ctx context.Context, key string, fetch func(context.Context) (cacheValue, error)) (cacheValue, error) {
	var fetchErr error
	loader := ttlcache.LoaderFunc[string, cacheValue](
		func(cache *ttlcache.Cache[string, cacheValue], key string) *ttlcache.Item[string, cacheValue] {
			v, err := fetch(ctx)
			if err != nil {
				fetchErr = err
				return nil
			}
			return cache.Set(key, v, ttlcache.DefaultTTL)
		},
	)

	item := c.cache.Get(key, ttlcache.WithLoader[string, cacheValue](loader))
	if item == nil {
		if fetchErr == nil {
			fetchErr = errors.New("failed to load catalog entry " + key)
		}
		return cacheValue{}, fetchErr
	}
	return item.Value(), nil
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	return append([]Item(nil), items...)
}
