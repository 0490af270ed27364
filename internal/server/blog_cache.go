package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Bhardin04/brianhardin.info/internal/database"
	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

const blogCacheTTL = 5 * time.Minute

// blogCache fronts the blog repository with a short TTL cache. Concurrent
// misses for the same key collapse into one database query.
type blogCache struct {
	store blogStore
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]blogCacheEntry
}

type blogCacheEntry struct {
	value    any
	cachedAt time.Time
}

func newBlogCache(store blogStore) *blogCache {
	return &blogCache{
		store:   store,
		entries: make(map[string]blogCacheEntry),
	}
}

func (b *blogCache) ListPublished(ctx context.Context) ([]database.BlogPost, error) {
	v, err := b.get(ctx, "list", func(ctx context.Context) (any, error) {
		return b.store.ListPublished(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]database.BlogPost), nil
}

func (b *blogCache) GetBySlug(ctx context.Context, slug string) (*database.BlogPost, error) {
	v, err := b.get(ctx, "post:"+slug, func(ctx context.Context) (any, error) {
		return b.store.GetBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return v.(*database.BlogPost), nil
}

// Invalidate drops every cached entry. Called after admin edits.
func (b *blogCache) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]blogCacheEntry)
}

func (b *blogCache) get(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error) {
	b.mu.Lock()
	entry, ok := b.entries[key]
	b.mu.Unlock()
	if ok && time.Since(entry.cachedAt) < blogCacheTTL {
		metrics.BlogCacheHits.WithLabelValues("hit").Inc()
		return entry.value, nil
	}
	metrics.BlogCacheHits.WithLabelValues("miss").Inc()

	v, err, _ := b.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.entries[key] = blogCacheEntry{value: value, cachedAt: time.Now()}
		b.mu.Unlock()
		return value, nil
	})
	return v, err
}
