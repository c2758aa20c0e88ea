package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider memoizes embeddings keyed by task type and text hash.
// Re-uploading an unchanged document or repeating a query skips the
// upstream call entirely.
type CachedProvider struct {
	inner EmbeddingProvider
	cache *gocache.Cache
}

func NewCachedProvider(inner EmbeddingProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(text, taskType string) string {
	sum := sha256.Sum256([]byte(taskType + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := cacheKey(text, taskType)
	if cached, found := p.cache.Get(key); found {
		if values, ok := cached.([]float32); ok {
			return values, nil
		}
	}

	values, err := p.inner.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, values, gocache.DefaultExpiration)
	return values, nil
}
