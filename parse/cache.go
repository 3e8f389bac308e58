package parse

import (
	"text2phenotype.com/psyctx/metrics"
	"text2phenotype.com/psyctx/types"
	"github.com/patrickmn/go-cache"
	"time"
)

// Cache memoizes successful parses of another provider. Failures are not cached.
type Cache struct {
	provider Provider
	parses   *cache.Cache
}

func NewCache(provider Provider, expiration time.Duration) *Cache {
	return &Cache{
		provider: provider,
		parses:   cache.New(expiration, 2*expiration),
	}
}

func (c *Cache) Parse(text string) (*types.Sentence, error) {
	key := Key(text)
	if cached, ok := c.parses.Get(key); ok {
		metrics.ParseCache.WithLabelValues("hit").Inc()
		return cached.(*types.Sentence), nil
	}
	metrics.ParseCache.WithLabelValues("miss").Inc()
	sent, err := c.provider.Parse(text)
	if err != nil {
		return nil, err
	}
	c.parses.Set(key, sent, cache.DefaultExpiration)
	return sent, nil
}

func (c *Cache) Dependencies() bool {
	return HasDependencies(c.provider)
}

func (c *Cache) Len() int {
	return c.parses.ItemCount()
}
