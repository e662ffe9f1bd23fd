package judge

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/masmgr/commitrounds/internal/worthiness"
)

// DefaultCacheSize is the number of verdicts kept by WithCache.
const DefaultCacheSize = 256

// Cached remembers verdicts per project, language and accumulated commits.
// Requests with UseCache unset bypass it in both directions.
type Cached struct {
	next  worthiness.Judge
	cache *lru.Cache[string, worthiness.Verdict]
}

// WithCache wraps j with an LRU of size entries.
func WithCache(j worthiness.Judge, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, worthiness.Verdict](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: j, cache: cache}, nil
}

// Evaluate implements worthiness.Judge.
func (c *Cached) Evaluate(ctx context.Context, acc worthiness.Context, opts worthiness.JudgeOptions) (worthiness.Verdict, error) {
	if !opts.UseCache {
		return c.next.Evaluate(ctx, acc, opts)
	}

	key := cacheKey(acc, opts)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.next.Evaluate(ctx, acc, opts)
	if err != nil {
		return worthiness.Verdict{}, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// Len returns the number of cached verdicts.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func cacheKey(acc worthiness.Context, opts worthiness.JudgeOptions) string {
	return opts.ProjectName + "\x00" + opts.Language + "\x00" + strings.Join(acc.Hashes(), ",")
}
