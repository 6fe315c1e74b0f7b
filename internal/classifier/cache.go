package classifier

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes results of an underlying classifier keyed by the truncated
// text. Unknown results are never stored so a recovering model is retried.
type Cached struct {
	next  Classifier
	cache *lru.Cache[string, Result]
}

func NewCached(next Classifier, size int) (*Cached, error) {
	cache, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("creating classifier cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Classify(ctx context.Context, text string, maxLength int) Result {
	key := Truncate(text, maxLength)
	if res, ok := c.cache.Get(key); ok {
		return res
	}

	res := c.next.Classify(ctx, key, maxLength)
	if res.Label != UnknownLabel {
		c.cache.Add(key, res)
	}
	return res
}

// Len returns the number of cached results.
func (c *Cached) Len() int {
	return c.cache.Len()
}
