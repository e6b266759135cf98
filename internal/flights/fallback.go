package flights

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Fallback tries Primary first and uses Secondary when it fails or finds
// nothing.
type Fallback struct {
	Primary   Searcher
	Secondary Searcher
	Logger    *zap.Logger
}

func (f *Fallback) Search(ctx context.Context, q Query) ([]Flight, error) {
	if f.Primary != nil {
		flights, err := f.Primary.Search(ctx, q)
		if err == nil && len(flights) > 0 {
			return flights, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if f.Logger != nil {
			f.Logger.Warn("primary flight search failed, using fallback data",
				zap.String("origin", q.Origin),
				zap.String("destination", q.Destination),
				zap.Error(err),
			)
		}
	}

	if f.Secondary == nil {
		return nil, errors.New("no flight search configured")
	}

	return f.Secondary.Search(ctx, q)
}

// Cached memoizes successful searches per route and date.
type Cached struct {
	next  Searcher
	cache *lru.Cache[string, []Flight]
}

func NewCached(next Searcher, size int) (*Cached, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, []Flight](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Search(ctx context.Context, q Query) ([]Flight, error) {
	key := q.key()
	if flights, ok := c.cache.Get(key); ok {
		return append([]Flight(nil), flights...), nil
	}

	flights, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, append([]Flight(nil), flights...))
	return flights, nil
}
