package services

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/repo"
)

// CategoryCache memoizes category id → name lookups for search results.
// Categories are reference data, so entries only leave the cache through
// eviction.
type CategoryCache struct {
	DB    *gorm.DB
	cache *lru.Cache
}

// NewCategoryCache returns a cache holding up to size names.
func NewCategoryCache(db *gorm.DB, size int) (*CategoryCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CategoryCache{DB: db, cache: c}, nil
}

// Names resolves ids to names, querying the store once for every id that is
// not cached. Unknown ids are absent from the result.
func (c *CategoryCache) Names(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	var missing []uint
	for _, id := range ids {
		if v, ok := c.cache.Get(id); ok {
			out[id] = v.(string)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	names, err := repo.CategoryNames(ctx, c.DB, missing)
	if err != nil {
		return nil, err
	}
	for id, name := range names {
		c.cache.Add(id, name)
		out[id] = name
	}
	return out, nil
}

// Len reports cached entries.
func (c *CategoryCache) Len() int { return c.cache.Len() }
