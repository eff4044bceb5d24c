package huffpack

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// modelCache holds rebuilt models keyed by their header. A nil cache is
// valid and never hits.
type modelCache struct {
	models *lru.Cache[string, *Model]
}

func newModelCache(size int) *modelCache {
	if size <= 0 {
		return nil
	}
	models, err := lru.New[string, *Model](size)
	if err != nil {
		return nil
	}
	return &modelCache{models: models}
}

func (c *modelCache) get(key string) (*Model, bool) {
	if c == nil {
		return nil, false
	}
	return c.models.Get(key)
}

func (c *modelCache) add(key string, m *Model) {
	if c == nil {
		return
	}
	c.models.Add(key, m)
}

func (c *modelCache) len() int {
	if c == nil {
		return 0
	}
	return c.models.Len()
}
