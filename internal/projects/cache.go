package projects

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/netsblox/cloud/internal/api"
)

// DefaultCacheCapacity is the default bound of the metadata cache.
const DefaultCacheCapacity = 500

// MetadataCache is a bounded LRU of project metadata keyed by project id.
// It only ever serves reads that tolerate staleness; the store stays
// authoritative. Every write path that produces updated metadata must
// Put the result here.
type MetadataCache struct {
	lru *lru.Cache[api.ProjectID, api.ProjectMetadata]
}

// NewMetadataCache returns a cache bounded to capacity entries.
func NewMetadataCache(capacity int) *MetadataCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	// Only fails for non-positive sizes, which are normalized above.
	cache, err := lru.New[api.ProjectID, api.ProjectMetadata](capacity)
	if err != nil {
		panic(err)
	}
	return &MetadataCache{lru: cache}
}

func (c *MetadataCache) Get(id api.ProjectID) (api.ProjectMetadata, bool) {
	return c.lru.Get(id)
}

func (c *MetadataCache) Put(md api.ProjectMetadata) {
	c.lru.Add(md.ID, md)
}

func (c *MetadataCache) Remove(id api.ProjectID) {
	c.lru.Remove(id)
}
