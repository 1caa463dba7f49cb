package server

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries is the default capacity of the in-memory cache front
const DefaultMemoryEntries = 1024

// LRUCache keeps recently used entries in memory in front of an optional
// persistent cache. With a nil backing cache it is a pure in-memory cache.
type LRUCache struct {
	entries *lru.Cache[string, []ServerIssue]
	backing IssueCache
}

// NewLRUCache creates an in-memory cache of the given capacity.
func NewLRUCache(size int, backing IssueCache) (*LRUCache, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	entries, err := lru.New[string, []ServerIssue](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries, backing: backing}, nil
}

func cacheKey(moduleKey, fileKey string) string {
	return moduleKey + "\x00" + fileKey
}

// Get implements IssueCache.
func (c *LRUCache) Get(ctx context.Context, moduleKey, fileKey string) ([]ServerIssue, bool, error) {
	key := cacheKey(moduleKey, fileKey)
	if issues, ok := c.entries.Get(key); ok {
		return cloneIssues(issues), true, nil
	}
	if c.backing == nil {
		return nil, false, nil
	}

	issues, ok, err := c.backing.Get(ctx, moduleKey, fileKey)
	if err != nil || !ok {
		return nil, false, err
	}
	c.entries.Add(key, cloneIssues(issues))
	return issues, true, nil
}

// Put implements IssueCache.
func (c *LRUCache) Put(ctx context.Context, moduleKey, fileKey string, issues []ServerIssue) error {
	if c.backing != nil {
		if err := c.backing.Put(ctx, moduleKey, fileKey, issues); err != nil {
			return err
		}
	}
	c.entries.Add(cacheKey(moduleKey, fileKey), cloneIssues(issues))
	return nil
}

// Len returns the number of entries held in memory.
func (c *LRUCache) Len() int {
	return c.entries.Len()
}

// Close implements IssueCache.
func (c *LRUCache) Close() error {
	c.entries.Purge()
	if c.backing != nil {
		return c.backing.Close()
	}
	return nil
}

func cloneIssues(issues []ServerIssue) []ServerIssue {
	out := make([]ServerIssue, len(issues))
	copy(out, issues)
	return out
}
