package members

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/daimatz/jbridge/pkg/vm"
)

// Key identifies a ClassInfo.
type Key struct {
	Class      *vm.Class
	Visibility Visibility
}

func (k Key) String() string {
	return fmt.Sprintf("%p/%d", k.Class, k.Visibility)
}

// Cache memoizes ClassInfo records. Concurrent requests for the same key
// share one build. A disabled cache builds a fresh record on every request.
type Cache struct {
	enabled bool

	mu      sync.RWMutex
	records map[Key]*ClassInfo
	group   singleflight.Group
	builds  atomic.Int64
}

// NewCache creates a cache. When enabled is false nothing is stored.
func NewCache(enabled bool) *Cache {
	return &Cache{enabled: enabled, records: make(map[Key]*ClassInfo)}
}

func (c *Cache) Enabled() bool { return c.enabled }

// Builds returns how many records have been built through c.
func (c *Cache) Builds() int64 { return c.builds.Load() }

// Len returns the number of stored records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *Cache) lookup(key Key) (*ClassInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.records[key]
	return info, ok
}

// Resolve returns the record for key, calling build when it is missing.
// Failed builds are not stored.
func (c *Cache) Resolve(key Key, build func() (*ClassInfo, error)) (*ClassInfo, error) {
	if !c.enabled {
		c.builds.Add(1)
		return build()
	}
	if info, ok := c.lookup(key); ok {
		return info, nil
	}
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if info, ok := c.lookup(key); ok {
			return info, nil
		}
		c.builds.Add(1)
		info, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.records[key] = info
		c.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClassInfo), nil
}

// Clear drops every stored record.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.records)
}
