package registry

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	ristretto "github.com/dgraph-io/ristretto/v2"
	"github.com/on-the-ground/dynbind/dynamic"
)

// CacheConfig sizes the optional result cache.
type CacheConfig struct {
	NumCounters int64 // default: 10 * MaxCost
	MaxCost     int64 // default: 1 << 16, every result costs 1
	BufferItems int64 // default: 64
}

func NewCacheConfig(numCounters, maxCost, bufferItems int64) CacheConfig {
	if maxCost <= 0 {
		maxCost = 1 << 16
	}
	if numCounters <= 0 {
		numCounters = 10 * maxCost
	}
	if bufferItems <= 0 {
		bufferItems = 64
	}
	return CacheConfig{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	}
}

type cachedResult struct {
	fingerprint string
	value       dynamic.Value
}

// resultCache remembers successful results by registration and arguments.
// Keys are xxhash digests; the full fingerprint is kept to rule out
// collisions.
type resultCache struct {
	cache *ristretto.Cache[uint64, cachedResult]
}

func newResultCache(config CacheConfig) (*resultCache, error) {
	config = NewCacheConfig(config.NumCounters, config.MaxCost, config.BufferItems)
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, cachedResult]{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &resultCache{cache: cache}, nil
}

// fingerprint renders the registration ID and the first arity arguments.
// It reports false when an argument is missing, leaving the error to Invoke.
func fingerprint(entryID string, arity int, args dynamic.Arguments) (string, bool) {
	var sb strings.Builder
	sb.WriteString(entryID)
	for i := 0; i < arity; i++ {
		if args == nil {
			return "", false
		}
		v, ok := args.At(i)
		if !ok {
			return "", false
		}
		fmt.Fprintf(&sb, "\x00%s=%#v", v.Type(), v.Interface())
	}
	return sb.String(), true
}

func (c *resultCache) get(fp string) (dynamic.Value, bool) {
	res, ok := c.cache.Get(xxhash.Sum64String(fp))
	if !ok || res.fingerprint != fp {
		return dynamic.Value{}, false
	}
	return res.value, true
}

func (c *resultCache) set(fp string, v dynamic.Value) {
	c.cache.Set(xxhash.Sum64String(fp), cachedResult{fingerprint: fp, value: v}, 1)
	c.cache.Wait()
}

func (c *resultCache) close() {
	c.cache.Close()
}
