package compose

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/heftdb/heft/catalog"
)

// The compound relation cache is the only shared mutable state in the
// compiler. Entries are computed idempotently: two concurrent compilations of
// the same join definition produce structurally equal values, so the insert
// races harmlessly and the first stored value wins.

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

var cache = struct {
	mu     sync.RWMutex
	m      map[string]*CompoundRelation
	hits   int64
	misses int64
}{m: make(map[string]*CompoundRelation)}

// cacheKey hashes the origin identity together with the normalized join
// definition. Map keys marshal in sorted order, so lexically different but
// equivalent definitions collide as intended.
func cacheKey(origin *catalog.Relation, def map[string]JoinDef) (string, error) {
	normalized, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("failed to normalize join definition: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(origin.Ident()))
	h.Write([]byte{0})
	h.Write(normalized)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func cacheGet(key string) *CompoundRelation {
	cache.mu.RLock()
	c := cache.m[key]
	cache.mu.RUnlock()

	cache.mu.Lock()
	if c != nil {
		cache.hits++
	} else {
		cache.misses++
	}
	cache.mu.Unlock()
	return c
}

// cachePut stores the compound relation unless another compilation got there
// first, in which case the existing equal value is returned.
func cachePut(key string, c *CompoundRelation) *CompoundRelation {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if existing, ok := cache.m[key]; ok {
		return existing
	}
	cache.m[key] = c
	return c
}

// CacheStats returns hit/miss counters and the current entry count.
func CacheStats() Stats {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return Stats{Hits: cache.hits, Misses: cache.misses, Size: len(cache.m)}
}

// ResetCache drops every cached compound relation. Call it whenever the
// catalog is reloaded: cached join shapes refer to relations from the old
// catalog and must be invalidated as a unit.
func ResetCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.m = make(map[string]*CompoundRelation)
	cache.hits = 0
	cache.misses = 0
}
