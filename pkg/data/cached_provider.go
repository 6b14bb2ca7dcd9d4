package data

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/vantrade/gridbot/pkg/types"
)

// memorySeriesCache is an in-memory SeriesCache keyed by source path.
type memorySeriesCache struct {
	mu    sync.RWMutex
	cache map[string][]types.OHLCV
}

func newMemorySeriesCache() *memorySeriesCache {
	return &memorySeriesCache{cache: make(map[string][]types.OHLCV)}
}

func (c *memorySeriesCache) Get(key string) ([]types.OHLCV, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	out := make([]types.OHLCV, len(series))
	copy(out, series)
	return out, true
}

func (c *memorySeriesCache) Set(key string, series []types.OHLCV) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached := make([]types.OHLCV, len(series))
	copy(cached, series)
	c.cache[key] = cached
}

// CachedSeriesSource wraps a SeriesSource so repeated loads of the same
// path (the common case across optimizer candidate evaluations, which all
// replay the same price series) skip re-reading and re-parsing the file.
type CachedSeriesSource struct {
	source SeriesSource
	cache  SeriesCache
}

// NewCachedSeriesSource wraps source with an in-memory cache.
func NewCachedSeriesSource(source SeriesSource) *CachedSeriesSource {
	return &CachedSeriesSource{source: source, cache: newMemorySeriesCache()}
}

// Name reports the wrapped source's name with a cache marker.
func (p *CachedSeriesSource) Name() string {
	return "cached:" + p.source.Name()
}

// Load returns the cached series for source if present, otherwise loads,
// caches, and returns it.
func (p *CachedSeriesSource) Load(source string) ([]types.OHLCV, error) {
	if cached, ok := p.cache.Get(source); ok {
		return cached, nil
	}

	series, err := p.source.Load(source)
	if err != nil {
		log.Printf("data: failed to load %s: %v", filepath.Base(source), err)
		return nil, err
	}

	p.cache.Set(source, series)
	return series, nil
}

// Validate delegates to the wrapped source.
func (p *CachedSeriesSource) Validate(series []types.OHLCV) error {
	return p.source.Validate(series)
}
