package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/hkjc-advisor/internal/metrics"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// AdviceCache memoizes advice by race record fingerprint. Advice is a pure
// function of the record, so a hit returns exactly what a recomputation would.
type AdviceCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewAdviceCache creates a new advice cache
func NewAdviceCache(ttl time.Duration, maxSize int) *AdviceCache {
	return &AdviceCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Fingerprint returns a stable key for the ranking-relevant content of a record
func Fingerprint(record *models.RaceRecord) (string, error) {
	keyed := *record
	keyed.Analysis = nil

	data, err := json.Marshal(keyed)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint race record: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get retrieves a copy of cached advice, or nil on a miss
func (ac *AdviceCache) Get(key string) *models.BettingAdvice {
	if result, found := ac.cache.Get(key); found {
		if advice, ok := result.(*models.BettingAdvice); ok {
			ac.hitCount.Add(1)
			ac.updateMetrics()
			return cloneAdvice(advice)
		}
	}

	ac.missCount.Add(1)
	ac.updateMetrics()
	return nil
}

// Set stores a copy of advice in cache. When the cache is full and nothing
// has expired the entry is not stored.
func (ac *AdviceCache) Set(key string, advice *models.BettingAdvice) {
	if ac.cache.ItemCount() >= ac.maxSize {
		ac.cache.DeleteExpired()
		if ac.cache.ItemCount() >= ac.maxSize {
			return
		}
	}
	ac.cache.Set(key, cloneAdvice(advice), ac.ttl)
}

// DeleteExpired removes expired entries and refreshes the cache gauges
func (ac *AdviceCache) DeleteExpired() {
	ac.cache.DeleteExpired()
	ac.updateMetrics()
}

// Clear flushes the entire cache
func (ac *AdviceCache) Clear() {
	ac.cache.Flush()
	ac.hitCount.Store(0)
	ac.missCount.Store(0)
	ac.updateMetrics()
}

// Stats returns cache statistics
func (ac *AdviceCache) Stats() (hits, misses uint64, ratio float64) {
	hits = ac.hitCount.Load()
	misses = ac.missCount.Load()
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (ac *AdviceCache) ItemCount() int {
	return ac.cache.ItemCount()
}

// updateMetrics updates Prometheus metrics
func (ac *AdviceCache) updateMetrics() {
	_, _, ratio := ac.Stats()
	metrics.UpdateAdviceCache(ratio, ac.cache.ItemCount())
}

func cloneAdvice(advice *models.BettingAdvice) *models.BettingAdvice {
	clone := *advice
	clone.Rankings = append([]models.RankedEntrant(nil), advice.Rankings...)
	clone.Rationale.Factors = append([]models.RationaleFactor(nil), advice.Rationale.Factors...)
	if advice.Rationale.RunnerUp != nil {
		runnerUp := *advice.Rationale.RunnerUp
		clone.Rationale.RunnerUp = &runnerUp
	}
	return &clone
}
