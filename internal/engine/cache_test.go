package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

func testRecord(raceID string) *models.RaceRecord {
	return &models.RaceRecord{
		RaceID: raceID,
		Entrants: []models.Entrant{
			{ID: "1", Odds: decimal.NewFromFloat(2.0), Form: []int{1, 2}},
			{ID: "2", Odds: decimal.NewFromFloat(4.0), Form: []int{}},
		},
		Conditions: models.RaceConditions{FieldSize: 2},
	}
}

func testAdvice() *models.BettingAdvice {
	runnerUp := models.FeatureVector{EntrantID: "2", CompositeScore: 0.3}
	return &models.BettingAdvice{
		RaceID:     "R1",
		Selection:  "1",
		Confidence: models.ConfidenceHigh,
		Rationale: models.Rationale{
			Selection: models.FeatureVector{EntrantID: "1", CompositeScore: 0.6},
			RunnerUp:  &runnerUp,
			ScoreGap:  0.3,
			Factors:   []models.RationaleFactor{{Name: "score_gap", Value: 0.3}},
		},
		Rankings: []models.RankedEntrant{
			{Rank: 1, EntrantID: "1", Recommendation: models.BetTypeWin},
			{Rank: 2, EntrantID: "2", Recommendation: models.BetTypePlace},
		},
	}
}

// TestFingerprint tests that fingerprints follow ranking-relevant content only
func TestFingerprint(t *testing.T) {
	base, err := Fingerprint(testRecord("R1"))
	require.NoError(t, err)
	assert.Len(t, base, 64)

	same, err := Fingerprint(testRecord("R1"))
	require.NoError(t, err)
	assert.Equal(t, base, same)

	withAnalysis := testRecord("R1")
	withAnalysis.Analysis = &models.RaceAnalysis{TotalEntrants: 2}
	analysed, err := Fingerprint(withAnalysis)
	require.NoError(t, err)
	assert.Equal(t, base, analysed)

	scratched := testRecord("R1")
	scratched.Entrants[1].Scratched = true
	changed, err := Fingerprint(scratched)
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	other, err := Fingerprint(testRecord("R2"))
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

// TestAdviceCacheGetSet tests cache Get and Set operations
func TestAdviceCacheGetSet(t *testing.T) {
	cache := NewAdviceCache(time.Hour, 100)
	defer cache.Clear()

	assert.Nil(t, cache.Get("missing"))

	advice := testAdvice()
	cache.Set("key", advice)

	retrieved := cache.Get("key")
	require.NotNil(t, retrieved)
	assert.Equal(t, advice, retrieved)

	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 0.5, ratio, 1e-9)
}

// TestAdviceCacheReturnsCopies tests that callers cannot mutate cached advice
func TestAdviceCacheReturnsCopies(t *testing.T) {
	cache := NewAdviceCache(time.Hour, 100)
	defer cache.Clear()

	advice := testAdvice()
	cache.Set("key", advice)
	advice.Rankings[0].EntrantID = "tampered"

	first := cache.Get("key")
	require.NotNil(t, first)
	assert.Equal(t, "1", first.Rankings[0].EntrantID)

	first.Rationale.Factors[0].Value = 99
	first.Rationale.RunnerUp.EntrantID = "tampered"

	second := cache.Get("key")
	require.NotNil(t, second)
	assert.InDelta(t, 0.3, second.Rationale.Factors[0].Value, 1e-9)
	assert.Equal(t, "2", second.Rationale.RunnerUp.EntrantID)
}

// TestAdviceCacheExpiration tests cache TTL expiration
func TestAdviceCacheExpiration(t *testing.T) {
	cache := NewAdviceCache(50*time.Millisecond, 100)
	defer cache.Clear()

	cache.Set("key", testAdvice())
	require.NotNil(t, cache.Get("key"))

	time.Sleep(120 * time.Millisecond)
	assert.Nil(t, cache.Get("key"))

	cache.DeleteExpired()
	assert.Equal(t, 0, cache.ItemCount())
}

// TestAdviceCacheMaxSize tests that a full cache stops accepting entries
func TestAdviceCacheMaxSize(t *testing.T) {
	cache := NewAdviceCache(time.Hour, 2)
	defer cache.Clear()

	cache.Set("a", testAdvice())
	cache.Set("b", testAdvice())
	cache.Set("c", testAdvice())

	assert.Equal(t, 2, cache.ItemCount())
	assert.Nil(t, cache.Get("c"))
}

// TestAdviceCacheClear tests flushing the cache
func TestAdviceCacheClear(t *testing.T) {
	cache := NewAdviceCache(time.Hour, 100)
	cache.Set("key", testAdvice())
	cache.Get("key")

	cache.Clear()

	assert.Equal(t, 0, cache.ItemCount())
	hits, misses, ratio := cache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	assert.Zero(t, ratio)
}
