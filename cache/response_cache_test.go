package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *ResponseCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := New(Config{Addr: mr.Addr()}, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return mr, c
}

func TestKey_NormalizesQuestion(t *testing.T) {
	t.Parallel()

	base := Key("what is a goroutine?")
	assert.Equal(t, base, Key("  What is a GOROUTINE?  "))
	assert.NotEqual(t, base, Key("what is a channel?"))
	assert.Len(t, base, 64) // hex-encoded sha256
}

func TestResponseCache_PutGetRoundtrip(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "What is Go?", Entry{
		Answer:        "A programming language.",
		Confidence:    0.9,
		Method:        "streaming_hybrid",
		Sources:       []Source{{ContentExcerpt: "Go is...", Score: 0.8}},
		TokenEstimate: 120,
	})

	entry := c.Get(ctx, "what is go?")
	require.NotNil(t, entry, "normalized question must hit")
	assert.Equal(t, "A programming language.", entry.Answer)
	assert.Equal(t, "streaming_hybrid", entry.Method)
	assert.Len(t, entry.Sources, 1)
	assert.False(t, entry.CreatedAt.IsZero(), "Put must stamp CreatedAt")
}

func TestResponseCache_MissOnUnknownQuestion(t *testing.T) {
	_, c := setupTestCache(t)

	assert.Nil(t, c.Get(context.Background(), "never asked"))

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestResponseCache_ExpiryBoundary(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "fresh", Entry{Answer: "a", CreatedAt: time.Now().Add(-TTL + time.Minute)})
	require.NotNil(t, c.Get(ctx, "fresh"), "entry one minute inside the TTL must hit")

	c.Put(ctx, "stale", Entry{Answer: "a", CreatedAt: time.Now().Add(-TTL - time.Minute)})
	assert.Nil(t, c.Get(ctx, "stale"), "entry past the TTL must miss even if redis still holds it")
}

func TestResponseCache_RedisEviction(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "q", Entry{Answer: "a"})
	require.NotNil(t, c.Get(ctx, "q"))

	mr.FastForward(TTL + time.Minute)
	assert.Nil(t, c.Get(ctx, "q"), "redis TTL must evict the entry")
}

func TestResponseCache_CorruptEntryIsMiss(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(entryPrefix+Key("q"), "not json"))
	assert.Nil(t, c.Get(ctx, "q"))
}

func TestResponseCache_StatsAccounting(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "q", Entry{Answer: "a", TokenEstimate: 300})
	c.Get(ctx, "q")    // hit
	c.Get(ctx, "q")    // hit
	c.Get(ctx, "miss") // miss

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(600), stats.TokensSaved)
	assert.InDelta(t, 0.02, stats.CostSaved, 1e-9)
	assert.InDelta(t, 66.67, stats.HitRatePercent, 0.01)
}

func TestResponseCache_ConcurrentHitsStayAtomic(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "q", Entry{Answer: "a", TokenEstimate: 10})

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			c.Get(ctx, "q")
		}()
	}
	wg.Wait()

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), stats.Hits, "concurrent increments must not lose updates")
	assert.Equal(t, int64(workers*10), stats.TokensSaved)
}

func TestResponseCache_Clear(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	c.Put(ctx, "one", Entry{Answer: "a"})
	c.Put(ctx, "two", Entry{Answer: "b"})
	c.Get(ctx, "one")

	require.NoError(t, c.Clear(ctx))

	assert.Nil(t, c.Get(ctx, "one"))
	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Hits)
	// Only the miss from the Get after Clear remains.
	assert.Equal(t, int64(1), stats.Misses)
}
