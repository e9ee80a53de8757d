// Package cache implements the content-addressed response cache. Keys are
// the sha256 digest of the lowercased, trimmed question, so key derivation
// is deterministic and case/whitespace-insensitive and never stores raw
// question text. Entries live 24 hours; counters are kept as redis INCR
// keys, which makes the read-modify-write atomic across concurrent
// requests.
//
// The cache is always optional: callers treat any read or write failure as
// a miss and proceed with the full pipeline. There is no consistency
// guarantee between the cache and the indices; the corpus may change
// between a write and a later read.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/docqa/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TTL is how long an entry is considered live, measured from CreatedAt.
const TTL = 24 * time.Hour

const (
	entryPrefix = "docqa:resp:"
	statsPrefix = "docqa:stats:"

	// Accounting estimates per hit, carried over from observed usage:
	// a cached answer saves roughly one generation call.
	defaultTokenEstimate = 500
	costSavedPerHit      = 0.01
)

// Source is one grounding source persisted with an answer.
type Source struct {
	ContentExcerpt string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Score          float64        `json:"score"`
}

// Entry is a complete cached answer. Entries are created once on a
// successful synthesis and never updated in place.
type Entry struct {
	Answer        string    `json:"answer"`
	Confidence    float64   `json:"confidence"`
	Method        string    `json:"method"`
	Sources       []Source  `json:"sources,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	TokenEstimate int       `json:"token_estimate"`
}

// Stats are the monotonically increasing cache counters.
type Stats struct {
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	TokensSaved     int64   `json:"tokens_saved"`
	CostSaved       float64 `json:"cost_saved"`
	HitRatePercent  float64 `json:"hit_rate_percent"`
}

// Config holds the redis connection settings.
type Config struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
}

// DefaultConfig returns a localhost redis configuration.
func DefaultConfig() Config {
	return Config{Addr: "localhost:6379"}
}

// ResponseCache is the redis-backed answer cache.
type ResponseCache struct {
	rdb     *redis.Client
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New connects to redis and returns the cache. Connection failure is an
// error here; callers that want a cache-less pipeline pass a nil cache to
// the engine instead.
func New(cfg Config, collector *metrics.Collector, logger *zap.Logger) (*ResponseCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	logger.Info("response cache initialized", zap.String("addr", cfg.Addr))
	return &ResponseCache{
		rdb:     rdb,
		logger:  logger.With(zap.String("component", "cache")),
		metrics: collector,
	}, nil
}

// Key derives the cache key for a question: sha256 of the lowercased,
// trimmed text.
func Key(question string) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get looks up a cached answer. It returns nil on a miss, on an expired
// entry, and on any redis or decode failure; every non-hit outcome counts
// as a miss. Expired entries are not removed eagerly; the redis TTL evicts
// them lazily.
func (c *ResponseCache) Get(ctx context.Context, question string) *Entry {
	key := entryPrefix + Key(question)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache get failed, treating as miss", zap.Error(err))
		}
		c.recordMiss(ctx)
		return nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", zap.Error(err))
		c.recordMiss(ctx)
		return nil
	}

	if time.Since(entry.CreatedAt) >= TTL {
		c.recordMiss(ctx)
		return nil
	}

	c.recordHit(ctx, &entry)
	return &entry
}

// Put persists a completed answer under the question's key with the TTL.
// Failures are logged and swallowed; the cache is optional.
func (c *ResponseCache) Put(ctx context.Context, question string, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.TokenEstimate == 0 {
		entry.TokenEstimate = defaultTokenEstimate
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache entry marshal failed", zap.Error(err))
		return
	}
	key := entryPrefix + Key(question)
	if err := c.rdb.Set(ctx, key, raw, TTL).Err(); err != nil {
		c.logger.Warn("cache put failed", zap.Error(err))
	}
}

// Stats returns the current counter values.
func (c *ResponseCache) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	vals, err := c.rdb.MGet(ctx,
		statsPrefix+"hits",
		statsPrefix+"misses",
		statsPrefix+"tokens_saved",
		statsPrefix+"cost_saved",
	).Result()
	if err != nil {
		return stats, fmt.Errorf("cache: read stats: %w", err)
	}

	stats.Hits = parseInt(vals[0])
	stats.Misses = parseInt(vals[1])
	stats.TokensSaved = parseInt(vals[2])
	stats.CostSaved = parseFloat(vals[3])

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatePercent = float64(stats.Hits) / float64(total) * 100
	}
	return stats, nil
}

// Clear removes all cached entries and resets the counters in one
// transaction.
func (c *ResponseCache) Clear(ctx context.Context) error {
	keys := make([]string, 0, 64)
	iter := c.rdb.Scan(ctx, 0, entryPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan entries: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx,
		statsPrefix+"hits",
		statsPrefix+"misses",
		statsPrefix+"tokens_saved",
		statsPrefix+"cost_saved",
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}

	c.logger.Info("response cache cleared", zap.Int("entries", len(keys)))
	return nil
}

// Close releases the redis connection.
func (c *ResponseCache) Close() error {
	return c.rdb.Close()
}

func (c *ResponseCache) recordHit(ctx context.Context, entry *Entry) {
	c.metrics.CacheHit()
	tokens := int64(entry.TokenEstimate)
	if tokens <= 0 {
		tokens = defaultTokenEstimate
	}
	pipe := c.rdb.Pipeline()
	pipe.Incr(ctx, statsPrefix+"hits")
	pipe.IncrBy(ctx, statsPrefix+"tokens_saved", tokens)
	pipe.IncrByFloat(ctx, statsPrefix+"cost_saved", costSavedPerHit)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache hit accounting failed", zap.Error(err))
	}
}

func (c *ResponseCache) recordMiss(ctx context.Context) {
	c.metrics.CacheMiss()
	if err := c.rdb.Incr(ctx, statsPrefix+"misses").Err(); err != nil {
		c.logger.Warn("cache miss accounting failed", zap.Error(err))
	}
}

func parseInt(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	fmt.Sscanf(s, "%d", &n)
	return n
}

func parseFloat(v any) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var f float64
	fmt.Sscanf(s, "%g", &f)
	return f
}
