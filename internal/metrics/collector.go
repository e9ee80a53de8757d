// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the engine's prometheus metrics. All methods are
// nil-safe so library code can run without metrics wired.
type Collector struct {
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	stageDuration *prometheus.HistogramVec

	generationTokens *prometheus.CounterVec

	agentIterations prometheus.Counter
	toolExecutions  *prometheus.CounterVec

	logger *zap.Logger
}

var (
	defaultCollector *Collector
	defaultOnce      sync.Once
)

// NewCollector registers the engine metrics on the given registerer.
func NewCollector(reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "cache_hits_total",
			Help:      "Number of response cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "cache_misses_total",
			Help:      "Number of response cache misses (including expired entries).",
		}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		generationTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "generation_tokens_total",
			Help:      "Estimated tokens produced by the generation backend.",
		}, []string{"provider"}),
		agentIterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "agent_iterations_total",
			Help:      "Number of agent planning iterations executed.",
		}),
		toolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "tool_executions_total",
			Help:      "Number of tool executions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		logger: logger,
	}
}

// Default returns a process-wide collector registered on the default
// prometheus registry.
func Default(logger *zap.Logger) *Collector {
	defaultOnce.Do(func() {
		defaultCollector = NewCollector(prometheus.DefaultRegisterer, logger)
	})
	return defaultCollector
}

// CacheHit records a response cache hit.
func (c *Collector) CacheHit() {
	if c != nil {
		c.cacheHits.Inc()
	}
}

// CacheMiss records a response cache miss.
func (c *Collector) CacheMiss() {
	if c != nil {
		c.cacheMisses.Inc()
	}
}

// ObserveStage records the duration of one pipeline stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c != nil {
		c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// AddGenerationTokens records tokens produced by a provider.
func (c *Collector) AddGenerationTokens(provider string, tokens int) {
	if c != nil && tokens > 0 {
		c.generationTokens.WithLabelValues(provider).Add(float64(tokens))
	}
}

// AgentIteration records one agent planning iteration.
func (c *Collector) AgentIteration() {
	if c != nil {
		c.agentIterations.Inc()
	}
}

// ToolExecution records one tool execution outcome.
func (c *Collector) ToolExecution(tool string, success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.toolExecutions.WithLabelValues(tool, outcome).Inc()
}
