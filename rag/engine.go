// Package rag drives a question through the retrieval-and-answer pipeline
// and emits a uniform event stream: cache check, optional query expansion,
// hybrid search per variant, fusion, optional reranking, grounded streaming
// synthesis, and a cache write on completion.
package rag

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/BaSui01/docqa/cache"
	"github.com/BaSui01/docqa/internal/metrics"
	"github.com/BaSui01/docqa/llm"
	"github.com/BaSui01/docqa/llm/tokenizer"
	"github.com/BaSui01/docqa/retrieval"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NoRelevantDocuments is the terminal answer when retrieval yields nothing.
// A zero-result query is an answer, not an error.
const NoRelevantDocuments = "I could not find any relevant documents to answer your question."

// cacheReplayChunkSize slices a cached answer into fixed-size chunk events
// so cache hits keep the streaming shape of a live generation.
const cacheReplayChunkSize = 10

// AskOptions configure one request.
type AskOptions struct {
	// RequestK is the number of chunks grounding the answer.
	RequestK int
	// VectorWeight balances vector vs keyword scores in fusion; keyword
	// weight is 1 - VectorWeight.
	VectorWeight float64
	// UseHybrid adds keyword (BM25) search next to vector search.
	UseHybrid bool
	// UseRerank applies the reranker when the fused shortlist exceeds
	// RequestK.
	UseRerank bool
	// UseExpansion widens recall with generated query paraphrases.
	UseExpansion bool
	// MetadataFilter drops chunks not matching every key/value pair.
	MetadataFilter map[string]any
}

// DefaultAskOptions returns the standard pipeline settings.
func DefaultAskOptions() AskOptions {
	return AskOptions{
		RequestK:     5,
		VectorWeight: 0.7,
		UseHybrid:    true,
		UseRerank:    true,
	}
}

// EngineDeps are the collaborators an Engine is built from. The engine is
// immutable after construction and safe for concurrent requests; per-request
// state lives entirely on the stack of each Ask call.
type EngineDeps struct {
	Vector   retrieval.VectorSearcher
	Keyword  *retrieval.KeywordIndex
	Expander *retrieval.Expander
	Reranker *retrieval.Reranker
	Cache    *cache.ResponseCache
	Provider llm.Provider
	Tokens   *tokenizer.Counter
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// Engine is the top-level pipeline driver.
type Engine struct {
	vector   retrieval.VectorSearcher
	keyword  *retrieval.KeywordIndex
	expander *retrieval.Expander
	reranker *retrieval.Reranker
	cache    *cache.ResponseCache
	provider llm.Provider
	tokens   *tokenizer.Counter
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewEngine validates the dependencies and builds an engine. A missing
// vector index or generation provider is a configuration error, surfaced
// immediately and not retried.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Vector == nil {
		return nil, errors.New("rag: vector searcher is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("rag: generation provider is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reranker := deps.Reranker
	if reranker == nil {
		reranker = retrieval.NewReranker(nil, logger)
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = tokenizer.NewCounter("")
	}
	return &Engine{
		vector:   deps.Vector,
		keyword:  deps.Keyword,
		expander: deps.Expander,
		reranker: reranker,
		cache:    deps.Cache,
		provider: deps.Provider,
		tokens:   tokens,
		metrics:  deps.Metrics,
		tracer:   otel.Tracer("docqa/rag"),
		logger:   logger,
	}, nil
}

// Provider exposes the engine's generation backend to collaborators that
// share it (query expansion, agent tools).
func (e *Engine) Provider() llm.Provider { return e.provider }

// Ask runs the pipeline for one question and returns its event stream. The
// channel is closed when the request finishes, fails, or ctx is cancelled.
//
// Concurrent identical questions are not deduplicated: two requests racing
// before either completes will both miss the cache and both run the full
// pipeline.
func (e *Engine) Ask(ctx context.Context, question string, opts AskOptions) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		e.ask(ctx, question, opts, events)
	}()
	return events
}

// AskBlocking runs the pipeline and collects the stream into a final answer
// and its sources. Used by the agent's document-search tool.
func (e *Engine) AskBlocking(ctx context.Context, question string, opts AskOptions) (string, Sources, error) {
	var (
		answer  []byte
		sources Sources
	)
	for ev := range e.Ask(ctx, question, opts) {
		switch ev.Type {
		case EventChunk:
			if s, ok := ev.Data.(string); ok {
				answer = append(answer, s...)
			}
		case EventSources:
			if s, ok := ev.Data.(Sources); ok {
				sources = s
			}
		case EventError:
			if s, ok := ev.Data.(string); ok {
				return "", nil, errors.New(s)
			}
			return "", nil, errors.New("pipeline failed")
		}
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	return string(answer), sources, nil
}

func (e *Engine) ask(ctx context.Context, question string, opts AskOptions, events chan<- Event) {
	if opts.RequestK <= 0 {
		opts.RequestK = DefaultAskOptions().RequestK
	}

	ctx, span := e.tracer.Start(ctx, "rag.ask",
		trace.WithAttributes(attribute.Int("request_k", opts.RequestK)))
	defer span.End()

	logger := e.logger.With(zap.String("request_id", uuid.NewString()))

	// Cache check. A live hit replays the stored answer in fixed-size
	// chunks and never re-runs the pipeline.
	if e.cache != nil {
		if entry := e.cache.Get(ctx, question); entry != nil {
			logger.Debug("cache hit", zap.Float64("confidence", entry.Confidence))
			e.replayCached(ctx, entry, events)
			return
		}
	}

	if !e.emit(ctx, events, Event{Type: EventStatus, Data: "Searching documents..."}) {
		return
	}

	variants := []string{question}
	if opts.UseExpansion && e.expander != nil {
		if !e.emit(ctx, events, Event{Type: EventStatus, Data: "Expanding query..."}) {
			return
		}
		variants = e.expander.Expand(ctx, question)
	}

	searchStart := time.Now()
	merged := e.search(ctx, variants, opts, logger)
	e.metrics.ObserveStage("search", time.Since(searchStart))

	shortlist := topByFingerprint(merged, opts.RequestK*2)

	if len(shortlist) == 0 {
		e.emit(ctx, events, Event{Type: EventChunk, Data: NoRelevantDocuments})
		return
	}

	final := shortlist
	if opts.UseRerank && len(shortlist) > opts.RequestK {
		if !e.emit(ctx, events, Event{Type: EventStatus, Data: "Reranking..."}) {
			return
		}
		rerankStart := time.Now()
		chunks := make([]retrieval.Chunk, len(shortlist))
		for i, sc := range shortlist {
			chunks[i] = sc.Chunk
		}
		final = e.reranker.Rerank(ctx, question, chunks, opts.RequestK)
		e.metrics.ObserveStage("rerank", time.Since(rerankStart))
	} else if len(final) > opts.RequestK {
		final = final[:opts.RequestK]
	}

	if !e.emit(ctx, events, Event{Type: EventStatus, Data: "Generating answer..."}) {
		return
	}

	answer, ok := e.synthesize(ctx, buildGroundingPrompt(question, final), events)
	if !ok {
		return
	}

	confidence := meanScore(final)
	method := methodLabel(opts)
	sources := sourcesFromChunks(final)

	if !e.emit(ctx, events, Event{Type: EventMetadata, Data: Metadata{Confidence: confidence, Method: method}}) {
		return
	}
	if !e.emit(ctx, events, Event{Type: EventSources, Data: sources}) {
		return
	}

	// A cancelled request must not persist a partial answer.
	if e.cache != nil && ctx.Err() == nil {
		tokens := e.tokens.Count(answer)
		e.metrics.AddGenerationTokens(e.provider.Name(), tokens)
		e.cache.Put(ctx, question, cache.Entry{
			Answer:        answer,
			Confidence:    confidence,
			Method:        method,
			Sources:       sources,
			CreatedAt:     time.Now(),
			TokenEstimate: tokens,
		})
	}
}

// search runs vector (and, when hybrid, keyword) retrieval for every query
// variant concurrently and returns all per-variant results flattened in
// variant order, which keeps the pipeline deterministic for a fixed variant
// list. A failing source degrades to an empty list; fusion tolerates either
// side being empty.
func (e *Engine) search(ctx context.Context, variants []string, opts AskOptions, logger *zap.Logger) []retrieval.ScoredChunk {
	searchK := opts.RequestK * 3
	perVariant := make([][]retrieval.ScoredChunk, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		g.Go(func() error {
			var vector []retrieval.ScoredChunk
			hits, err := e.vector.SearchWithScore(gctx, variant, searchK)
			if err != nil {
				logger.Warn("vector search failed, degrading to keyword only",
					zap.String("variant", variant), zap.Error(err))
			} else {
				vector = retrieval.SimilaritiesFromDistances(hits)
			}

			if opts.UseHybrid && e.keyword != nil {
				keyword := e.keyword.Search(variant, searchK)
				perVariant[i] = retrieval.Fuse(vector, keyword, opts.VectorWeight, opts.MetadataFilter)
				return nil
			}

			if opts.MetadataFilter != nil {
				filtered := vector[:0]
				for _, sc := range vector {
					if retrieval.MatchesFilter(sc.Chunk.Metadata, opts.MetadataFilter) {
						filtered = append(filtered, sc)
					}
				}
				vector = filtered
			}
			perVariant[i] = vector
			return nil
		})
	}
	_ = g.Wait() // workers degrade instead of failing

	var all []retrieval.ScoredChunk
	for _, results := range perVariant {
		all = append(all, results...)
	}
	return all
}

// topByFingerprint deduplicates results across variants, keeping the
// highest score per fingerprint, and returns at most limit entries sorted
// descending with first-seen order breaking ties.
func topByFingerprint(results []retrieval.ScoredChunk, limit int) []retrieval.ScoredChunk {
	type entry struct {
		sc    retrieval.ScoredChunk
		order int
	}
	seen := make(map[string]*entry)
	order := 0
	for _, sc := range results {
		fp := retrieval.Fingerprint(sc.Chunk.Content)
		if existing, ok := seen[fp]; ok {
			if sc.Score > existing.sc.Score {
				existing.sc = sc
			}
			continue
		}
		seen[fp] = &entry{sc: sc, order: order}
		order++
	}

	entries := make([]*entry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].sc.Score != entries[j].sc.Score {
			return entries[i].sc.Score > entries[j].sc.Score
		}
		return entries[i].order < entries[j].order
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]retrieval.ScoredChunk, len(entries))
	for i, e := range entries {
		out[i] = e.sc
	}
	return out
}

// synthesize streams the generation, forwarding each fragment as a chunk
// event while accumulating the full answer for caching. It returns ok=false
// when the stream failed or the request was cancelled; in both cases the
// caller must not write the cache.
func (e *Engine) synthesize(ctx context.Context, prompt string, events chan<- Event) (string, bool) {
	start := time.Now()
	defer func() { e.metrics.ObserveStage("generate", time.Since(start)) }()

	stream, err := e.provider.GenerateStream(ctx, prompt, groundingSystemPrompt)
	if err != nil {
		e.logger.Error("generation failed", zap.Error(err))
		e.emit(ctx, events, Event{Type: EventError, Data: err.Error()})
		return "", false
	}

	var answer []byte
	for chunk := range stream {
		if chunk.Err != nil {
			e.logger.Error("generation stream failed", zap.Error(chunk.Err))
			e.emit(ctx, events, Event{Type: EventError, Data: chunk.Err.Error()})
			return "", false
		}
		answer = append(answer, chunk.Text...)
		if !e.emit(ctx, events, Event{Type: EventChunk, Data: chunk.Text}) {
			return "", false
		}
	}
	if ctx.Err() != nil {
		return "", false
	}
	return string(answer), true
}

// replayCached re-emits a cached answer with the same streaming shape as a
// live generation.
func (e *Engine) replayCached(ctx context.Context, entry *cache.Entry, events chan<- Event) {
	if !e.emit(ctx, events, Event{Type: EventStatus, Data: "Cache hit, replaying stored answer"}) {
		return
	}
	runes := []rune(entry.Answer)
	for i := 0; i < len(runes); i += cacheReplayChunkSize {
		end := i + cacheReplayChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if !e.emit(ctx, events, Event{Type: EventChunk, Data: string(runes[i:end])}) {
			return
		}
	}
	if !e.emit(ctx, events, Event{Type: EventMetadata, Data: Metadata{Confidence: entry.Confidence, Method: "cached"}}) {
		return
	}
	e.emit(ctx, events, Event{Type: EventSources, Data: Sources(entry.Sources)})
}

// emit sends one event unless the request was cancelled.
func (e *Engine) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func meanScore(results []retrieval.ScoredChunk) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, sc := range results {
		sum += sc.Score
	}
	return sum / float64(len(results))
}

func methodLabel(opts AskOptions) string {
	method := "streaming"
	if opts.UseHybrid {
		method += "_hybrid"
	}
	if opts.UseRerank {
		method += "_rerank"
	}
	if opts.UseExpansion {
		method += "_expansion"
	}
	return method
}

func sourcesFromChunks(results []retrieval.ScoredChunk) Sources {
	sources := make(Sources, 0, len(results))
	for _, sc := range results {
		sources = append(sources, cache.Source{
			ContentExcerpt: excerpt(sc.Chunk.Content),
			Metadata:       sc.Chunk.Metadata,
			Score:          sc.Score,
		})
	}
	return sources
}
