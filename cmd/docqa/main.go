// Command docqa indexes a directory of text documents and answers
// questions over them from an interactive prompt.
//
// Usage:
//
//	docqa -docs ./documents                  # streaming pipeline
//	docqa -docs ./documents -agent           # planning loop with tools
//	docqa -docs ./documents -config cfg.yaml
//
// Configuration precedence: defaults, YAML file, DOCQA_* environment
// variables.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/docqa/agent"
	"github.com/BaSui01/docqa/cache"
	"github.com/BaSui01/docqa/config"
	"github.com/BaSui01/docqa/internal/metrics"
	"github.com/BaSui01/docqa/llm/factory"
	"github.com/BaSui01/docqa/llm/providers"
	"github.com/BaSui01/docqa/llm/providers/openai"
	"github.com/BaSui01/docqa/llm/tokenizer"
	"github.com/BaSui01/docqa/rag"
	"github.com/BaSui01/docqa/retrieval"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		docsDir    = flag.String("docs", "", "directory of .txt/.md documents to index")
		agentMode  = flag.Bool("agent", false, "answer through the planning loop with tools")
	)
	flag.Parse()

	if *docsDir == "" {
		fmt.Fprintln(os.Stderr, "usage: docqa -docs <directory> [-config cfg.yaml] [-agent]")
		os.Exit(2)
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *docsDir, *agentMode, logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, docsDir string, agentMode bool, logger *zap.Logger) error {
	collector := metrics.Default(logger)

	provider, err := factory.New(cfg.Provider.Name, providers.BaseConfig{
		APIKey:      cfg.Provider.APIKey,
		BaseURL:     cfg.Provider.BaseURL,
		Model:       cfg.Provider.Model,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: float32(cfg.Provider.Temperature),
		Timeout:     cfg.Provider.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	embedKey := cfg.Embedding.APIKey
	if embedKey == "" {
		embedKey = cfg.Provider.APIKey
	}
	embedder := openai.NewEmbedder(providers.BaseConfig{
		APIKey:  embedKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	}, logger)

	tokens := tokenizer.NewCounter(cfg.Provider.Model)
	store := retrieval.NewMemoryVectorStore(embedder, logger)
	if err := indexDocuments(ctx, store, tokens, docsDir, logger); err != nil {
		return err
	}

	keyword, err := retrieval.BuildKeywordIndex(ctx, retrieval.DefaultKeywordIndexConfig(), store, logger)
	if err != nil {
		return err
	}

	var responseCache *cache.ResponseCache
	if cfg.Redis.Enabled {
		responseCache, err = cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, collector, logger)
		if err != nil {
			logger.Warn("cache unavailable, continuing without it", zap.Error(err))
			responseCache = nil
		}
	}

	engine, err := rag.NewEngine(rag.EngineDeps{
		Vector:   store,
		Keyword:  keyword,
		Expander: retrieval.NewExpander(provider, logger),
		Reranker: retrieval.NewReranker(nil, logger),
		Cache:    responseCache,
		Provider: provider,
		Tokens:   tokens,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	opts := rag.AskOptions{
		RequestK:     cfg.Pipeline.RequestK,
		VectorWeight: cfg.Pipeline.VectorWeight,
		UseHybrid:    cfg.Pipeline.UseHybrid,
		UseRerank:    cfg.Pipeline.UseRerank,
		UseExpansion: cfg.Pipeline.UseExpansion,
	}

	var planner *agent.Planner
	if agentMode {
		var webSearch agent.SearchProvider
		if cfg.Agent.BraveAPIKey != "" {
			webSearch = agent.NewBraveProvider(cfg.Agent.BraveAPIKey)
		}
		registry := agent.NewRegistry(engine, provider, webSearch, logger)
		planner = agent.NewPlanner(registry, provider,
			agent.PlannerConfig{MaxIterations: cfg.Agent.MaxIterations}, collector, logger)
	}

	return repl(ctx, engine, planner, opts)
}

// repl reads questions from stdin and renders the event stream for each.
func repl(ctx context.Context, engine *rag.Engine, planner *agent.Planner, opts rag.AskOptions) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		var events <-chan rag.Event
		if planner != nil {
			events = planner.Process(ctx, question)
		} else {
			events = engine.Ask(ctx, question, opts)
		}
		render(events)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func render(events <-chan rag.Event) {
	for ev := range events {
		switch ev.Type {
		case rag.EventStatus:
			fmt.Printf("[%v]\n", ev.Data)
		case rag.EventReasoning:
			fmt.Printf("[reasoning] %v\n", ev.Data)
		case rag.EventToolResult:
			fmt.Printf("[tool] %v\n", ev.Data)
		case rag.EventChunk:
			fmt.Print(ev.Data)
		case rag.EventSources:
			if sources, ok := ev.Data.(rag.Sources); ok {
				fmt.Printf("\n\nSources (%d):\n", len(sources))
				for i, s := range sources {
					fmt.Printf("  %d. %s\n", i+1, s.ContentExcerpt)
				}
			}
		case rag.EventMetadata:
			// terminal payload, nothing to render interactively
		case rag.EventError:
			fmt.Printf("\nerror: %v\n", ev.Data)
		}
	}
	fmt.Println()
}

// indexDocuments splits every .txt and .md file under dir into chunks and
// adds them to the store in one batch per file.
func indexDocuments(ctx context.Context, store *retrieval.MemoryVectorStore, tokens retrieval.TokenCounter, dir string, logger *zap.Logger) error {
	splitter := retrieval.NewSplitter(retrieval.DefaultSplitterConfig(), tokens, logger)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		chunks := splitter.Split(string(data), map[string]any{"source": filepath.Base(path)})
		if len(chunks) == 0 {
			return nil
		}
		return store.Add(ctx, chunks)
	})
	if err != nil {
		return fmt.Errorf("index documents: %w", err)
	}

	if store.Count() == 0 {
		return fmt.Errorf("no indexable documents found in %s", dir)
	}
	logger.Info("corpus indexed", zap.Int("chunks", store.Count()), zap.String("dir", dir))
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	// keep the interactive prompt on stdout clean
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
