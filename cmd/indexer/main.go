package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/quarrylabs/graphmill/internal/util"
	"github.com/quarrylabs/graphmill/pkg/ai"
	oll "github.com/quarrylabs/graphmill/pkg/ai/ollama"
	oai "github.com/quarrylabs/graphmill/pkg/ai/openai"
	"github.com/quarrylabs/graphmill/pkg/cache"
	"github.com/quarrylabs/graphmill/pkg/index"
	"github.com/quarrylabs/graphmill/pkg/logger"
	"github.com/quarrylabs/graphmill/pkg/logger/console"
	"github.com/quarrylabs/graphmill/pkg/pipeline"
	"github.com/quarrylabs/graphmill/pkg/store"
	"github.com/quarrylabs/graphmill/pkg/tokenizer"
)

func main() {
	util.LoadEnv()

	inputDir := flag.String("input", "", "directory containing the documents to index")
	outputDir := flag.String("output", "", "directory the graph artifacts are written to")
	descriptorPath := flag.String("config", "", "optional YAML workflow descriptor")
	cacheDir := flag.String("cache", "", "optional cache directory (in-memory when empty)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if *inputDir == "" || *outputDir == "" {
		logger.Fatal("both -input and -output are required")
	}

	cfg := index.DefaultConfig()
	if *descriptorPath != "" {
		data, err := os.ReadFile(*descriptorPath)
		if err != nil {
			logger.Fatal("Could not read workflow descriptor", "err", err)
		}
		cfg, err = index.ParseConfig(data)
		if err != nil {
			logger.Fatal("Invalid workflow descriptor", "err", err)
		}
	}

	tok, err := tokenizer.NewTiktoken(cfg.Chunking.Encoding)
	if err != nil {
		logger.Fatal("Could not create tokenizer", "err", err)
	}

	input, err := store.NewFileStorage(*inputDir)
	if err != nil {
		logger.Fatal("Could not open input storage", "err", err)
	}
	output, err := store.NewFileStorage(*outputDir)
	if err != nil {
		logger.Fatal("Could not open output storage", "err", err)
	}

	runCache, err := cache.NewBadgerCache(*cacheDir)
	if err != nil {
		logger.Fatal("Could not open cache", "err", err)
	}
	defer runCache.Close()

	aiClient := newAIClient()

	p, err := index.NewPipeline(cfg, index.Dependencies{
		Completion: aiClient,
		Embedder:   aiClient,
		Tokenizer:  tok,
	})
	if err != nil {
		logger.Fatal("Could not build workflow", "err", err)
	}

	run := pipeline.NewRunContext(input, output, nil, runCache, nil)

	failed := false
	for result := range pipeline.Execute(ctx, p, run) {
		if result.Err != nil {
			logger.Error("Stage failed", "stage", result.Stage, "err", result.Err)
			failed = true
		}
	}

	metrics := aiClient.GetMetrics()
	logger.Info(
		"Run finished",
		"documents", run.Stats.NumDocuments,
		"runtime_s", run.Stats.TotalRuntimeSeconds,
		"total_tokens", metrics.TotalTokens,
	)
	if failed || ctx.Err() != nil {
		os.Exit(1)
	}
}

func newAIClient() ai.Service {
	adapter := util.GetEnvString("AI_ADAPTER", "openai")

	if adapter == "ollama" {
		client, err := oll.NewClient(oll.ClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("AI_MAX_CONCURRENT", 2)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		return client
	}

	return oai.NewClient(oai.ClientParams{
		CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
		EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

		ChatURL:      util.GetEnv("AI_CHAT_URL"),
		ChatKey:      util.GetEnv("AI_CHAT_KEY"),
		EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
		EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

		MaxConcurrentRequests: int64(util.GetEnvInt("AI_MAX_CONCURRENT", 4)),
	})
}
