package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quarrylabs/graphmill/internal/queue"
	"github.com/quarrylabs/graphmill/internal/util"
	"github.com/quarrylabs/graphmill/pkg/ai"
	oll "github.com/quarrylabs/graphmill/pkg/ai/ollama"
	oai "github.com/quarrylabs/graphmill/pkg/ai/openai"
	"github.com/quarrylabs/graphmill/pkg/cache"
	"github.com/quarrylabs/graphmill/pkg/logger"
	"github.com/quarrylabs/graphmill/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	aiClient := newAIClient()

	runCache, err := cache.NewBadgerCache(util.GetEnvString("CACHE_DIR", ""))
	if err != nil {
		logger.Fatal("Could not open cache", "err", err)
	}
	defer runCache.Close()

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.IndexQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// Single consumer channel with prefetch=1 so one job runs at a time.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IndexQueue,
		queue.IndexQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IndexQueue, "err", err)
	}

	logger.Info("Listening for messages")

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed")
					return
				}

				startTime := time.Now()
				logger.Info("Received message", "queue", queue.IndexQueue)

				processingErr := queue.ProcessIndexMessage(ctx, aiClient, runCache, string(msg.Body))
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.IndexQueue, "err", processingErr)
					queue.HandleProcessingError(consumerCh, msg, queue.IndexQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.IndexQueue)
				}

				metrics := aiClient.GetMetrics()
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", formatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
				)
				logger.Info("Processing time", "duration", formatDuration(time.Since(startTime)))
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
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

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
