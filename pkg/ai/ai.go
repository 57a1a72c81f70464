package ai

import (
	"context"
)

// GenerateOptions holds configuration for completion requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for generation
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature (0.0-2.0)
}

// GenerateOption is a functional option for configuring completion requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling
// temperature. Lower values make outputs more deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// ModelMetrics contains accumulated usage metrics from model calls.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// CompletionService produces chat completions. It is consumed by the graph
// extractor; the indexing core only relies on the structured JSON variant.
type CompletionService interface {
	Complete(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	// CompleteStructured enforces a JSON schema derived from out and
	// unmarshals the model response into it.
	CompleteStructured(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) error
}

// EmbeddingService produces embedding vectors. Repeated calls for identical
// text must yield vectors whose cosine similarity to themselves is 1.0.
type EmbeddingService interface {
	Embed(ctx context.Context, input []byte) ([]float32, error)
}

// Service bundles the completion and embedding collaborators behind one
// client, with usage metrics for run reporting.
type Service interface {
	CompletionService
	EmbeddingService
	GetMetrics() ModelMetrics
	ResetMetrics()
}
