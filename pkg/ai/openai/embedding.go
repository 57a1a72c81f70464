package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quarrylabs/graphmill/internal/util"
	"github.com/quarrylabs/graphmill/pkg/ai"

	"github.com/openai/openai-go/v3"
)

const defaultDimensions = 1536

// Embed creates a vector embedding for the given input text using the
// configured embedding model. Empty input yields a zero vector so callers
// can treat blank text uniformly.
func (c *Client) Embed(ctx context.Context, input []byte) ([]float32, error) {
	dim := util.GetEnvInt("AI_EMBED_DIM", defaultDimensions)
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, dim), nil
	}
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("embedding client is not configured")
	}

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(string(input))},
		Model: c.embeddingModel,
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(ctx, body)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) == 0 {
		return nil, fmt.Errorf("no embedding in response from model")
	}

	raw := response.Data[0].Embedding
	out := make([]float32, 0, len(raw))
	for _, v := range raw {
		out = append(out, float32(v))
	}
	return out, nil
}
