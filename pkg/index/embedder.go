package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/cache"
	"github.com/quarrylabs/graphmill/pkg/logger"
)

// cachedEmbedder memoizes embedding calls in a namespaced cache so repeated
// runs over unchanged text units skip the model entirely. Cache failures are
// logged and fall through to the underlying service.
type cachedEmbedder struct {
	inner ai.EmbeddingService
	cache cache.Cache
}

func newCachedEmbedder(inner ai.EmbeddingService, c cache.Cache) ai.EmbeddingService {
	if inner == nil || c == nil {
		return inner
	}
	return &cachedEmbedder{inner: inner, cache: c.CreateChild("embeddings")}
}

func (e *cachedEmbedder) Embed(ctx context.Context, input []byte) ([]float32, error) {
	sum := sha256.Sum256(input)
	key := hex.EncodeToString(sum[:])

	if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil {
			return vec, nil
		}
		logger.Warn("[Index] corrupt cached embedding, recomputing", "key", key)
	}

	vec, err := e.inner.Embed(ctx, input)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := e.cache.Set(ctx, key, data); err != nil {
			logger.Warn("[Index] failed to cache embedding", "key", key, "err", err)
		}
	}
	return vec, nil
}
