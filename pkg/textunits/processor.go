package textunits

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/graph"
	"github.com/quarrylabs/graphmill/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Config tunes the text-unit budget and deduplication heuristics. Zero
// values disable the corresponding step.
type Config struct {
	// MaxTokensPerUnit drops any unit whose token count exceeds it.
	MaxTokensPerUnit int
	// MaxTokensPerDocument caps the cumulative tokens retained per document.
	MaxTokensPerDocument int
	// Dedupe enables semantic deduplication via the embedding service.
	Dedupe bool
	// SimilarityThreshold is the minimum cosine similarity for two units to
	// be considered duplicates.
	SimilarityThreshold float64
	// MaxConcurrentEmbeddings bounds the parallel embedding prefetch.
	MaxConcurrentEmbeddings int
}

// Apply enforces per-unit and per-document token budgets over the chunked
// corpus and optionally collapses near-identical units using embedding
// cosine similarity. Deduplication degrades gracefully: a missing embedding
// service or a failed embedding call skips the step and returns the
// budget-filtered set instead of failing the run. Cancellation propagates.
func Apply(
	ctx context.Context,
	cfg Config,
	units []graph.TextUnitRecord,
	embedder ai.EmbeddingService,
) ([]graph.TextUnitRecord, error) {
	filtered := enforceBudgets(cfg, units)

	if !cfg.Dedupe {
		return filtered, nil
	}
	if embedder == nil {
		logger.Warn("[TextUnits] no embedding service configured, skipping deduplication")
		return filtered, nil
	}

	deduped, err := dedupe(ctx, cfg, filtered, embedder)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.Warn("[TextUnits] deduplication failed, keeping budget-filtered units", "err", err)
		return filtered, nil
	}
	return deduped, nil
}

// enforceBudgets drops oversize units and charges surviving units against
// per-document token budgets. Units are visited in id order so the budget
// outcome is deterministic.
func enforceBudgets(cfg Config, units []graph.TextUnitRecord) []graph.TextUnitRecord {
	sorted := make([]graph.TextUnitRecord, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	kept := make([]graph.TextUnitRecord, 0, len(sorted))
	remaining := make(map[string]int)
	for _, unit := range sorted {
		if cfg.MaxTokensPerUnit > 0 && unit.TokenCount > cfg.MaxTokensPerUnit {
			logger.Debug("[TextUnits] dropping oversize unit", "id", unit.ID, "tokens", unit.TokenCount)
			continue
		}

		if cfg.MaxTokensPerDocument <= 0 {
			kept = append(kept, unit)
			continue
		}

		// A unit is retained only for the document ids that still have
		// budget; each eligible document is charged the full token cost.
		eligible := make([]string, 0, len(unit.DocumentIDs))
		for _, docID := range unit.DocumentIDs {
			if _, ok := remaining[docID]; !ok {
				remaining[docID] = cfg.MaxTokensPerDocument
			}
			if remaining[docID] >= unit.TokenCount {
				eligible = append(eligible, docID)
			}
		}
		if len(eligible) == 0 {
			logger.Debug("[TextUnits] dropping unit over document budget", "id", unit.ID)
			continue
		}
		for _, docID := range eligible {
			remaining[docID] -= unit.TokenCount
		}

		unit.DocumentIDs = eligible
		kept = append(kept, unit)
	}
	return kept
}

// dedupe clusters units by cosine similarity of their embeddings. Each unit
// joins the first existing cluster whose representative is similar enough,
// keeping the cost linear in the number of clusters. Merging unions document
// ids and sums token counts on the representative; the representative's text
// is kept as-is.
func dedupe(
	ctx context.Context,
	cfg Config,
	units []graph.TextUnitRecord,
	embedder ai.EmbeddingService,
) ([]graph.TextUnitRecord, error) {
	if len(units) == 0 {
		return units, nil
	}

	vectors := make([][]float32, len(units))
	eg, ectx := errgroup.WithContext(ctx)
	limit := cfg.MaxConcurrentEmbeddings
	if limit <= 0 {
		limit = 4
	}
	eg.SetLimit(limit)
	for i := range units {
		idx := i
		eg.Go(func() error {
			vec, err := embedder.Embed(ectx, []byte(units[idx].Text))
			if err != nil {
				return err
			}
			vectors[idx] = vec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	clusters := make([]graph.TextUnitRecord, 0, len(units))
	clusterVecs := make([][]float32, 0, len(units))
	for i, unit := range units {
		merged := false
		for j := range clusters {
			if cosineSimilarity(vectors[i], clusterVecs[j]) >= cfg.SimilarityThreshold {
				clusters[j].DocumentIDs = unionIDs(clusters[j].DocumentIDs, unit.DocumentIDs)
				clusters[j].TokenCount += unit.TokenCount
				merged = true
				break
			}
		}
		if !merged {
			clusters = append(clusters, unit)
			clusterVecs = append(clusterVecs, vectors[i])
		}
	}

	logger.Info("[TextUnits] deduplication complete", "in", len(units), "out", len(clusters))
	return clusters, nil
}

func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// cosineSimilarity returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
