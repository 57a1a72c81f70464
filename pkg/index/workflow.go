package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/chunker"
	"github.com/quarrylabs/graphmill/pkg/extract"
	"github.com/quarrylabs/graphmill/pkg/graph"
	"github.com/quarrylabs/graphmill/pkg/logger"
	"github.com/quarrylabs/graphmill/pkg/pipeline"
	"github.com/quarrylabs/graphmill/pkg/store"
	"github.com/quarrylabs/graphmill/pkg/textunits"
	"github.com/quarrylabs/graphmill/pkg/tokenizer"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Stage names of the standard indexing workflow.
const (
	StageLoadDocuments    = "load_documents"
	StageCreateTextUnits  = "create_text_units"
	StageProcessTextUnits = "process_text_units"
	StageExtractGraph     = "extract_graph"
	StagePruneGraph       = "prune_graph"
	StageFinalizeGraph    = "finalize_graph"
)

// Output artifact paths written to the run's output storage.
const (
	ArtifactTextUnits     = "text_units.json"
	ArtifactEntities      = "entities.json"
	ArtifactRelationships = "relationships.json"
	ArtifactStats         = "stats.json"
)

// Dependencies are the external collaborators the workflow stages need.
// Embedder may be nil; text-unit deduplication then degrades gracefully.
type Dependencies struct {
	Completion ai.CompletionService
	Embedder   ai.EmbeddingService
	Tokenizer  tokenizer.Tokenizer
}

// NewPipeline builds the standard indexing workflow from a descriptor. The
// stages named in cfg.SkipStages are removed; order is fixed.
func NewPipeline(cfg Config, deps Dependencies) (*pipeline.WorkflowPipeline, error) {
	chunk, err := newChunker(cfg.Chunking, deps.Tokenizer)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(cfg.Name,
		pipeline.Step{Name: StageLoadDocuments, Fn: loadDocuments()},
		pipeline.Step{Name: StageCreateTextUnits, Fn: createTextUnits(chunk, deps.Tokenizer)},
		pipeline.Step{Name: StageProcessTextUnits, Fn: processTextUnits(cfg.TextUnits, deps.Embedder)},
		pipeline.Step{Name: StageExtractGraph, Fn: extractGraph(cfg.Extraction, deps.Completion)},
		pipeline.Step{Name: StagePruneGraph, Fn: pruneGraph(cfg.Graph)},
		pipeline.Step{Name: StageFinalizeGraph, Fn: finalizeGraph(cfg.Finalize)},
	)
	p.Remove(cfg.SkipStages...)
	return p, nil
}

func newChunker(cfg ChunkingConfig, tok tokenizer.Tokenizer) (chunker.Chunker, error) {
	ccfg := chunker.Config{Size: cfg.Size, Overlap: cfg.Overlap, Prefix: cfg.Prefix}
	switch cfg.Strategy {
	case ChunkStrategyTokens:
		return chunker.NewTokenChunker(tok, ccfg)
	case ChunkStrategyStructural, "":
		return chunker.NewStructuralChunker(tok, ccfg)
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", cfg.Strategy)
	}
}

// loadDocuments reads every entry of the input storage into state. An empty
// input halts the run without error.
func loadDocuments() pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.RunContext) (pipeline.StageOutput, error) {
		entries, err := run.Input.Find(ctx, "*")
		if err != nil {
			return pipeline.StageOutput{}, fmt.Errorf("failed to list input documents: %w", err)
		}

		var docs []document
		for entry := range entries {
			data, err := run.Input.Get(ctx, entry.Path)
			if err != nil {
				return pipeline.StageOutput{}, fmt.Errorf("failed to read document %s: %w", entry.Path, err)
			}
			id, err := gonanoid.New()
			if err != nil {
				return pipeline.StageOutput{}, fmt.Errorf("failed to generate document id: %w", err)
			}
			docs = append(docs, document{ID: id, Path: entry.Path, Text: string(data)})
		}
		if err := ctx.Err(); err != nil {
			return pipeline.StageOutput{}, err
		}

		run.Stats.NumDocuments = len(docs)
		run.State[stateDocuments] = documentsToValue(docs)
		logger.Info("[Index] loaded documents", "count", len(docs))

		if len(docs) == 0 {
			return pipeline.StageOutput{Value: pipeline.Number(0), Stop: true}, nil
		}
		return pipeline.StageOutput{Value: pipeline.Number(float64(len(docs)))}, nil
	}
}

// createTextUnits chunks each document independently and assigns text-unit
// ids.
func createTextUnits(chunk chunker.Chunker, tok tokenizer.Tokenizer) pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.RunContext) (pipeline.StageOutput, error) {
		docs := documentsFromValue(run.State[stateDocuments])

		var units []graph.TextUnitRecord
		for _, doc := range docs {
			chunks := chunk.Chunk([]chunker.ChunkSlice{{SourceID: doc.ID, Text: doc.Text}})
			for _, c := range chunks {
				id, err := gonanoid.New()
				if err != nil {
					return pipeline.StageOutput{}, fmt.Errorf("failed to generate text unit id: %w", err)
				}
				units = append(units, graph.TextUnitRecord{
					ID:          id,
					Text:        c.Text,
					DocumentIDs: c.SourceIDs,
					TokenCount:  c.TokenCount,
				})
			}
		}

		run.State[stateTextUnits] = textUnitsToValue(units)
		logger.Info("[Index] created text units", "documents", len(docs), "units", len(units))
		return pipeline.StageOutput{Value: pipeline.Number(float64(len(units)))}, nil
	}
}

// processTextUnits applies budget and dedup heuristics, then persists the
// surviving units as the first output artifact.
func processTextUnits(cfg TextUnitConfig, embedder ai.EmbeddingService) pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.RunContext) (pipeline.StageOutput, error) {
		units := textUnitsFromValue(run.State[stateTextUnits])

		processed, err := textunits.Apply(ctx, textunits.Config{
			MaxTokensPerUnit:        cfg.MaxTokensPerUnit,
			MaxTokensPerDocument:    cfg.MaxTokensPerDocument,
			Dedupe:                  cfg.Dedupe,
			SimilarityThreshold:     cfg.SimilarityThreshold,
			MaxConcurrentEmbeddings: cfg.MaxConcurrentEmbeddings,
		}, units, newCachedEmbedder(embedder, run.Cache))
		if err != nil {
			return pipeline.StageOutput{}, err
		}

		run.State[stateTextUnits] = textUnitsToValue(processed)
		if err := writeJSON(ctx, run.Output, ArtifactTextUnits, processed); err != nil {
			return pipeline.StageOutput{}, err
		}
		return pipeline.StageOutput{Value: pipeline.Number(float64(len(processed)))}, nil
	}
}

// extractGraph produces raw entity and relationship seeds from the text
// units via the completion model.
func extractGraph(cfg ExtractionConfig, completion ai.CompletionService) pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.RunContext) (pipeline.StageOutput, error) {
		if completion == nil {
			return pipeline.StageOutput{}, fmt.Errorf("no completion service configured")
		}
		units := textUnitsFromValue(run.State[stateTextUnits])

		extractor := extract.New(completion, extract.Config{
			EntityTypes: cfg.EntityTypes,
			Concurrency: cfg.Concurrency,
			MaxAttempts: cfg.MaxAttempts,
			Progress: func(done, total int) {
				run.Callbacks.Progress(pipeline.ProgressSnapshot{
					Stage:     StageExtractGraph,
					Completed: done,
					Total:     total,
				})
			},
		})

		entities, relationships, err := extractor.Extract(ctx, units)
		if err != nil {
			return pipeline.StageOutput{}, err
		}

		run.State[stateEntities] = entitySeedsToValue(entities)
		run.State[stateRelationships] = relationshipSeedsToValue(relationships)
		return pipeline.StageOutput{Value: pipeline.Map(map[string]pipeline.Value{
			"entities":      pipeline.Number(float64(len(entities))),
			"relationships": pipeline.Number(float64(len(relationships))),
		})}, nil
	}
}

// pruneGraph merges duplicate relationships and links orphaned entities.
func pruneGraph(cfg GraphConfig) pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.RunContext) (pipeline.StageOutput, error) {
		entities := entitySeedsFromValue(run.State[stateEntities])
		relationships := relationshipSeedsFromValue(run.State[stateRelationships])
		units := textUnitsFromValue(run.State[stateTextUnits])

		entities, relationships = graph.ApplyHeuristics(entities, relationships, units, graph.HeuristicsConfig{
			MergeRelationships: cfg.MergeRelationships,
			MinWeight:          cfg.MinWeight,
			MaxTextUnitIDs:     cfg.MaxTextUnitIDs,
			LinkOrphans:        cfg.LinkOrphans,
			MinOverlapRatio:    cfg.MinOverlapRatio,
		})

		run.State[stateEntities] = entitySeedsToValue(entities)
		run.State[stateRelationships] = relationshipSeedsToValue(relationships)
		return pipeline.StageOutput{Value: pipeline.Map(map[string]pipeline.Value{
			"entities":      pipeline.Number(float64(len(entities))),
			"relationships": pipeline.Number(float64(len(relationships))),
		})}, nil
	}
}

// finalizeGraph computes degrees and layout and writes the canonical output
// artifacts.
func finalizeGraph(cfg FinalizeConfig) pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.RunContext) (pipeline.StageOutput, error) {
		entities := entitySeedsFromValue(run.State[stateEntities])
		relationships := relationshipSeedsFromValue(run.State[stateRelationships])

		finalized, err := graph.Finalize(entities, relationships, graph.FinalizeOptions{Layout: cfg.Layout})
		if err != nil {
			return pipeline.StageOutput{}, err
		}

		if err := writeJSON(ctx, run.Output, ArtifactEntities, finalized.Entities); err != nil {
			return pipeline.StageOutput{}, err
		}
		if err := writeJSON(ctx, run.Output, ArtifactRelationships, finalized.Relationships); err != nil {
			return pipeline.StageOutput{}, err
		}
		if err := writeJSON(ctx, run.Output, ArtifactStats, run.Stats); err != nil {
			return pipeline.StageOutput{}, err
		}

		logger.Info("[Index] graph finalized",
			"entities", len(finalized.Entities), "relationships", len(finalized.Relationships))
		return pipeline.StageOutput{Value: pipeline.Map(map[string]pipeline.Value{
			"entities":      pipeline.Number(float64(len(finalized.Entities))),
			"relationships": pipeline.Number(float64(len(finalized.Relationships))),
		})}, nil
	}
}

func writeJSON(ctx context.Context, storage store.Storage, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := storage.Set(ctx, path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
