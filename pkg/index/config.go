package index

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChunkStrategy selects which chunker the create_text_units stage uses.
type ChunkStrategy string

const (
	ChunkStrategyTokens     ChunkStrategy = "tokens"
	ChunkStrategyStructural ChunkStrategy = "structural"
)

// ChunkingConfig configures the text-unit chunking stage.
type ChunkingConfig struct {
	Strategy ChunkStrategy `yaml:"strategy"`
	Size     int           `yaml:"size"`
	Overlap  int           `yaml:"overlap"`
	Prefix   string        `yaml:"prefix"`
	Encoding string        `yaml:"encoding"`
}

// ExtractionConfig configures the model-backed graph extraction stage.
type ExtractionConfig struct {
	EntityTypes []string `yaml:"entity_types"`
	Concurrency int      `yaml:"concurrency"`
	MaxAttempts int      `yaml:"max_attempts"`
}

// GraphConfig configures the graph cleanup heuristics.
type GraphConfig struct {
	MergeRelationships bool    `yaml:"merge_relationships"`
	MinWeight          float64 `yaml:"min_weight"`
	MaxTextUnitIDs     int     `yaml:"max_text_unit_ids"`
	LinkOrphans        bool    `yaml:"link_orphans"`
	MinOverlapRatio    float64 `yaml:"min_overlap_ratio"`
}

// TextUnitConfig configures the text-unit budget and dedup heuristics.
type TextUnitConfig struct {
	MaxTokensPerUnit        int     `yaml:"max_tokens_per_unit"`
	MaxTokensPerDocument    int     `yaml:"max_tokens_per_document"`
	Dedupe                  bool    `yaml:"dedupe"`
	SimilarityThreshold     float64 `yaml:"similarity_threshold"`
	MaxConcurrentEmbeddings int     `yaml:"max_concurrent_embeddings"`
}

// FinalizeConfig configures graph finalization.
type FinalizeConfig struct {
	Layout bool `yaml:"layout"`
}

// Config is the declarative descriptor an indexing workflow is built from.
type Config struct {
	Name       string   `yaml:"name"`
	SkipStages []string `yaml:"skip_stages"`

	Chunking   ChunkingConfig   `yaml:"chunking"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Graph      GraphConfig      `yaml:"graph"`
	TextUnits  TextUnitConfig   `yaml:"text_units"`
	Finalize   FinalizeConfig   `yaml:"finalize"`
}

// DefaultConfig returns the descriptor used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		Name: "index",
		Chunking: ChunkingConfig{
			Strategy: ChunkStrategyStructural,
			Size:     1200,
			Overlap:  100,
			Encoding: "o200k_base",
		},
		Extraction: ExtractionConfig{
			Concurrency: 4,
			MaxAttempts: 3,
		},
		Graph: GraphConfig{
			MergeRelationships: true,
			MinWeight:          0.1,
			MaxTextUnitIDs:     20,
			LinkOrphans:        true,
			MinOverlapRatio:    0.3,
		},
		TextUnits: TextUnitConfig{
			MaxTokensPerUnit:        8000,
			SimilarityThreshold:     0.95,
			MaxConcurrentEmbeddings: 4,
		},
		Finalize: FinalizeConfig{
			Layout: true,
		},
	}
}

// ParseConfig unmarshals a YAML descriptor on top of the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse workflow descriptor: %w", err)
	}
	if cfg.Chunking.Strategy != ChunkStrategyTokens && cfg.Chunking.Strategy != ChunkStrategyStructural {
		return Config{}, fmt.Errorf("unknown chunking strategy %q", cfg.Chunking.Strategy)
	}
	return cfg, nil
}
