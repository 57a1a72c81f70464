package index

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/cache"
	"github.com/quarrylabs/graphmill/pkg/graph"
	"github.com/quarrylabs/graphmill/pkg/pipeline"
	"github.com/quarrylabs/graphmill/pkg/store"
)

// runeTok counts every rune as one token so chunk budgets are exact.
type runeTok struct{}

func (runeTok) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeTok) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

func (runeTok) Count(text string) int { return len([]rune(text)) }

// fixedCompletion answers every structured request with the same payload.
type fixedCompletion struct {
	payload string
}

func (f *fixedCompletion) Complete(context.Context, string, ...ai.GenerateOption) (string, error) {
	return f.payload, nil
}

func (f *fixedCompletion) CompleteStructured(
	_ context.Context, _, _, _ string, out any, _ ...ai.GenerateOption,
) error {
	return json.Unmarshal([]byte(f.payload), out)
}

const extractionFixture = `{
	"entities": [
		{"title": "Alice", "type": "PERSON", "description": "A person"},
		{"title": "Bob", "type": "PERSON", "description": "Another person"}
	],
	"relationships": [
		{"source": "Alice", "target": "Bob", "type": "KNOWS", "description": "met", "weight": 0.8}
	]
}`

func runPipeline(t *testing.T, input store.Storage) (store.Storage, []pipeline.StageResult) {
	t.Helper()

	p, err := NewPipeline(DefaultConfig(), Dependencies{
		Completion: &fixedCompletion{payload: extractionFixture},
		Tokenizer:  runeTok{},
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	output := store.NewMemoryStorage()
	run := pipeline.NewRunContext(input, output, nil, cache.NewMemoryCache(), nil)

	var results []pipeline.StageResult
	for result := range pipeline.Execute(context.Background(), p, run) {
		if result.Err != nil {
			t.Fatalf("stage %s failed: %v", result.Stage, result.Err)
		}
		results = append(results, result)
	}
	return output, results
}

func TestIndexingPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	input := store.NewMemoryStorage()
	if err := input.Set(ctx, "doc.md", []byte("# Notes\n\nAlice met Bob at the office.")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	output, results := runPipeline(t, input)
	if len(results) != 6 {
		t.Fatalf("got %d stage results, want 6", len(results))
	}

	for _, artifact := range []string{ArtifactTextUnits, ArtifactEntities, ArtifactRelationships, ArtifactStats} {
		if _, err := output.Get(ctx, artifact); err != nil {
			t.Errorf("artifact %s missing: %v", artifact, err)
		}
	}

	data, err := output.Get(ctx, ArtifactEntities)
	if err != nil {
		t.Fatalf("Get(entities) error = %v", err)
	}
	var entities []graph.EntityRecord
	if err := json.Unmarshal(data, &entities); err != nil {
		t.Fatalf("unmarshal entities: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	for _, ent := range entities {
		if ent.ID == "" || ent.Title == "" {
			t.Errorf("entity missing identity: %+v", ent)
		}
		if ent.Degree != 1 {
			t.Errorf("entity %s degree = %d, want 1", ent.Title, ent.Degree)
		}
	}

	data, err = output.Get(ctx, ArtifactRelationships)
	if err != nil {
		t.Fatalf("Get(relationships) error = %v", err)
	}
	var relationships []graph.RelationshipRecord
	if err := json.Unmarshal(data, &relationships); err != nil {
		t.Fatalf("unmarshal relationships: %v", err)
	}
	if len(relationships) != 1 {
		t.Fatalf("got %d relationships, want 1", len(relationships))
	}
	if relationships[0].Type != "KNOWS" {
		t.Errorf("relationship type = %q, want KNOWS", relationships[0].Type)
	}
}

func TestIndexingPipelineStopsOnEmptyInput(t *testing.T) {
	output, results := runPipeline(t, store.NewMemoryStorage())

	if len(results) != 1 || results[0].Stage != StageLoadDocuments {
		t.Fatalf("results = %v, want only %s", results, StageLoadDocuments)
	}
	if _, err := output.Get(context.Background(), ArtifactEntities); err == nil {
		t.Error("no artifacts expected after empty-input stop")
	}
}

func TestNewPipelineSkipsStages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipStages = []string{StageProcessTextUnits, StageFinalizeGraph}

	p, err := NewPipeline(cfg, Dependencies{
		Completion: &fixedCompletion{payload: extractionFixture},
		Tokenizer:  runeTok{},
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	names := p.StageNames()
	if len(names) != 4 {
		t.Fatalf("stage names = %v, want 4 remaining", names)
	}
	for _, name := range names {
		if name == StageProcessTextUnits || name == StageFinalizeGraph {
			t.Errorf("skipped stage %s still present", name)
		}
	}
}
