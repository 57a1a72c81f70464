package extract

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/graph"
)

// scriptedCompletion answers each prompt with the payload registered for it.
type scriptedCompletion struct {
	mu       sync.Mutex
	payloads map[string]string
	failures int
}

func (s *scriptedCompletion) Complete(context.Context, string, ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (s *scriptedCompletion) CompleteStructured(
	_ context.Context, _, _ string, prompt string, out any, _ ...ai.GenerateOption,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("transient model error")
	}
	payload, ok := s.payloads[prompt]
	if !ok {
		payload = `{"entities": [], "relationships": []}`
	}
	return json.Unmarshal([]byte(payload), out)
}

func TestExtractMergesEntitiesAcrossUnits(t *testing.T) {
	client := &scriptedCompletion{payloads: map[string]string{
		"first": `{
			"entities": [
				{"title": "Alice", "type": "PERSON", "description": "short"},
				{"title": "Bob", "type": "PERSON", "description": "a colleague"}
			],
			"relationships": [
				{"source": "Alice", "target": "Bob", "type": "KNOWS", "description": "met", "weight": 0.8}
			]
		}`,
		"second": `{
			"entities": [
				{"title": "ALICE", "type": "PERSON", "description": "a much longer description"}
			],
			"relationships": []
		}`,
	}}
	extractor := New(client, Config{Concurrency: 1})

	entities, relationships, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "first"},
		{ID: "u2", Text: "second"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	// Sorted by title: Alice before Bob.
	alice := entities[0]
	if alice.Title != "Alice" {
		t.Fatalf("first entity = %q, want Alice", alice.Title)
	}
	if alice.Frequency != 2 {
		t.Errorf("frequency = %d, want 2 for case-insensitive merge", alice.Frequency)
	}
	if alice.Description != "a much longer description" {
		t.Errorf("description = %q, want longest", alice.Description)
	}
	if !reflect.DeepEqual(alice.TextUnitIDs, []string{"u1", "u2"}) {
		t.Errorf("text unit ids = %v, want [u1 u2]", alice.TextUnitIDs)
	}

	if len(relationships) != 1 {
		t.Fatalf("got %d relationships, want 1", len(relationships))
	}
	rel := relationships[0]
	if !rel.Bidirectional {
		t.Error("extracted relationship must be bidirectional")
	}
	if !reflect.DeepEqual(rel.TextUnitIDs, []string{"u1"}) {
		t.Errorf("relationship provenance = %v, want [u1]", rel.TextUnitIDs)
	}
}

func TestExtractKeepsForwardReferences(t *testing.T) {
	// An edge in an earlier unit may name an entity only a later unit
	// introduces; filtering runs against the full merged entity set.
	client := &scriptedCompletion{payloads: map[string]string{
		"first": `{
			"entities": [{"title": "Alice", "type": "PERSON", "description": "x"}],
			"relationships": [
				{"source": "Alice", "target": "Carol", "type": "KNOWS", "description": "", "weight": 0.5}
			]
		}`,
		"second": `{
			"entities": [{"title": "Carol", "type": "PERSON", "description": "y"}],
			"relationships": []
		}`,
	}}
	extractor := New(client, Config{Concurrency: 1})

	_, relationships, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "first"},
		{ID: "u2", Text: "second"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(relationships) != 1 {
		t.Fatalf("got %d relationships, want 1", len(relationships))
	}
	if relationships[0].Target != "Carol" {
		t.Errorf("target = %q, want Carol", relationships[0].Target)
	}
}

func TestExtractDropsDanglingRelationships(t *testing.T) {
	client := &scriptedCompletion{payloads: map[string]string{
		"text": `{
			"entities": [{"title": "Alice", "type": "PERSON", "description": "x"}],
			"relationships": [
				{"source": "Alice", "target": "Ghost", "type": "KNOWS", "description": "", "weight": 0.5}
			]
		}`,
	}}
	extractor := New(client, Config{Concurrency: 1})

	_, relationships, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "text"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(relationships) != 0 {
		t.Errorf("got %v, want no edges to unnamed entities", relationships)
	}
}

func TestExtractDefaultsRelationshipType(t *testing.T) {
	client := &scriptedCompletion{payloads: map[string]string{
		"text": `{
			"entities": [
				{"title": "Alice", "type": "PERSON", "description": "x"},
				{"title": "Bob", "type": "PERSON", "description": "y"}
			],
			"relationships": [
				{"source": "Alice", "target": "Bob", "type": "  ", "description": "", "weight": 0.5}
			]
		}`,
	}}
	extractor := New(client, Config{Concurrency: 1})

	_, relationships, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "text"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(relationships) != 1 || relationships[0].Type != "RELATED" {
		t.Errorf("relationships = %v, want one with type RELATED", relationships)
	}
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	client := &scriptedCompletion{
		payloads: map[string]string{
			"text": `{"entities": [{"title": "Alice", "type": "PERSON", "description": "x"}], "relationships": []}`,
		},
		failures: 2,
	}
	extractor := New(client, Config{Concurrency: 1, MaxAttempts: 3})

	entities, _, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "text"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v, want success after retries", err)
	}
	if len(entities) != 1 {
		t.Errorf("got %d entities, want 1", len(entities))
	}
}

func TestExtractFailsAfterRetryBudget(t *testing.T) {
	client := &scriptedCompletion{failures: 10}
	extractor := New(client, Config{Concurrency: 1, MaxAttempts: 2})

	_, _, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "text"},
	})
	if err == nil {
		t.Fatal("Extract() expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "u1") {
		t.Errorf("error %q does not name the failing unit", err)
	}
}

func TestExtractReportsProgress(t *testing.T) {
	client := &scriptedCompletion{payloads: map[string]string{}}
	var snapshots []int
	extractor := New(client, Config{
		Concurrency: 1,
		Progress: func(done, total int) {
			if total != 2 {
				t.Errorf("total = %d, want 2", total)
			}
			snapshots = append(snapshots, done)
		},
	})

	_, _, err := extractor.Extract(context.Background(), []graph.TextUnitRecord{
		{ID: "u1", Text: "a"},
		{ID: "u2", Text: "b"},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !reflect.DeepEqual(snapshots, []int{1, 2}) {
		t.Errorf("progress snapshots = %v, want [1 2]", snapshots)
	}
}
