package graph

import (
	"reflect"
	"testing"
)

func TestMergeRelationshipsCollapsesBidirectionalPairs(t *testing.T) {
	cfg := HeuristicsConfig{MergeRelationships: true, MinWeight: 0.1, MaxTextUnitIDs: 10}
	relationships := []RelationshipSeed{
		{Source: "Alice", Target: "Bob", Type: "KNOWS", Description: "longer description here", Weight: 0.5, TextUnitIDs: []string{"u1"}, Bidirectional: true},
		{Source: "Bob", Target: "Alice", Type: "KNOWS", Description: "short", Weight: 0.7, TextUnitIDs: []string{"u2"}, Bidirectional: true},
	}

	_, merged := ApplyHeuristics(nil, relationships, nil, cfg)
	if len(merged) != 1 {
		t.Fatalf("got %d relationships, want 1", len(merged))
	}
	rel := merged[0]
	if rel.Weight != 0.6 {
		t.Errorf("weight = %v, want mean 0.6", rel.Weight)
	}
	if rel.Description != "short" {
		t.Errorf("description = %q, want shortest non-empty", rel.Description)
	}
	if !reflect.DeepEqual(rel.TextUnitIDs, []string{"u1", "u2"}) {
		t.Errorf("text unit ids = %v, want sorted union [u1 u2]", rel.TextUnitIDs)
	}
}

func TestMergeRelationshipsKeepsDirectedPairsApart(t *testing.T) {
	cfg := HeuristicsConfig{MergeRelationships: true}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "B", Type: "OWNS", Weight: 0.5},
		{Source: "B", Target: "A", Type: "OWNS", Weight: 0.5},
	}

	_, merged := ApplyHeuristics(nil, relationships, nil, cfg)
	if len(merged) != 2 {
		t.Fatalf("got %d relationships, want 2 for directed seeds", len(merged))
	}
}

func TestMergeRelationshipsWeightFloor(t *testing.T) {
	cfg := HeuristicsConfig{MergeRelationships: true, MinWeight: 0.3}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "B", Type: "REL", Weight: 0.1},
		{Source: "A", Target: "B", Type: "REL", Weight: 0.1},
	}

	_, merged := ApplyHeuristics(nil, relationships, nil, cfg)
	if len(merged) != 1 {
		t.Fatalf("got %d relationships, want 1", len(merged))
	}
	if merged[0].Weight != 0.3 {
		t.Errorf("weight = %v, want floor 0.3", merged[0].Weight)
	}
}

func TestMergeRelationshipsCapsTextUnitIDs(t *testing.T) {
	cfg := HeuristicsConfig{MergeRelationships: true, MaxTextUnitIDs: 2}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "B", Type: "REL", Weight: 1, TextUnitIDs: []string{"u3", "u1"}},
		{Source: "A", Target: "B", Type: "REL", Weight: 1, TextUnitIDs: []string{"u2"}},
	}

	_, merged := ApplyHeuristics(nil, relationships, nil, cfg)
	if !reflect.DeepEqual(merged[0].TextUnitIDs, []string{"u1", "u2"}) {
		t.Errorf("text unit ids = %v, want capped sorted union [u1 u2]", merged[0].TextUnitIDs)
	}
}

func TestMergeRelationshipsIdempotent(t *testing.T) {
	cfg := HeuristicsConfig{MergeRelationships: true, MinWeight: 0.1, MaxTextUnitIDs: 10}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "B", Type: "REL", Weight: 0.4, TextUnitIDs: []string{"u1"}, Bidirectional: true},
		{Source: "B", Target: "A", Type: "REL", Weight: 0.6, TextUnitIDs: []string{"u2"}, Bidirectional: true},
		{Source: "C", Target: "D", Type: "REL", Weight: 0.9, TextUnitIDs: []string{"u3"}},
	}

	_, once := ApplyHeuristics(nil, relationships, nil, cfg)
	_, twice := ApplyHeuristics(nil, once, nil, cfg)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestLinkOrphans(t *testing.T) {
	cfg := HeuristicsConfig{
		LinkOrphans:     true,
		MinWeight:       0.2,
		MaxTextUnitIDs:  5,
		MinOverlapRatio: 0.5,
	}
	entities := []EntitySeed{
		{Title: "Alice", TextUnitIDs: []string{"u1", "u2"}},
		{Title: "Bob", TextUnitIDs: []string{"u1", "u2", "u3"}},
		{Title: "Carol", TextUnitIDs: []string{"u3"}},
	}
	relationships := []RelationshipSeed{
		{Source: "Bob", Target: "Carol", Type: "KNOWS", Weight: 0.5, Bidirectional: true},
	}
	textUnits := []TextUnitRecord{
		{ID: "u1", TokenCount: 10},
		{ID: "u2", TokenCount: 30},
		{ID: "u3", TokenCount: 5},
	}

	_, linked := ApplyHeuristics(entities, relationships, textUnits, cfg)
	if len(linked) != 2 {
		t.Fatalf("got %d relationships, want 2", len(linked))
	}

	synth := linked[1]
	if synth.Source != "Alice" || synth.Target != "Bob" {
		t.Errorf("synthesized edge %s->%s, want Alice->Bob", synth.Source, synth.Target)
	}
	if synth.Type != "RELATED" {
		t.Errorf("synthesized type = %q, want RELATED", synth.Type)
	}
	if !synth.Bidirectional {
		t.Error("synthesized edge must be bidirectional")
	}
	// Shared units ranked by descending token count.
	if !reflect.DeepEqual(synth.TextUnitIDs, []string{"u2", "u1"}) {
		t.Errorf("provenance = %v, want [u2 u1]", synth.TextUnitIDs)
	}
	// Overlap ratio 2/min(2,3) = 1.0 becomes the weight.
	if synth.Weight != 1.0 {
		t.Errorf("weight = %v, want overlap ratio 1.0", synth.Weight)
	}
}

func TestLinkOrphansRespectsThreshold(t *testing.T) {
	cfg := HeuristicsConfig{LinkOrphans: true, MinOverlapRatio: 0.9}
	entities := []EntitySeed{
		{Title: "Alice", TextUnitIDs: []string{"u1", "u2", "u3", "u4"}},
		{Title: "Bob", TextUnitIDs: []string{"u1", "u5", "u6", "u7"}},
		{Title: "Carol", TextUnitIDs: []string{"u5"}},
	}
	relationships := []RelationshipSeed{
		{Source: "Bob", Target: "Carol", Type: "KNOWS", Weight: 0.5},
	}

	// Alice shares only 1 of 4 units with Bob: ratio 0.25 < 0.9.
	_, linked := ApplyHeuristics(entities, relationships, nil, cfg)
	if len(linked) != 1 {
		t.Errorf("got %d relationships, want 1 (no synthesis below threshold)", len(linked))
	}
}

func TestLinkOrphansSkipsExistingEdges(t *testing.T) {
	cfg := HeuristicsConfig{LinkOrphans: true, MinOverlapRatio: 0.1}
	entities := []EntitySeed{
		{Title: "Alice", TextUnitIDs: []string{"u1"}},
	}
	relationships := []RelationshipSeed{
		{Source: "Alice", Target: "Bob", Type: "KNOWS", Weight: 0.5},
	}

	// Alice already has an edge, nothing to synthesize.
	_, linked := ApplyHeuristics(entities, relationships, nil, cfg)
	if len(linked) != 1 {
		t.Errorf("got %d relationships, want 1", len(linked))
	}
}
