package graph

import (
	"math"
	"testing"
)

func TestFinalizeDegreeSymmetry(t *testing.T) {
	entities := []EntitySeed{
		{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"},
	}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "B", Type: "REL"},
		{Source: "B", Target: "C", Type: "REL"},
		{Source: "A", Target: "C", Type: "REL"},
	}

	g, err := Finalize(entities, relationships, FinalizeOptions{})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	sum := 0
	for _, ent := range g.Entities {
		sum += ent.Degree
	}
	if want := 2 * len(relationships); sum != want {
		t.Errorf("sum of degrees = %d, want %d", sum, want)
	}

	byTitle := make(map[string]EntityRecord)
	for _, ent := range g.Entities {
		byTitle[ent.Title] = ent
	}
	if byTitle["D"].Degree != 0 {
		t.Errorf("isolated entity degree = %d, want 0", byTitle["D"].Degree)
	}
}

func TestFinalizeSelfLoopDegree(t *testing.T) {
	entities := []EntitySeed{{Title: "A"}}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "A", Type: "SELF"},
	}

	g, err := Finalize(entities, relationships, FinalizeOptions{})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if g.Entities[0].Degree != 2 {
		t.Errorf("self-loop degree = %d, want 2", g.Entities[0].Degree)
	}
	if g.Relationships[0].CombinedDegree != 4 {
		t.Errorf("self-loop combined degree = %d, want 4", g.Relationships[0].CombinedDegree)
	}
}

func TestFinalizeCombinedDegree(t *testing.T) {
	entities := []EntitySeed{{Title: "A"}, {Title: "B"}, {Title: "C"}}
	relationships := []RelationshipSeed{
		{Source: "A", Target: "B", Type: "REL"},
		{Source: "B", Target: "C", Type: "REL"},
	}

	g, err := Finalize(entities, relationships, FinalizeOptions{})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	// A has degree 1, B degree 2: combined 3 for the A-B edge.
	if g.Relationships[0].CombinedDegree != 3 {
		t.Errorf("combined degree = %d, want 3", g.Relationships[0].CombinedDegree)
	}
}

func TestFinalizeLayout(t *testing.T) {
	entities := []EntitySeed{{Title: "B"}, {Title: "A"}, {Title: "C"}, {Title: "D"}}

	g, err := Finalize(entities, nil, FinalizeOptions{Layout: true})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	// Four distinct titles on a circle of radius max(1, 4/2) = 2.
	for _, ent := range g.Entities {
		r := math.Hypot(ent.X, ent.Y)
		if math.Abs(r-2) > 1e-9 {
			t.Errorf("entity %s radius = %v, want 2", ent.Title, r)
		}
	}

	// Sorted-title placement: "A" sits at angle 0.
	for _, ent := range g.Entities {
		if ent.Title == "A" {
			if math.Abs(ent.X-2) > 1e-9 || math.Abs(ent.Y) > 1e-9 {
				t.Errorf("entity A at (%v, %v), want (2, 0)", ent.X, ent.Y)
			}
		}
	}
}

func TestFinalizeLayoutDisabled(t *testing.T) {
	entities := []EntitySeed{{Title: "A"}, {Title: "B"}}

	g, err := Finalize(entities, nil, FinalizeOptions{})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	for _, ent := range g.Entities {
		if ent.X != 0 || ent.Y != 0 {
			t.Errorf("entity %s at (%v, %v), want origin", ent.Title, ent.X, ent.Y)
		}
	}
}

func TestFinalizeAssignsIDsInInputOrder(t *testing.T) {
	entities := []EntitySeed{{Title: "Z"}, {Title: "A"}}
	relationships := []RelationshipSeed{
		{Source: "Z", Target: "A", Type: "REL"},
	}

	g, err := Finalize(entities, relationships, FinalizeOptions{})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	seen := make(map[string]struct{})
	for i, ent := range g.Entities {
		if ent.HumanReadableID != i {
			t.Errorf("entity %d human readable id = %d", i, ent.HumanReadableID)
		}
		if ent.ID == "" {
			t.Errorf("entity %d has empty id", i)
		}
		if _, ok := seen[ent.ID]; ok {
			t.Errorf("duplicate entity id %s", ent.ID)
		}
		seen[ent.ID] = struct{}{}
	}
	if g.Entities[0].Title != "Z" {
		t.Error("entity records must preserve input order")
	}
	if g.Relationships[0].HumanReadableID != 0 || g.Relationships[0].ID == "" {
		t.Error("relationship ids not assigned")
	}
}
