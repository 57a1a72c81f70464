package graph

import (
	"fmt"
	"math"
	"sort"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// FinalizeOptions controls the optional steps of graph finalization.
type FinalizeOptions struct {
	// Layout places entities on a deterministic circle. When disabled all
	// entities sit at the origin.
	Layout bool
}

// FinalizedGraph holds the canonical output rows of one indexing run.
type FinalizedGraph struct {
	Entities      []EntityRecord       `json:"entities"`
	Relationships []RelationshipRecord `json:"relationships"`
}

// Finalize computes node degree, relationship combined degree, and an
// optional deterministic 2-D layout for the cleaned graph, producing the
// canonical entity and relationship records. It is a pure function of its
// inputs and must be called at most once per seed set: identifiers are
// assigned in input order at finalize time.
func Finalize(
	entities []EntitySeed,
	relationships []RelationshipSeed,
	opts FinalizeOptions,
) (*FinalizedGraph, error) {
	// Undirected multigraph degree: both endpoints count once per seed, so
	// a self-loop contributes 2 to its entity.
	degrees := make(map[string]int, len(entities))
	for _, rel := range relationships {
		degrees[normalizeTitle(rel.Source)]++
		degrees[normalizeTitle(rel.Target)]++
	}

	positions := layoutPositions(entities, opts.Layout)

	entityRecords := make([]EntityRecord, 0, len(entities))
	for i, seed := range entities {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate entity id: %w", err)
		}
		pos := positions[normalizeTitle(seed.Title)]
		entityRecords = append(entityRecords, EntityRecord{
			ID:              id,
			HumanReadableID: i,
			Title:           seed.Title,
			Type:            seed.Type,
			Description:     seed.Description,
			TextUnitIDs:     seed.TextUnitIDs,
			Frequency:       seed.Frequency,
			Degree:          degrees[normalizeTitle(seed.Title)],
			X:               pos[0],
			Y:               pos[1],
		})
	}

	relationshipRecords := make([]RelationshipRecord, 0, len(relationships))
	for i, seed := range relationships {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate relationship id: %w", err)
		}
		relationshipRecords = append(relationshipRecords, RelationshipRecord{
			ID:              id,
			HumanReadableID: i,
			Source:          seed.Source,
			Target:          seed.Target,
			Type:            seed.Type,
			Description:     seed.Description,
			Weight:          seed.Weight,
			TextUnitIDs:     seed.TextUnitIDs,
			CombinedDegree:  degrees[normalizeTitle(seed.Source)] + degrees[normalizeTitle(seed.Target)],
		})
	}

	return &FinalizedGraph{
		Entities:      entityRecords,
		Relationships: relationshipRecords,
	}, nil
}

// layoutPositions places the distinct entity titles evenly around a circle
// of radius max(1, N/2), keyed by normalized title. Titles are sorted first
// so the placement is deterministic regardless of input order.
func layoutPositions(entities []EntitySeed, enabled bool) map[string][2]float64 {
	positions := make(map[string][2]float64, len(entities))
	if !enabled {
		for _, seed := range entities {
			positions[normalizeTitle(seed.Title)] = [2]float64{0, 0}
		}
		return positions
	}

	titles := make([]string, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))
	for _, seed := range entities {
		key := normalizeTitle(seed.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, key)
	}
	sort.Strings(titles)

	n := len(titles)
	if n == 0 {
		return positions
	}
	radius := math.Max(1, float64(n)/2)
	for i, title := range titles {
		angle := 2 * math.Pi * float64(i) / float64(n)
		positions[title] = [2]float64{
			radius * math.Cos(angle),
			radius * math.Sin(angle),
		}
	}
	return positions
}
