package graph

import (
	"fmt"
	"sort"
	"strings"
)

// HeuristicsConfig tunes the graph cleanup heuristics.
type HeuristicsConfig struct {
	// MergeRelationships collapses duplicate relationship observations.
	MergeRelationships bool
	// MinWeight is the confidence floor applied to merged and synthesized
	// relationship weights.
	MinWeight float64
	// MaxTextUnitIDs caps how many provenance text units a relationship
	// carries after merging.
	MaxTextUnitIDs int
	// LinkOrphans synthesizes edges for entities left without any
	// relationship after merging.
	LinkOrphans bool
	// MinOverlapRatio is the minimum text-unit overlap ratio required to
	// link an orphan to a candidate entity.
	MinOverlapRatio float64
}

// relTypeRelated is the type assigned to synthesized co-occurrence edges.
const relTypeRelated = "RELATED"

// ApplyHeuristics takes raw candidate entities and relationships already
// produced by extraction, merges duplicate relationships, re-weights
// confidence, and synthesizes missing edges for orphaned entities using
// text-unit co-occurrence. Output ordering is deterministic for identical
// input.
func ApplyHeuristics(
	entities []EntitySeed,
	relationships []RelationshipSeed,
	textUnits []TextUnitRecord,
	cfg HeuristicsConfig,
) ([]EntitySeed, []RelationshipSeed) {
	if cfg.MergeRelationships {
		relationships = mergeRelationships(relationships, cfg)
	}
	if cfg.LinkOrphans {
		relationships = linkOrphans(entities, relationships, textUnits, cfg)
	}
	return entities, relationships
}

func normalizeTitle(title string) string {
	return strings.ToUpper(strings.TrimSpace(title))
}

// relationshipKey canonicalizes a relationship for dedup. Bidirectional
// pairs are sorted so (A,B) and (B,A) collapse together.
func relationshipKey(rel RelationshipSeed) string {
	src := normalizeTitle(rel.Source)
	tgt := normalizeTitle(rel.Target)
	if rel.Bidirectional && tgt < src {
		src, tgt = tgt, src
	}
	return src + "|" + tgt + "|" + normalizeTitle(rel.Type)
}

// mergeRelationships groups relationship seeds by their canonical
// (source, target, type) key. Within a group the weight is the arithmetic
// mean floored at the configured minimum, the description is the shortest
// non-empty candidate, and the text-unit ids are the sorted union capped at
// the configured maximum.
func mergeRelationships(relationships []RelationshipSeed, cfg HeuristicsConfig) []RelationshipSeed {
	type group struct {
		first       RelationshipSeed
		weightSum   float64
		count       int
		description string
		unitIDs     map[string]struct{}
	}

	groups := make(map[string]*group)
	var order []string
	for _, rel := range relationships {
		key := relationshipKey(rel)
		g, ok := groups[key]
		if !ok {
			g = &group{
				first:   rel,
				unitIDs: make(map[string]struct{}),
			}
			groups[key] = g
			order = append(order, key)
		}

		g.weightSum += rel.Weight
		g.count++
		if g.first.Bidirectional != rel.Bidirectional && rel.Bidirectional {
			g.first.Bidirectional = true
		}
		desc := strings.TrimSpace(rel.Description)
		if desc != "" && (g.description == "" || len(desc) < len(g.description)) {
			g.description = desc
		}
		for _, id := range rel.TextUnitIDs {
			g.unitIDs[id] = struct{}{}
		}
	}

	merged := make([]RelationshipSeed, 0, len(groups))
	for _, key := range order {
		g := groups[key]

		weight := g.weightSum / float64(g.count)
		if weight < cfg.MinWeight {
			weight = cfg.MinWeight
		}

		ids := make([]string, 0, len(g.unitIDs))
		for id := range g.unitIDs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if cfg.MaxTextUnitIDs > 0 && len(ids) > cfg.MaxTextUnitIDs {
			ids = ids[:cfg.MaxTextUnitIDs]
		}

		out := g.first
		out.Weight = weight
		out.Description = g.description
		out.TextUnitIDs = ids
		merged = append(merged, out)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Source != merged[j].Source {
			return merged[i].Source < merged[j].Source
		}
		if merged[i].Target != merged[j].Target {
			return merged[i].Target < merged[j].Target
		}
		return merged[i].Type < merged[j].Type
	})
	return merged
}

// linkOrphans finds entities with zero edges after merging and wires each to
// the entity it shares the most text units with, provided the overlap ratio
// meets the configured threshold. Orphans are visited in sorted title order
// so the greedy choice is deterministic.
func linkOrphans(
	entities []EntitySeed,
	relationships []RelationshipSeed,
	textUnits []TextUnitRecord,
	cfg HeuristicsConfig,
) []RelationshipSeed {
	degrees := make(map[string]int)
	existing := make(map[string]struct{}, len(relationships))
	for _, rel := range relationships {
		degrees[normalizeTitle(rel.Source)]++
		degrees[normalizeTitle(rel.Target)]++
		existing[relationshipKey(rel)] = struct{}{}
	}

	unitTokens := make(map[string]int, len(textUnits))
	for _, unit := range textUnits {
		unitTokens[unit.ID] = unit.TokenCount
	}

	sorted := make([]EntitySeed, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Title < sorted[j].Title
	})

	for _, orphan := range sorted {
		// A previous synthesis in this pass may already have wired this
		// entity up.
		if degrees[normalizeTitle(orphan.Title)] > 0 {
			continue
		}
		if len(orphan.TextUnitIDs) == 0 {
			continue
		}

		orphanUnits := make(map[string]struct{}, len(orphan.TextUnitIDs))
		for _, id := range orphan.TextUnitIDs {
			orphanUnits[id] = struct{}{}
		}

		var best *EntitySeed
		var bestRatio float64
		var bestShared []string
		for i := range sorted {
			candidate := &sorted[i]
			if normalizeTitle(candidate.Title) == normalizeTitle(orphan.Title) {
				continue
			}
			if len(candidate.TextUnitIDs) == 0 {
				continue
			}

			var shared []string
			for _, id := range candidate.TextUnitIDs {
				if _, ok := orphanUnits[id]; ok {
					shared = append(shared, id)
				}
			}
			if len(shared) == 0 {
				continue
			}

			ratio := float64(len(shared)) / float64(min(len(orphanUnits), len(candidate.TextUnitIDs)))
			if ratio > bestRatio {
				bestRatio = ratio
				best = candidate
				bestShared = shared
			}
		}

		if best == nil || bestRatio < cfg.MinOverlapRatio {
			continue
		}

		provenance := bestShared
		if len(provenance) == 0 {
			provenance = append([]string(nil), orphan.TextUnitIDs...)
		}
		provenance = rankUnitsByTokens(provenance, unitTokens)
		if cfg.MaxTextUnitIDs > 0 && len(provenance) > cfg.MaxTextUnitIDs {
			provenance = provenance[:cfg.MaxTextUnitIDs]
		}

		weight := bestRatio
		if weight < cfg.MinWeight {
			weight = cfg.MinWeight
		}

		rel := RelationshipSeed{
			Source:        orphan.Title,
			Target:        best.Title,
			Type:          relTypeRelated,
			Description:   fmt.Sprintf("%s and %s appear in the same source text", orphan.Title, best.Title),
			Weight:        weight,
			TextUnitIDs:   provenance,
			Bidirectional: true,
		}

		key := relationshipKey(rel)
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		degrees[normalizeTitle(rel.Source)]++
		degrees[normalizeTitle(rel.Target)]++
		relationships = append(relationships, rel)
	}

	return relationships
}

// rankUnitsByTokens orders text-unit ids by descending token count, breaking
// ties by id so the ranking is stable.
func rankUnitsByTokens(ids []string, tokens map[string]int) []string {
	ranked := make([]string, len(ids))
	copy(ranked, ids)
	sort.Slice(ranked, func(i, j int) bool {
		if tokens[ranked[i]] != tokens[ranked[j]] {
			return tokens[ranked[i]] > tokens[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}
