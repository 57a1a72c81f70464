package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/quarrylabs/graphmill/internal/util"
	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/graph"
	"github.com/quarrylabs/graphmill/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Config tunes the extraction pass.
type Config struct {
	// EntityTypes restricts extraction to the given ALL-CAPS type labels.
	// Empty means DefaultEntityTypes.
	EntityTypes []string
	// Concurrency bounds parallel completion calls per extraction pass.
	Concurrency int
	// MaxAttempts is the retry budget per text unit.
	MaxAttempts int
	// Progress, if set, is called after each unit finishes.
	Progress func(done, total int)
}

type extractedEntity struct {
	Title       string `json:"title" jsonschema_description:"Name of the entity, all letters capitalized"`
	Type        string `json:"type" jsonschema_description:"One of the provided entity types"`
	Description string `json:"description" jsonschema_description:"Comprehensive description of the entity's attributes, activities and information provided by the source."`
}

type extractedRelationship struct {
	Source      string  `json:"source" jsonschema_description:"Title of the source entity, as identified in step 1"`
	Target      string  `json:"target" jsonschema_description:"Title of the target entity, as identified in step 1"`
	Type        string  `json:"type" jsonschema_description:"Short ALL-CAPS label for the kind of relationship"`
	Description string  `json:"description" jsonschema_description:"Explanation as to why the source entity and the target entity are related to each other"`
	Weight      float64 `json:"weight" jsonschema_description:"A numeric score indicating strength of the relationship between the source entity and target entity"`
}

type extractResponse struct {
	Entities      []extractedEntity       `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relationships []extractedRelationship `json:"relationships" jsonschema_description:"Relationships identified in the text"`
}

// Extractor turns text units into raw entity and relationship seeds using a
// structured-output completion model.
type Extractor struct {
	client ai.CompletionService
	cfg    Config
}

// New creates an Extractor backed by the given completion service.
func New(client ai.CompletionService, cfg Config) *Extractor {
	if len(cfg.EntityTypes) == 0 {
		cfg.EntityTypes = DefaultEntityTypes
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Extractor{client: client, cfg: cfg}
}

// Extract runs one completion per text unit and merges the per-unit
// observations into deduplicated entity seeds and raw relationship seeds.
// Unit order does not affect the merged entity set: entities are keyed by
// case-insensitive title and emitted in sorted title order.
func (e *Extractor) Extract(
	ctx context.Context,
	units []graph.TextUnitRecord,
) ([]graph.EntitySeed, []graph.RelationshipSeed, error) {
	types := strings.Join(e.cfg.EntityTypes, ",")
	systemPrompt := fmt.Sprintf(extractPrompt, types, types, types)

	responses := make([]extractResponse, len(units))

	var (
		progressMu sync.Mutex
		done       int
	)

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Concurrency)
	for i := range units {
		idx := i
		unit := units[i]
		eg.Go(func() error {
			res, err := util.RetryWithContext(ectx, e.cfg.MaxAttempts, func(rCtx context.Context) (extractResponse, error) {
				var out extractResponse
				err := e.client.CompleteStructured(
					rCtx,
					"extract_entities_and_relationships",
					"Extract entities and relationships from a provided text.",
					unit.Text,
					&out,
					ai.WithSystemPrompts(systemPrompt),
				)
				return out, err
			})
			if err != nil {
				return fmt.Errorf("extraction failed for unit %s: %w", unit.ID, err)
			}
			responses[idx] = res

			if e.cfg.Progress != nil {
				progressMu.Lock()
				done++
				e.cfg.Progress(done, len(units))
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	entities, relationships := mergeResponses(units, responses)
	logger.Info("[Extract] extraction complete",
		"units", len(units), "entities", len(entities), "relationships", len(relationships))
	return entities, relationships, nil
}

// mergeResponses folds per-unit observations into seeds. Entities sharing a
// case-insensitive title are merged: frequency counts observations, text-unit
// ids are unioned in first-seen order, and the longest description wins.
// Relationship observations are kept raw; collapsing duplicates is the job of
// the graph heuristics. Relationships are filtered against the full merged
// entity set, so an edge may reference an entity named by any unit regardless
// of unit order.
func mergeResponses(
	units []graph.TextUnitRecord,
	responses []extractResponse,
) ([]graph.EntitySeed, []graph.RelationshipSeed) {
	entityByTitle := make(map[string]*graph.EntitySeed)

	for i, res := range responses {
		unitID := units[i].ID
		for _, ent := range res.Entities {
			title := strings.TrimSpace(ent.Title)
			if title == "" {
				continue
			}
			key := strings.ToUpper(title)

			seed, ok := entityByTitle[key]
			if !ok {
				seed = &graph.EntitySeed{
					Title: title,
					Type:  ent.Type,
				}
				entityByTitle[key] = seed
			}
			seed.Frequency++
			if len(ent.Description) > len(seed.Description) {
				seed.Description = ent.Description
			}
			if seed.Type == "" {
				seed.Type = ent.Type
			}
			if !containsID(seed.TextUnitIDs, unitID) {
				seed.TextUnitIDs = append(seed.TextUnitIDs, unitID)
			}
		}
	}

	var relationships []graph.RelationshipSeed
	for i, res := range responses {
		unitID := units[i].ID
		for _, rel := range res.Relationships {
			src := strings.TrimSpace(rel.Source)
			tgt := strings.TrimSpace(rel.Target)
			if src == "" || tgt == "" {
				continue
			}
			// Only keep edges between entities the model actually named.
			if _, ok := entityByTitle[strings.ToUpper(src)]; !ok {
				continue
			}
			if _, ok := entityByTitle[strings.ToUpper(tgt)]; !ok {
				continue
			}
			relType := strings.TrimSpace(rel.Type)
			if relType == "" {
				relType = "RELATED"
			}
			relationships = append(relationships, graph.RelationshipSeed{
				Source:        src,
				Target:        tgt,
				Type:          relType,
				Description:   rel.Description,
				Weight:        rel.Weight,
				TextUnitIDs:   []string{unitID},
				Bidirectional: true,
			})
		}
	}

	entities := make([]graph.EntitySeed, 0, len(entityByTitle))
	for _, seed := range entityByTitle {
		entities = append(entities, *seed)
	}
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Title < entities[j].Title
	})
	return entities, relationships
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
