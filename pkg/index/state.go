package index

import (
	"github.com/quarrylabs/graphmill/pkg/graph"
	"github.com/quarrylabs/graphmill/pkg/pipeline"
)

// State keys used to pass intermediate artifacts between stages.
const (
	stateDocuments     = "documents"
	stateTextUnits     = "text_units"
	stateEntities      = "entity_seeds"
	stateRelationships = "relationship_seeds"
)

// document is one loaded input file, pre-chunking.
type document struct {
	ID   string
	Path string
	Text string
}

func documentsToValue(docs []document) pipeline.Value {
	items := make([]pipeline.Value, 0, len(docs))
	for _, doc := range docs {
		items = append(items, pipeline.Map(map[string]pipeline.Value{
			"id":   pipeline.String(doc.ID),
			"path": pipeline.String(doc.Path),
			"text": pipeline.String(doc.Text),
		}))
	}
	return pipeline.List(items...)
}

func documentsFromValue(v pipeline.Value) []document {
	docs := make([]document, 0, len(v.List))
	for _, item := range v.List {
		docs = append(docs, document{
			ID:   item.Map["id"].Str,
			Path: item.Map["path"].Str,
			Text: item.Map["text"].Str,
		})
	}
	return docs
}

func stringsToValue(ids []string) pipeline.Value {
	items := make([]pipeline.Value, 0, len(ids))
	for _, id := range ids {
		items = append(items, pipeline.String(id))
	}
	return pipeline.List(items...)
}

func stringsFromValue(v pipeline.Value) []string {
	out := make([]string, 0, len(v.List))
	for _, item := range v.List {
		out = append(out, item.Str)
	}
	return out
}

func textUnitsToValue(units []graph.TextUnitRecord) pipeline.Value {
	items := make([]pipeline.Value, 0, len(units))
	for _, unit := range units {
		items = append(items, pipeline.Map(map[string]pipeline.Value{
			"id":           pipeline.String(unit.ID),
			"text":         pipeline.String(unit.Text),
			"document_ids": stringsToValue(unit.DocumentIDs),
			"token_count":  pipeline.Number(float64(unit.TokenCount)),
		}))
	}
	return pipeline.List(items...)
}

func textUnitsFromValue(v pipeline.Value) []graph.TextUnitRecord {
	units := make([]graph.TextUnitRecord, 0, len(v.List))
	for _, item := range v.List {
		units = append(units, graph.TextUnitRecord{
			ID:          item.Map["id"].Str,
			Text:        item.Map["text"].Str,
			DocumentIDs: stringsFromValue(item.Map["document_ids"]),
			TokenCount:  int(item.Map["token_count"].Num),
		})
	}
	return units
}

func entitySeedsToValue(seeds []graph.EntitySeed) pipeline.Value {
	items := make([]pipeline.Value, 0, len(seeds))
	for _, seed := range seeds {
		items = append(items, pipeline.Map(map[string]pipeline.Value{
			"title":         pipeline.String(seed.Title),
			"type":          pipeline.String(seed.Type),
			"description":   pipeline.String(seed.Description),
			"text_unit_ids": stringsToValue(seed.TextUnitIDs),
			"frequency":     pipeline.Number(float64(seed.Frequency)),
		}))
	}
	return pipeline.List(items...)
}

func entitySeedsFromValue(v pipeline.Value) []graph.EntitySeed {
	seeds := make([]graph.EntitySeed, 0, len(v.List))
	for _, item := range v.List {
		seeds = append(seeds, graph.EntitySeed{
			Title:       item.Map["title"].Str,
			Type:        item.Map["type"].Str,
			Description: item.Map["description"].Str,
			TextUnitIDs: stringsFromValue(item.Map["text_unit_ids"]),
			Frequency:   int(item.Map["frequency"].Num),
		})
	}
	return seeds
}

func relationshipSeedsToValue(seeds []graph.RelationshipSeed) pipeline.Value {
	items := make([]pipeline.Value, 0, len(seeds))
	for _, seed := range seeds {
		items = append(items, pipeline.Map(map[string]pipeline.Value{
			"source":        pipeline.String(seed.Source),
			"target":        pipeline.String(seed.Target),
			"type":          pipeline.String(seed.Type),
			"description":   pipeline.String(seed.Description),
			"weight":        pipeline.Number(seed.Weight),
			"text_unit_ids": stringsToValue(seed.TextUnitIDs),
			"bidirectional": pipeline.Bool(seed.Bidirectional),
		}))
	}
	return pipeline.List(items...)
}

func relationshipSeedsFromValue(v pipeline.Value) []graph.RelationshipSeed {
	seeds := make([]graph.RelationshipSeed, 0, len(v.List))
	for _, item := range v.List {
		seeds = append(seeds, graph.RelationshipSeed{
			Source:        item.Map["source"].Str,
			Target:        item.Map["target"].Str,
			Type:          item.Map["type"].Str,
			Description:   item.Map["description"].Str,
			Weight:        item.Map["weight"].Num,
			TextUnitIDs:   stringsFromValue(item.Map["text_unit_ids"]),
			Bidirectional: item.Map["bidirectional"].Bool,
		})
	}
	return seeds
}
