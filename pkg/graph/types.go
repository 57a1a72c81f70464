package graph

// EntitySeed is a raw, pre-cleanup entity observation produced by
// extraction. The title is the natural dedup key, compared
// case-insensitively.
type EntitySeed struct {
	Title       string   `json:"title"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	TextUnitIDs []string `json:"text_unit_ids"`
	Frequency   int      `json:"frequency"`
}

// RelationshipSeed is a raw relationship observation between two entity
// titles. Bidirectional relationships are treated as undirected when
// deduplicating.
type RelationshipSeed struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Type          string   `json:"type"`
	Description   string   `json:"description,omitempty"`
	Weight        float64  `json:"weight"`
	TextUnitIDs   []string `json:"text_unit_ids"`
	Bidirectional bool     `json:"bidirectional"`
}

// EntityRecord is a finalized, immutable entity row. Records are created
// once per run by Finalize and never mutated afterwards.
type EntityRecord struct {
	ID              string   `json:"id"`
	HumanReadableID int      `json:"human_readable_id"`
	Title           string   `json:"title"`
	Type            string   `json:"type,omitempty"`
	Description     string   `json:"description,omitempty"`
	TextUnitIDs     []string `json:"text_unit_ids"`
	Frequency       int      `json:"frequency"`
	Degree          int      `json:"degree"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
}

// RelationshipRecord is a finalized, immutable relationship row.
type RelationshipRecord struct {
	ID              string   `json:"id"`
	HumanReadableID int      `json:"human_readable_id"`
	Source          string   `json:"source"`
	Target          string   `json:"target"`
	Type            string   `json:"type"`
	Description     string   `json:"description,omitempty"`
	Weight          float64  `json:"weight"`
	TextUnitIDs     []string `json:"text_unit_ids"`
	CombinedDegree  int      `json:"combined_degree"`
}

// TextUnitRecord is a bounded chunk of source text used as the atomic
// retrieval and provenance unit. Units are created by chunking, possibly
// merged or dropped by the text-unit heuristics, and optionally annotated
// with covariate ids by a later join step.
type TextUnitRecord struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	DocumentIDs  []string `json:"document_ids"`
	TokenCount   int      `json:"token_count"`
	CovariateIDs []string `json:"covariate_ids,omitempty"`
}
