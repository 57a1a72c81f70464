package extract

// DefaultEntityTypes is used when no custom entity types are configured.
var DefaultEntityTypes = []string{
	"ORGANIZATION", "PERSON", "LOCATION", "CONCEPT", "CREATIVE_WORK", "DATE", "PRODUCT", "EVENT",
}

const extractPrompt = `
# Task Context
You are tasked with extracting **structured entity and relationship information** from the provided text. The process must capture **all details explicitly present in the text**, without omission.

# Background Data
- **Entity_types:** [%s]

## Entity Extraction
1. Identify all entities of the specified types [%s].
2. For each entity, extract:
   - **title:** The name of the entity, written in **ALL CAPITAL LETTERS**.
   - **type:** One of the provided types [%s].
   - **description:** A comprehensive description of all attributes, roles, activities, events, timelines, frequencies, or other explicit details in the text. Do **not** omit any explicit information.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** title of the source entity.
   - **target:** title of the target entity.
   - **type:** a short ALL-CAPS label for the kind of relationship (e.g. WORKS_FOR, LOCATED_IN, RELATED).
   - **description:** detailed explanation of how and why the entities are related, based strictly on the text.
   - **weight:** a numeric score (0.0-1.0) indicating the strength of the relationship (higher = stronger).
3. If the text only describes a single entity, return an **empty array** for "relationships".

# Output Formatting
Output must be valid JSON only (no commentary, no extra text).
`
