package pipeline

import (
	"github.com/quarrylabs/graphmill/pkg/cache"
	"github.com/quarrylabs/graphmill/pkg/store"
)

// RunStats collects timing information for one run. The executor is the only
// writer; stages may read it.
type RunStats struct {
	TotalRuntimeSeconds float64            `json:"total_runtime"`
	NumDocuments        int                `json:"num_documents"`
	Workflows           map[string]float64 `json:"workflows"`
}

// NewRunStats creates an empty stats record.
func NewRunStats() *RunStats {
	return &RunStats{Workflows: make(map[string]float64)}
}

// RunContext is the per-run state bundle shared by all stages. It is owned
// exclusively by one run and discarded at run end. Sequential stage
// execution makes State single-writer; the storage and cache handles may be
// shared across runs and are internally safe for concurrent use.
type RunContext struct {
	Input    store.Storage
	Output   store.Storage
	Previous store.Storage

	Cache     cache.Cache
	Callbacks *CallbackRegistry
	Stats     *RunStats
	State     State
}

// NewRunContext creates a run context with empty state and a fresh callback
// registry when none is given.
func NewRunContext(input, output, previous store.Storage, c cache.Cache, callbacks *CallbackRegistry) *RunContext {
	if callbacks == nil {
		callbacks = NewCallbackRegistry()
	}
	return &RunContext{
		Input:     input,
		Output:    output,
		Previous:  previous,
		Cache:     c,
		Callbacks: callbacks,
		Stats:     NewRunStats(),
		State:     make(State),
	}
}
