package pipeline

import (
	"github.com/quarrylabs/graphmill/pkg/logger"
)

// ProgressSnapshot reports intermediate progress from inside a stage.
type ProgressSnapshot struct {
	Stage       string `json:"stage"`
	Description string `json:"description,omitempty"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
}

// WorkflowCallbacks receives lifecycle notifications during a pipeline run.
// Implementations must be safe to call from the executor goroutine.
type WorkflowCallbacks interface {
	PipelineStart(stageNames []string)
	PipelineEnd(results []StageResult)
	StageStart(name string)
	StageEnd(name string)
	Progress(snapshot ProgressSnapshot)
}

// CallbackRegistry fans notifications out to zero or more registered
// listeners. A panicking listener is logged and never aborts the run.
type CallbackRegistry struct {
	listeners []WorkflowCallbacks
}

// NewCallbackRegistry creates a registry with the given initial listeners.
func NewCallbackRegistry(listeners ...WorkflowCallbacks) *CallbackRegistry {
	return &CallbackRegistry{listeners: listeners}
}

// Register adds a listener. Not safe to call while a run is in flight.
func (r *CallbackRegistry) Register(cb WorkflowCallbacks) {
	r.listeners = append(r.listeners, cb)
}

func (r *CallbackRegistry) dispatch(fn func(WorkflowCallbacks)) {
	for _, cb := range r.listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("[Pipeline] callback listener panicked", "panic", rec)
				}
			}()
			fn(cb)
		}()
	}
}

// PipelineStart notifies all listeners that the run is starting.
func (r *CallbackRegistry) PipelineStart(stageNames []string) {
	r.dispatch(func(cb WorkflowCallbacks) { cb.PipelineStart(stageNames) })
}

// PipelineEnd notifies all listeners with the full ordered result list.
func (r *CallbackRegistry) PipelineEnd(results []StageResult) {
	r.dispatch(func(cb WorkflowCallbacks) { cb.PipelineEnd(results) })
}

// StageStart notifies all listeners that a stage is starting.
func (r *CallbackRegistry) StageStart(name string) {
	r.dispatch(func(cb WorkflowCallbacks) { cb.StageStart(name) })
}

// StageEnd notifies all listeners that a stage finished, regardless of its
// outcome.
func (r *CallbackRegistry) StageEnd(name string) {
	r.dispatch(func(cb WorkflowCallbacks) { cb.StageEnd(name) })
}

// Progress forwards an intermediate progress snapshot.
func (r *CallbackRegistry) Progress(snapshot ProgressSnapshot) {
	r.dispatch(func(cb WorkflowCallbacks) { cb.Progress(snapshot) })
}
