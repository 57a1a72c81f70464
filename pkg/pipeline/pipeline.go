package pipeline

import (
	"context"
)

// StageOutput is the successful product of one stage. Stop requests a
// normal early termination of the run without treating it as a failure.
type StageOutput struct {
	Value Value
	Stop  bool
}

// StageResult is one entry of the executor's result stream: the stage name
// plus either a value or an error.
type StageResult struct {
	Stage string `json:"stage"`
	Value Value  `json:"value,omitempty"`
	Err   error  `json:"-"`
}

// StageFunc is one named unit of pipeline work operating over the shared run
// context. Implementations must not run when ctx is already cancelled and
// must observe cancellation at their next suspension point.
type StageFunc func(ctx context.Context, run *RunContext) (StageOutput, error)

// Step pairs a stage name with its function.
type Step struct {
	Name string
	Fn   StageFunc
}

// WorkflowPipeline is an ordered, named list of stages. It is built once per
// run; steps may be removed before execution but not reordered.
type WorkflowPipeline struct {
	Name  string
	Steps []Step
}

// New creates a pipeline with the given name and steps.
func New(name string, steps ...Step) *WorkflowPipeline {
	return &WorkflowPipeline{Name: name, Steps: steps}
}

// Remove drops the named steps, preserving the order of the remainder.
func (p *WorkflowPipeline) Remove(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	kept := p.Steps[:0]
	for _, step := range p.Steps {
		if _, ok := drop[step.Name]; ok {
			continue
		}
		kept = append(kept, step)
	}
	p.Steps = kept
}

// StageNames returns the ordered names of the remaining steps.
func (p *WorkflowPipeline) StageNames() []string {
	names := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		names = append(names, step.Name)
	}
	return names
}
