package pipeline

import (
	"context"
	"time"

	"github.com/quarrylabs/graphmill/pkg/logger"
)

// Execute runs the pipeline's stages strictly in order against the shared
// run context, streaming one StageResult per started stage. A stage error
// halts the run after its result is yielded; a Stop output halts it without
// error. If ctx is already cancelled when a stage would start, the stage is
// not invoked and the stream closes without a result for it.
//
// The returned channel is closed once the run terminates.
func Execute(ctx context.Context, p *WorkflowPipeline, run *RunContext) <-chan StageResult {
	results := make(chan StageResult)

	go func() {
		defer close(results)

		run.Callbacks.PipelineStart(p.StageNames())
		runStart := time.Now()

		var yielded []StageResult
		for _, step := range p.Steps {
			if ctx.Err() != nil {
				logger.Warn("[Pipeline] run cancelled", "pipeline", p.Name, "before", step.Name)
				break
			}

			logger.Info("[Pipeline] running stage", "pipeline", p.Name, "stage", step.Name)
			run.Callbacks.StageStart(step.Name)

			start := time.Now()
			output, err := step.Fn(ctx, run)
			run.Stats.Workflows[step.Name] = time.Since(start).Seconds()

			run.Callbacks.StageEnd(step.Name)

			result := StageResult{Stage: step.Name, Value: output.Value, Err: err}
			yielded = append(yielded, result)

			select {
			case results <- result:
			case <-ctx.Done():
				run.Stats.TotalRuntimeSeconds = time.Since(runStart).Seconds()
				run.Callbacks.PipelineEnd(yielded)
				return
			}

			if err != nil {
				logger.Error("[Pipeline] stage failed", "pipeline", p.Name, "stage", step.Name, "err", err)
				break
			}
			if output.Stop {
				logger.Info("[Pipeline] stage requested stop", "pipeline", p.Name, "stage", step.Name)
				break
			}
		}

		run.Stats.TotalRuntimeSeconds = time.Since(runStart).Seconds()
		run.Callbacks.PipelineEnd(yielded)
	}()

	return results
}
