package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quarrylabs/graphmill/internal/util"
	"github.com/quarrylabs/graphmill/pkg/ai"
	"github.com/quarrylabs/graphmill/pkg/cache"
	"github.com/quarrylabs/graphmill/pkg/index"
	"github.com/quarrylabs/graphmill/pkg/logger"
	"github.com/quarrylabs/graphmill/pkg/pipeline"
	"github.com/quarrylabs/graphmill/pkg/store"
	"github.com/quarrylabs/graphmill/pkg/tokenizer"
)

// IndexJob is the payload of one message on the index queue. Prefixes name
// locations inside the configured storage backend; Descriptor optionally
// overrides the default workflow configuration as inline YAML.
type IndexJob struct {
	ProjectID      string `json:"project_id"`
	InputPrefix    string `json:"input_prefix"`
	OutputPrefix   string `json:"output_prefix"`
	PreviousPrefix string `json:"previous_prefix,omitempty"`
	Descriptor     string `json:"descriptor,omitempty"`
}

// ProcessIndexMessage parses an indexing job, wires its storages, and runs
// the full workflow. The first stage error terminates the run and is
// returned so the caller can retry the message.
func ProcessIndexMessage(
	ctx context.Context,
	aiClient ai.Service,
	runCache cache.Cache,
	body string,
) error {
	var job IndexJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return fmt.Errorf("invalid index job: %w", err)
	}
	if job.InputPrefix == "" || job.OutputPrefix == "" {
		return fmt.Errorf("index job requires input_prefix and output_prefix")
	}

	cfg := index.DefaultConfig()
	if job.Descriptor != "" {
		parsed, err := index.ParseConfig([]byte(job.Descriptor))
		if err != nil {
			return err
		}
		cfg = parsed
	}

	tok, err := tokenizer.NewTiktoken(cfg.Chunking.Encoding)
	if err != nil {
		return err
	}

	input, err := newStorage(ctx, job.InputPrefix)
	if err != nil {
		return err
	}
	output, err := newStorage(ctx, job.OutputPrefix)
	if err != nil {
		return err
	}
	var previous store.Storage
	if job.PreviousPrefix != "" {
		previous, err = newStorage(ctx, job.PreviousPrefix)
		if err != nil {
			return err
		}
	}

	p, err := index.NewPipeline(cfg, index.Dependencies{
		Completion: aiClient,
		Embedder:   aiClient,
		Tokenizer:  tok,
	})
	if err != nil {
		return err
	}

	projectCache := runCache
	if job.ProjectID != "" {
		projectCache = runCache.CreateChild(job.ProjectID)
	}
	run := pipeline.NewRunContext(input, output, previous, projectCache, nil)

	logger.Info("Starting index run", "project", job.ProjectID, "input", job.InputPrefix)
	for result := range pipeline.Execute(ctx, p, run) {
		if result.Err != nil {
			return fmt.Errorf("stage %s failed: %w", result.Stage, result.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info("Index run complete",
		"project", job.ProjectID,
		"documents", run.Stats.NumDocuments,
		"runtime_s", run.Stats.TotalRuntimeSeconds,
	)
	return nil
}

// newStorage builds a storage handle for the given prefix from the
// STORAGE_ADAPTER environment: "s3" targets the configured bucket, anything
// else is a directory on the local filesystem.
func newStorage(ctx context.Context, prefix string) (store.Storage, error) {
	if util.GetEnvString("STORAGE_ADAPTER", "file") == "s3" {
		return store.NewS3Storage(ctx, store.S3Params{
			Region:    util.GetEnv("AWS_REGION"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
			Prefix:    prefix,
		})
	}
	return store.NewFileStorage(prefix)
}
