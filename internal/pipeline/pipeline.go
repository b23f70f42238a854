// Package pipeline runs one change request end to end: ask the assistant,
// bundle its entities, publish the archive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/assistant"
	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/pkg/bundler"
	"github.com/mrhapile/metadeploy/pkg/types"
)

// Stage names reported in RunError.
const (
	StageAssistant = "assistant"
	StageBundle    = "bundle"
	StagePublish   = "publish"
)

// Request is a natural-language change request.
type Request struct {
	Summary     string `json:"jira_summary"`
	Description string `json:"jira_description"`
}

// Outcome describes a successful run.
type Outcome struct {
	RunID    string
	Location string // deployment status URL, pushed ref or archive path
	Bundle   *types.BundleResult
}

// RunError is the single failure a run surfaces.
type RunError struct {
	RunID string
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Pipeline wires the collaborators of a run. A Pipeline must not run
// concurrently against the same work dir; callers serialize.
type Pipeline struct {
	settings  *config.Settings
	assistant assistant.Assistant
	publisher Publisher
	logger    *zap.Logger
}

// New creates a pipeline. logger may be nil.
func New(settings *config.Settings, a assistant.Assistant, p Publisher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{settings: settings, assistant: a, publisher: p, logger: logger}
}

// Run processes req. Any failure aborts the remaining steps.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	if strings.TrimSpace(req.Summary) == "" && strings.TrimSpace(req.Description) == "" {
		return nil, errors.New("summary or description is required")
	}
	if p.assistant == nil {
		return nil, errors.New("no assistant configured")
	}
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run", runID))

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	log.Info("querying assistant", zap.String("summary", req.Summary))
	batch, err := p.assistant.Generate(ctx, assistant.BuildPrompt(req.Summary, req.Description))
	if err != nil {
		return nil, p.fail(log, runID, StageAssistant, err)
	}

	return p.publish(ctx, log, runID, batch, commitMessage(req.Summary))
}

// RunBatch bundles and publishes an already decoded batch.
func (p *Pipeline) RunBatch(ctx context.Context, batch *types.Batch, message string) (*Outcome, error) {
	runID := uuid.NewString()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.publish(ctx, p.logger.With(zap.String("run", runID)), runID, batch, message)
}

func (p *Pipeline) publish(ctx context.Context, log *zap.Logger, runID string, batch *types.Batch, message string) (*Outcome, error) {
	opts := append(p.settings.BundleOptions(), bundler.WithLogger(log))
	bundle, err := bundler.Build(batch.Metadata, opts...)
	if err != nil {
		return nil, p.fail(log, runID, StageBundle, err)
	}

	location, err := p.publisher.Publish(ctx, bundle, message)
	if err != nil {
		return nil, p.fail(log, runID, StagePublish, err)
	}

	log.Info("process completed", zap.String("location", location))
	return &Outcome{RunID: runID, Location: location, Bundle: bundle}, nil
}

func (p *Pipeline) fail(log *zap.Logger, runID, stage string, err error) error {
	log.Error("run failed", zap.String("stage", stage), zap.Error(err))
	return &RunError{RunID: runID, Stage: stage, Err: err}
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.settings.Timeout > 0 {
		return context.WithTimeout(ctx, p.settings.Timeout)
	}
	return context.WithCancel(ctx)
}

func commitMessage(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "Update metadata"
	}
	return summary
}
