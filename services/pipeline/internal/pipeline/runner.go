// Package pipeline runs the load, clean and analytics stages. Every stage
// reads its inputs back from the store, so each can be re-run on its own.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jobmart/common/telemetry"
	"jobmart/services/pipeline/internal/aggregator"
	"jobmart/services/pipeline/internal/checkpoint"
	"jobmart/services/pipeline/internal/events"
	"jobmart/services/pipeline/internal/loader"
	"jobmart/services/pipeline/internal/models"
	"jobmart/services/pipeline/internal/normalizer"
	"jobmart/services/pipeline/internal/store"
	"jobmart/services/pipeline/internal/table"
)

var tracer = telemetry.GetTracer("jobmart/pipeline")

type Runner struct {
	loader      *loader.Loader
	normalizer  *normalizer.Normalizer
	aggregator  *aggregator.Aggregator
	store       store.Store
	checkpoints *checkpoint.Store
	publisher   events.Publisher
	logger      *zap.Logger

	newRunID func() string
	now      func() time.Time
}

func NewRunner(
	l *loader.Loader,
	n *normalizer.Normalizer,
	a *aggregator.Aggregator,
	s store.Store,
	cp *checkpoint.Store,
	pub events.Publisher,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		loader:      l,
		normalizer:  n,
		aggregator:  a,
		store:       s,
		checkpoints: cp,
		publisher:   pub,
		logger:      logger,
		newRunID:    uuid.NewString,
		now:         time.Now,
	}
}

// Load parses every source file and replaces the raw tables.
func (r *Runner) Load(ctx context.Context) error {
	return r.runStage(ctx, r.newRunID(), checkpoint.StageLoad)
}

// Clean rebuilds the clean model from the stored raw tables.
func (r *Runner) Clean(ctx context.Context) error {
	return r.runStage(ctx, r.newRunID(), checkpoint.StageClean)
}

// Analytics rebuilds the analytics tables from the stored clean model.
func (r *Runner) Analytics(ctx context.Context) error {
	return r.runStage(ctx, r.newRunID(), checkpoint.StageAnalytics)
}

// Run executes the stages from `from` through analytics under one run id,
// stopping at the first failure.
func (r *Runner) Run(ctx context.Context, from checkpoint.Stage) error {
	runID := r.newRunID()
	logger := r.logger.With(zap.String("run_id", runID))

	stages := append([]checkpoint.Stage{from}, checkpoint.Downstream(from)...)
	logger.Info("pipeline run started", zap.String("from", string(from)))
	started := r.now()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStage(ctx, runID, stage); err != nil {
			logger.Error("pipeline run failed", zap.String("stage", string(stage)), zap.Error(err))
			return err
		}
	}

	logger.Info("pipeline run finished", zap.Duration("duration", r.now().Sub(started)))
	return nil
}

// Resume runs from the first stage without a completed checkpoint. It does
// nothing when the last run completed every stage.
func (r *Runner) Resume(ctx context.Context) error {
	from, done, err := r.checkpoints.ResumeFrom(ctx)
	if err != nil {
		return err
	}
	if done {
		r.logger.Info("every stage is complete, nothing to resume")
		return nil
	}
	r.logger.Info("resuming pipeline", zap.String("from", string(from)))
	return r.Run(ctx, from)
}

func (r *Runner) build(ctx context.Context, stage checkpoint.Stage) ([]*table.Table, error) {
	switch stage {
	case checkpoint.StageLoad:
		raw, err := r.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		tables := make([]*table.Table, 0, len(models.RawSchemas))
		for _, schema := range models.RawSchemas {
			tables = append(tables, raw.Get(schema))
		}
		return tables, nil

	case checkpoint.StageClean:
		tables, err := store.ReadAll(ctx, r.store, models.RawSchemas)
		if err != nil {
			return nil, err
		}
		raw := make(models.RawSet, len(tables))
		for _, t := range tables {
			raw[t.Schema.Name] = t
		}
		model, err := r.normalizer.Normalize(raw)
		if err != nil {
			return nil, err
		}
		return model.Tables(), nil

	case checkpoint.StageAnalytics:
		tables, err := store.ReadAll(ctx, r.store, models.CleanSchemas)
		if err != nil {
			return nil, err
		}
		model, err := models.CleanModelFromTables(tables)
		if err != nil {
			return nil, err
		}
		return r.aggregator.Aggregate(model).Tables(), nil
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

// runStage computes every output table of the stage before replacing the
// first one, so a failing stage leaves the store untouched.
func (r *Runner) runStage(ctx context.Context, runID string, stage checkpoint.Stage) (err error) {
	ctx, span := tracer.Start(ctx, "stage."+string(stage))
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(
		telemetry.String("run_id", runID),
		telemetry.String("stage", string(stage)),
	)

	logger := r.logger.With(zap.String("run_id", runID), zap.String("stage", string(stage)))
	logger.Info("stage started")
	started := r.now()
	rec := checkpoint.Record{RunID: runID, Stage: stage}

	defer func() {
		if err == nil {
			return
		}
		rec.FinishedAt = r.now()
		if cpErr := r.checkpoints.Fail(ctx, rec, err); cpErr != nil {
			logger.Warn("failed to record stage failure", zap.Error(cpErr))
		}
	}()

	tables, err := r.build(ctx, stage)
	if err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}
	if err := store.ReplaceAll(ctx, r.store, tables); err != nil {
		return fmt.Errorf("%s stage: %w", stage, err)
	}

	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		counts[t.Schema.Name] = t.Len()
	}
	rec.Tables = counts
	rec.FinishedAt = r.now()
	if err := r.checkpoints.Complete(ctx, rec); err != nil {
		return err
	}

	duration := rec.FinishedAt.Sub(started)
	span.SetAttributes(telemetry.Int("tables", len(tables)))
	logger.Info("stage finished",
		zap.Int("tables", len(tables)),
		zap.Duration("duration", duration))

	event := events.StageCompleted{
		RunID:      runID,
		Stage:      string(stage),
		Tables:     counts,
		DurationMS: duration.Milliseconds(),
		FinishedAt: rec.FinishedAt,
	}
	if pubErr := r.publisher.PublishStageCompleted(ctx, event); pubErr != nil {
		logger.Warn("failed to publish stage event", zap.Error(pubErr))
	}
	return nil
}
