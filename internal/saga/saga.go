// Package saga runs an ordered list of dependent creation steps with a
// compensation stack. Every committed step may push its inverse; when a
// later step fails, the pushed inverses run in strict reverse order of
// completion before the original error is reported.
package saga

import (
	"context"
	"sync"
	"time"

	"github.com/portalcadastro/cadastro-api/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("saga")

// CompensateFunc undoes a committed step. It must be idempotent: undoing a
// step that was already undone (or never fully materialized) is success.
type CompensateFunc func(ctx context.Context) error

// Step is one unit of work. On success it may return a compensation to be
// pushed; returning nil means the step needs no undo (e.g. a local hash).
type Step struct {
	Label string
	Do    func(ctx context.Context) (CompensateFunc, error)
}

// Stage groups steps that are mutually independent. Stages run in order;
// steps inside a stage run concurrently and must all succeed before the
// next stage starts.
type Stage struct {
	Label string
	Steps []Step
}

// Parallel builds a stage from independent steps.
func Parallel(label string, steps ...Step) Stage {
	return Stage{Label: label, Steps: steps}
}

// Single builds a one-step stage.
func Single(label string, do func(ctx context.Context) (CompensateFunc, error)) Stage {
	return Stage{Label: label, Steps: []Step{{Label: label, Do: do}}}
}

type undoRecord struct {
	label string
	fn    CompensateFunc
}

// Saga executes stages for one registration attempt.
type Saga struct {
	attemptID string
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu   sync.Mutex
	undo []undoRecord
}

// New creates a saga for a single attempt. The attempt id travels through
// every step and compensation log line.
func New(metrics *observability.Metrics, logger *zap.Logger) *Saga {
	id := uuid.New().String()
	return &Saga{
		attemptID: id,
		metrics:   metrics,
		logger:    logger.With(zap.String("attempt_id", id)),
	}
}

// AttemptID returns the attempt correlation id.
func (s *Saga) AttemptID() string {
	return s.attemptID
}

// Execute runs the stages in order. On the first failure it compensates
// everything committed so far and returns the failing step's error
// unchanged; compensation failures never replace it.
func (s *Saga) Execute(ctx context.Context, stages ...Stage) error {
	for _, stage := range stages {
		if err := s.runStage(ctx, stage); err != nil {
			s.Compensate(ctx)
			return err
		}
	}
	return nil
}

func (s *Saga) runStage(ctx context.Context, stage Stage) error {
	ctx, span := tracer.Start(ctx, "saga."+stage.Label)
	defer span.End()
	span.SetAttributes(attribute.String("attempt.id", s.attemptID))

	if len(stage.Steps) == 1 {
		return s.runStep(ctx, stage.Steps[0])
	}

	// Independent steps: issue all, join all. A sibling that committed
	// while another failed still pushes its undo, so compensation covers it.
	g, gCtx := errgroup.WithContext(ctx)
	for _, step := range stage.Steps {
		step := step
		g.Go(func() error {
			return s.runStep(gCtx, step)
		})
	}
	return g.Wait()
}

func (s *Saga) runStep(ctx context.Context, step Step) error {
	start := time.Now()
	undo, err := step.Do(ctx)
	s.metrics.ObserveStep(step.Label, time.Since(start))
	if err != nil {
		s.logger.Warn("saga: step failed",
			zap.String("step", step.Label),
			zap.Error(err),
		)
		return err
	}
	if undo != nil {
		s.mu.Lock()
		s.undo = append(s.undo, undoRecord{label: step.Label, fn: undo})
		s.mu.Unlock()
	}
	s.logger.Debug("saga: step committed", zap.String("step", step.Label))
	return nil
}

// Compensate pops and executes the pushed inverses in reverse order of
// completion. Failures are logged and counted, never returned: the caller
// always reports the original step error. The parent's cancellation is
// detached so a timed-out attempt can still roll back, bounded per undo.
func (s *Saga) Compensate(ctx context.Context) {
	s.mu.Lock()
	undo := s.undo
	s.undo = nil
	s.mu.Unlock()

	if len(undo) == 0 {
		return
	}

	base := context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		rec := undo[i]
		s.metrics.IncrCompensation(rec.label)

		undoCtx, cancel := context.WithTimeout(base, 10*time.Second)
		err := rec.fn(undoCtx)
		cancel()

		if err != nil {
			s.metrics.IncrCompensationFailure(rec.label)
			s.logger.Error("saga: compensation failed",
				zap.String("step", rec.label),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("saga: step compensated", zap.String("step", rec.label))
	}
}
