// Package pipeline runs the two stages of a run: compose one artifact per
// subject, then deliver every pending artifact in one batch.
package pipeline

import (
	"context"
	"log/slog"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/collector"
	"pdfcourier/internal/composer"
	"pdfcourier/internal/dispatcher"
	"pdfcourier/internal/store"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Trigger sources recorded on reports.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Collector enumerates subjects and their images.
type Collector interface {
	ListSubjects() ([]string, error)
	ListImages(subject string) ([]collector.SourceImage, error)
}

// Composer builds a subject's document.
type Composer interface {
	Compose(subject string, images []collector.SourceImage) (*composer.Document, error)
}

// Store persists artifacts.
type Store interface {
	Get(id string) (store.Artifact, error)
	Save(id string, data []byte) (store.Artifact, error)
	List() ([]store.Artifact, error)
}

// Dispatcher delivers a batch of artifacts.
type Dispatcher interface {
	Run(ctx context.Context, artifacts []store.Artifact) (*dispatcher.Report, error)
}

// MetricsRecorder is an optional interface for recording run metrics.
type MetricsRecorder interface {
	RecordRunStarted(ctx context.Context)
	RecordRunCompleted(ctx context.Context, outcome string, durationSeconds float64)
	RecordRunSkipped(ctx context.Context)
	RecordSubjectComposed(ctx context.Context, pages int)
	RecordCompositionError(ctx context.Context, kind string)
}

// Config holds configuration for the runner.
type Config struct {
	// OverwritePending recomposes subjects whose artifact is still awaiting
	// delivery. When false such artifacts are delivered as they are.
	OverwritePending bool
}

// Runner executes runs one at a time. A run requested while another holds
// the guard is rejected, never queued or run concurrently.
type Runner struct {
	cfg        Config
	collector  Collector
	composer   Composer
	store      Store
	dispatcher Dispatcher
	metrics    MetricsRecorder
	logger     *slog.Logger

	guard  *semaphore.Weighted
	active atomic.Bool

	mu   sync.RWMutex
	last *RunReport

	// Asynchronous runs started by Trigger. closing is guarded by mu and set
	// by Shutdown before it waits on wg.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closing bool

	now   func() time.Time
	newID func() string
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(cfg Config, c Collector, comp Composer, s Store, d Dispatcher, metrics MetricsRecorder) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:        cfg,
		collector:  c,
		composer:   comp,
		store:      s,
		dispatcher: d,
		metrics:    metrics,
		logger:     slog.With("component", "pipeline"),
		guard:      semaphore.NewWeighted(1),
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run executes a run synchronously. It returns an ErrConflict error when
// another run is in progress, and ctx.Err() alongside the partial report
// when cancelled. Subject and artifact failures are recorded on the report,
// not returned.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	if !r.acquire(ctx) {
		return nil, apperrors.Conflict("run", "a run is already in progress")
	}
	defer r.release()

	report := r.execute(ctx, r.newID(), TriggerScheduled)
	if report.Outcome == OutcomeCancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// Trigger starts a run in the background and returns its ID. The run is not
// bound to ctx; it ends with the runner's Shutdown. Once Shutdown has been
// called it returns an ErrUnavailable error.
func (r *Runner) Trigger(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing {
		return "", apperrors.Unavailable("run", "runner is shutting down")
	}
	if !r.acquire(ctx) {
		return "", apperrors.Conflict("run", "a run is already in progress")
	}

	id := r.newID()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release()
		r.execute(r.ctx, id, TriggerManual)
	}()
	return id, nil
}

// Last returns the report of the most recently finished run.
func (r *Runner) Last() (*RunReport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.last != nil
}

// Running reports whether a run currently holds the guard.
func (r *Runner) Running() bool {
	return r.active.Load()
}

// Shutdown refuses further triggers and waits for background runs to finish.
// When ctx ends first, they are cancelled at their next subject or artifact
// boundary and ctx.Err() is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Runner) acquire(ctx context.Context) bool {
	if !r.guard.TryAcquire(1) {
		r.logger.Warn("Run skipped, another run is in progress")
		if r.metrics != nil {
			r.metrics.RecordRunSkipped(ctx)
		}
		return false
	}
	r.active.Store(true)
	return true
}

func (r *Runner) release() {
	r.active.Store(false)
	r.guard.Release(1)
}

func (r *Runner) execute(ctx context.Context, runID, trigger string) *RunReport {
	logger := r.logger.With("runId", runID)
	report := &RunReport{
		RunID:               runID,
		Trigger:             trigger,
		StartedAt:           r.now(),
		Composed:            []ComposedSubject{},
		Retained:            []string{},
		CompositionFailures: []SubjectFailure{},
	}
	if r.metrics != nil {
		r.metrics.RecordRunStarted(ctx)
	}
	logger.Info("Run started", "trigger", trigger)

	r.compose(ctx, logger, report)

	cancelled := ctx.Err() != nil
	if !cancelled {
		r.deliver(ctx, logger, report)
		cancelled = ctx.Err() != nil
	}

	report.FinishedAt = r.now()
	report.Outcome = report.outcome(cancelled)
	if r.metrics != nil {
		r.metrics.RecordRunCompleted(ctx, report.Outcome, report.Duration().Seconds())
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	logger.Info("Run finished",
		"outcome", report.Outcome,
		"composed", len(report.Composed),
		"retained", len(report.Retained),
		"compositionFailures", len(report.CompositionFailures),
		"duration", report.Duration(),
	)
	return report
}

// compose builds one artifact per subject, strictly in sequence. A failing
// subject is recorded and never affects its siblings.
func (r *Runner) compose(ctx context.Context, logger *slog.Logger, report *RunReport) {
	subjects, err := r.collector.ListSubjects()
	if err != nil {
		// Pending artifacts from earlier runs are still delivered.
		logger.Error("Failed to list subjects", "error", err)
		report.CollectionError = err.Error()
		return
	}

	for _, subject := range subjects {
		if ctx.Err() != nil {
			logger.Warn("Run cancelled during composition", "subject", subject)
			return
		}
		slogger := logger.With("subject", subject)

		if !r.cfg.OverwritePending {
			if pending, err := r.store.Get(subject); err == nil {
				slogger.Info("Artifact still pending delivery, not recomposing", "composedAt", pending.ModTime)
				report.Retained = append(report.Retained, subject)
				continue
			}
		}

		composed, err := r.composeSubject(subject)
		if err != nil {
			kind := failureKind(err)
			slogger.Warn("Subject not composed", "kind", kind, "error", err)
			report.CompositionFailures = append(report.CompositionFailures, SubjectFailure{
				Subject: subject,
				Kind:    kind,
				Error:   err.Error(),
			})
			if r.metrics != nil {
				r.metrics.RecordCompositionError(ctx, kind)
			}
			continue
		}

		slogger.Info("Subject composed", "pages", composed.Pages, "path", composed.Path)
		report.Composed = append(report.Composed, composed)
		if r.metrics != nil {
			r.metrics.RecordSubjectComposed(ctx, composed.Pages)
		}
	}
}

func (r *Runner) composeSubject(subject string) (ComposedSubject, error) {
	images, err := r.collector.ListImages(subject)
	if err != nil {
		return ComposedSubject{}, err
	}
	doc, err := r.composer.Compose(subject, images)
	if err != nil {
		return ComposedSubject{}, err
	}
	artifact, err := r.store.Save(subject, doc.Bytes)
	if err != nil {
		return ComposedSubject{}, err
	}
	return ComposedSubject{Subject: subject, Pages: doc.PageCount(), Path: artifact.Path}, nil
}

// deliver hands every pending artifact, new or left over, to the dispatcher.
func (r *Runner) deliver(ctx context.Context, logger *slog.Logger, report *RunReport) {
	pending, err := r.store.List()
	if err != nil {
		logger.Error("Failed to list pending artifacts", "error", err)
		report.DeliveryError = err.Error()
		return
	}

	delivery, err := r.dispatcher.Run(ctx, pending)
	report.Delivery = delivery
	if err != nil && ctx.Err() == nil {
		logger.Error("Delivery phase failed", "error", err)
		report.DeliveryError = err.Error()
	}
}
