package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/store"
	"pdfcourier/pkg/circuitbreaker"
	"time"

	"golang.org/x/time/rate"
)

// Dispatcher runs delivery batches. Batches are strictly sequential: one
// session, one artifact in flight.
type Dispatcher struct {
	config  Config
	open    SessionFactory
	remover Remover
	metrics MetricsRecorder
	logger  *slog.Logger
}

// New creates a dispatcher. metrics may be nil.
func New(cfg Config, open SessionFactory, remover Remover, metrics MetricsRecorder) *Dispatcher {
	return &Dispatcher{
		config:  cfg.withDefaults(),
		open:    open,
		remover: remover,
		metrics: metrics,
		logger:  slog.With("component", "dispatcher"),
	}
}

// Run delivers artifacts in order. Individual delivery failures are recorded
// and never stop the batch. A session failure (connect, target, announcement,
// reacquisition) ends the batch and leaves every unattempted artifact
// untouched; it is returned as the error alongside the report.
//
// Only delivered artifacts are removed, after the session is closed.
func (d *Dispatcher) Run(ctx context.Context, artifacts []store.Artifact) (*Report, error) {
	report := &Report{}
	if d.metrics != nil {
		d.metrics.RecordPendingArtifacts(ctx, int64(len(artifacts)))
	}
	if len(artifacts) == 0 {
		d.logger.Info("No pending artifacts, skipping delivery")
		return report, nil
	}

	d.logger.Info("Delivery batch started", "artifacts", len(artifacts))
	sess, err := d.open(ctx)
	if err != nil {
		report.untouched(artifacts)
		return report, apperrors.Session("dispatcher.openSession", err)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{Threshold: d.config.ReacquireAfter})
	runErr := d.deliverAll(ctx, sess, breaker, artifacts, report)
	report.Trips = breaker.Trips()

	if err := sess.Close(); err != nil {
		d.logger.Warn("Failed to close session", "error", err)
	}

	d.clear(report)

	summary := []any{
		"delivered", len(report.Delivered),
		"failed", len(report.Failed),
		"untouched", len(report.Untouched),
		"cleared", len(report.Cleared),
		"reacquired", report.Reacquired,
		"trips", report.Trips,
	}
	if report.Trips > 0 {
		summary = append(summary, "lastTripAt", breaker.OpenedAt())
	}
	d.logger.Info("Delivery batch finished", summary...)
	if d.metrics != nil {
		d.metrics.RecordPendingArtifacts(ctx, int64(len(artifacts)-len(report.Cleared)))
	}
	return report, runErr
}

func (d *Dispatcher) deliverAll(ctx context.Context, sess Session, breaker *circuitbreaker.Breaker, artifacts []store.Artifact, report *Report) error {
	for _, step := range []func(context.Context) error{sess.Connect, sess.ResolveTarget, sess.Announce} {
		if err := step(ctx); err != nil {
			report.untouched(artifacts)
			return err
		}
	}

	// A non-positive interval yields an unlimited limiter.
	limiter := rate.NewLimiter(rate.Every(d.config.SendInterval), 1)

	for i, a := range artifacts {
		if err := ctx.Err(); err != nil {
			report.untouched(artifacts[i:])
			return err
		}
		if err := limiter.Wait(ctx); err != nil {
			report.untouched(artifacts[i:])
			return err
		}

		if breaker.State() == circuitbreaker.Open {
			d.logger.Warn("Consecutive delivery failures, reacquiring target", "failures", breaker.Failures())
			if err := sess.ResolveTarget(ctx); err != nil {
				report.untouched(artifacts[i:])
				return err
			}
			breaker.Probe()
			report.Reacquired++
			if d.metrics != nil {
				d.metrics.RecordTargetReacquired(ctx)
			}
		}

		start := time.Now()
		err := sess.Deliver(ctx, a)
		if d.metrics != nil {
			d.metrics.RecordDelivery(ctx, err == nil, time.Since(start).Seconds())
		}

		switch {
		case err == nil:
			breaker.RecordSuccess()
			report.Delivered = append(report.Delivered, a.ID)
		case errors.Is(err, apperrors.ErrDeliveryAttempt):
			breaker.RecordFailure()
			report.fail(a.ID, err)
		default:
			// The session itself is unusable.
			report.untouched(artifacts[i:])
			return err
		}
	}
	return nil
}

// clear removes delivered artifacts. A removal failure leaves the artifact
// pending for the next run.
func (d *Dispatcher) clear(report *Report) {
	for _, id := range report.Delivered {
		if err := d.remover.Remove(id); err != nil {
			d.logger.Error("Failed to clear delivered artifact", "artifactId", id, "error", err)
			continue
		}
		report.Cleared = append(report.Cleared, id)
	}
}
