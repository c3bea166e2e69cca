// Package dispatcher delivers a batch of pending artifacts through one
// delivery session and clears the ones that were delivered.
package dispatcher

import (
	"context"
	"pdfcourier/internal/store"
)

// Session is the delivery capability the dispatcher drives.
// delivery.Session implements it.
type Session interface {
	Connect(ctx context.Context) error
	ResolveTarget(ctx context.Context) error
	Announce(ctx context.Context) error
	Deliver(ctx context.Context, artifact store.Artifact) error
	Close() error
}

// SessionFactory opens a new, unconnected session. Called at most once per batch.
type SessionFactory func(ctx context.Context) (Session, error)

// Remover clears delivered artifacts from storage.
type Remover interface {
	Remove(id string) error
}

// MetricsRecorder is an optional interface for recording dispatcher metrics.
type MetricsRecorder interface {
	RecordDelivery(ctx context.Context, success bool, durationSeconds float64)
	RecordPendingArtifacts(ctx context.Context, count int64)
	RecordTargetReacquired(ctx context.Context)
}

// Report is the outcome of one batch. Every artifact handed to the batch
// appears in exactly one of Delivered, Failed and Untouched; Cleared is a
// subset of Delivered.
type Report struct {
	Delivered  []string          `json:"delivered"`
	Failed     []string          `json:"failed"`
	Untouched  []string          `json:"untouched"`
	Cleared    []string          `json:"cleared"`
	Errors     map[string]string `json:"errors,omitempty"` // artifact ID -> failure
	Reacquired int               `json:"reacquired"`
	Trips      int               `json:"trips"` // times consecutive failures reached ReacquireAfter
}

func (r *Report) fail(id string, err error) {
	r.Failed = append(r.Failed, id)
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[id] = err.Error()
}

func (r *Report) untouched(artifacts []store.Artifact) {
	for _, a := range artifacts {
		r.Untouched = append(r.Untouched, a.ID)
	}
}
