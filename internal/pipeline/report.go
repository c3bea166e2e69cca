package pipeline

import (
	"errors"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/dispatcher"
	"time"
)

// Run outcomes.
const (
	OutcomeSuccess   = "success"   // every subject composed and every pending artifact delivered
	OutcomePartial   = "partial"   // some subjects or artifacts failed; the rest went through
	OutcomeFailed    = "failed"    // the delivery phase could not run
	OutcomeCancelled = "cancelled" // the run was aborted between subjects or artifacts
)

// Failure kinds for subjects that produced no artifact.
const (
	KindCollection          = "collection"
	KindUnsupportedEncoding = "unsupported_encoding"
	KindComposition         = "composition"
	KindStore               = "store"
)

// ComposedSubject is an artifact written during the run.
type ComposedSubject struct {
	Subject string `json:"subject"`
	Pages   int    `json:"pages"`
	Path    string `json:"path"`
}

// SubjectFailure records why a subject produced no artifact.
type SubjectFailure struct {
	Subject string `json:"subject"`
	Kind    string `json:"kind"`
	Error   string `json:"error"`
}

// RunReport is the recorded outcome of one run.
type RunReport struct {
	RunID               string             `json:"runId"`
	Trigger             string             `json:"trigger"`
	StartedAt           time.Time          `json:"startedAt"`
	FinishedAt          time.Time          `json:"finishedAt"`
	Outcome             string             `json:"outcome"`
	CollectionError     string             `json:"collectionError,omitempty"`
	Composed            []ComposedSubject  `json:"composed"`
	Retained            []string           `json:"retained"` // pending artifacts left as they were
	CompositionFailures []SubjectFailure   `json:"compositionFailures"`
	Delivery            *dispatcher.Report `json:"delivery,omitempty"`
	DeliveryError       string             `json:"deliveryError,omitempty"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *RunReport) outcome(cancelled bool) string {
	switch {
	case cancelled:
		return OutcomeCancelled
	case r.DeliveryError != "":
		return OutcomeFailed
	case r.CollectionError != "" || len(r.CompositionFailures) > 0:
		return OutcomePartial
	case r.Delivery != nil && len(r.Delivery.Failed) > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedEncoding):
		return KindUnsupportedEncoding
	case errors.Is(err, apperrors.ErrComposition):
		return KindComposition
	case errors.Is(err, apperrors.ErrCollection):
		return KindCollection
	default:
		return KindStore
	}
}
