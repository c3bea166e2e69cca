// Package delivery drives the messaging web client through a browser surface:
// connect, resolve the fixed destination, and send artifacts one at a time.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/browser"
	"pdfcourier/internal/store"
	"pdfcourier/pkg/backoff"
	"sync"
	"time"
)

// Delivery steps, reported on failed attempts.
const (
	StepAttach    = "attach"
	StepFileInput = "file_input"
	StepUpload    = "upload"
	StepPreview   = "preview"
	StepSend      = "send"
	StepConfirm   = "confirm"
)

// previewBackoff paces preview readiness polls.
var previewBackoff = &backoff.Config{Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond}

// Session is one connection to the messaging client. It is not safe for
// concurrent sends; callers deliver strictly one artifact at a time.
type Session struct {
	surface browser.Surface
	cfg     Config
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	sent     int
	released bool
}

// NewSession creates a disconnected session over surface.
func NewSession(surface browser.Surface, cfg Config) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		surface: surface,
		cfg:     cfg,
		logger:  slog.With("component", "delivery", "destination", cfg.DestinationName),
		state:   StateDisconnected,
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sent returns the number of send attempts made, successful or not.
func (s *Session) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !isAllowedTransition(s.state, to) {
		return apperrors.Session("session.transition", fmt.Errorf("invalid transition %s -> %s", s.state, to))
	}
	s.logger.Debug("Session transition", "from", s.state.String(), "to", to.String())
	s.state = to
	return nil
}

// fail moves the session to Failed and returns err.
func (s *Session) fail(err error) error {
	if tErr := s.transition(StateFailed); tErr != nil {
		s.logger.Warn("Failed to mark session failed", "error", tErr)
	}
	s.logger.Error("Session failed", "error", err)
	return err
}

// Connect opens the client and waits for its readiness signal: the search box
// becoming present within ConnectTimeout.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.transition(StateConnecting); err != nil {
		return err
	}

	if err := s.surface.Open(ctx, s.cfg.URL); err != nil {
		return s.fail(apperrors.Session("session.connect", err))
	}
	if _, err := s.surface.Locate(ctx, s.cfg.Selectors.SearchBox, s.cfg.ConnectTimeout); err != nil {
		return s.fail(apperrors.Session("session.connect", fmt.Errorf("client not ready: %w", err)))
	}

	s.logger.Info("Connected", "url", s.cfg.URL)
	return s.transition(StateAwaitingTarget)
}

// ResolveTarget searches for the destination by exact name and opens its
// conversation. It is also valid from TargetReady and Idle, to reacquire a
// conversation the client navigated away from.
func (s *Session) ResolveTarget(ctx context.Context) error {
	if cur := s.State(); cur == StateTargetReady || cur == StateIdle {
		if err := s.transition(StateAwaitingTarget); err != nil {
			return err
		}
	}
	if cur := s.State(); cur != StateAwaitingTarget {
		return apperrors.Session("session.resolveTarget", fmt.Errorf("cannot resolve target from %s", cur))
	}

	name := s.cfg.DestinationName
	search, err := s.surface.Locate(ctx, s.cfg.Selectors.SearchBox, s.cfg.LocateTimeout)
	if err != nil {
		return s.fail(apperrors.Session("session.resolveTarget", fmt.Errorf("search box: %w", err)))
	}
	if err := search.Click(ctx); err != nil {
		return s.fail(apperrors.Session("session.resolveTarget", err))
	}
	if err := search.Type(ctx, name); err != nil {
		return s.fail(apperrors.Session("session.resolveTarget", err))
	}
	if err := search.Submit(ctx); err != nil {
		return s.fail(apperrors.Session("session.resolveTarget", err))
	}

	target, err := s.surface.Locate(ctx, s.cfg.Selectors.Target(name), s.cfg.LocateTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return s.fail(apperrors.Session("session.resolveTarget", ctx.Err()))
		}
		return s.fail(apperrors.TargetNotFound(name, err))
	}
	if err := target.Click(ctx); err != nil {
		return s.fail(apperrors.Session("session.resolveTarget", err))
	}

	if _, err := s.surface.Locate(ctx, s.cfg.Selectors.MessageBox, s.cfg.LocateTimeout); err != nil {
		return s.fail(apperrors.Session("session.resolveTarget", fmt.Errorf("conversation did not open: %w", err)))
	}

	s.logger.Info("Target resolved")
	return s.transition(StateTargetReady)
}

// Announce sends the configured announcement text into the open conversation.
// It is a no-op when no announcement is configured.
func (s *Session) Announce(ctx context.Context) error {
	text := s.cfg.Announcement
	if text == "" {
		return nil
	}
	if cur := s.State(); !CanDeliver(cur) {
		return apperrors.Session("session.announce", fmt.Errorf("cannot announce from %s", cur))
	}

	box, err := s.surface.Locate(ctx, s.cfg.Selectors.MessageBox, s.cfg.LocateTimeout)
	if err != nil {
		return s.fail(apperrors.Session("session.announce", err))
	}
	for _, act := range []func(context.Context) error{
		box.Click,
		func(ctx context.Context) error { return box.Type(ctx, text) },
		box.Submit,
	} {
		if err := act(ctx); err != nil {
			return s.fail(apperrors.Session("session.announce", err))
		}
	}
	if err := sleep(ctx, s.cfg.SendSettle); err != nil {
		return s.fail(apperrors.Session("session.announce", err))
	}

	s.logger.Info("Announcement sent")
	return nil
}

// Deliver attaches and sends one artifact. A failure is local to the artifact:
// the session returns to Idle and stays usable for the next one.
//
// An attempt is not started once ctx is done, and once started it is not
// interrupted by ctx: each step is bounded by its own timeout instead.
func (s *Session) Deliver(ctx context.Context, artifact store.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.transition(StateSending); err != nil {
		return err
	}

	s.mu.Lock()
	s.sent++
	n := s.sent
	s.mu.Unlock()

	logger := s.logger.With("artifactId", artifact.ID, "attempt", n)
	step, err := s.send(context.WithoutCancel(ctx), artifact)

	if tErr := s.transition(StateIdle); tErr != nil {
		return tErr
	}
	if err != nil {
		logger.Warn("Delivery attempt failed", "step", step, "error", err)
		return apperrors.DeliveryAttempt(artifact.ID, step, err)
	}
	logger.Info("Artifact delivered")
	return nil
}

func (s *Session) send(ctx context.Context, artifact store.Artifact) (string, error) {
	sel := s.cfg.Selectors

	attach, err := s.surface.Locate(ctx, sel.Attach, s.cfg.LocateTimeout)
	if err != nil {
		return StepAttach, err
	}
	if err := attach.Click(ctx); err != nil {
		return StepAttach, err
	}

	input, err := s.surface.Locate(ctx, sel.FileInput, s.cfg.LocateTimeout)
	if err != nil {
		return StepFileInput, err
	}
	if err := input.SetFiles(ctx, artifact.Path); err != nil {
		return StepUpload, err
	}

	if err := s.awaitPreview(ctx); err != nil {
		return StepPreview, err
	}

	send, err := s.surface.Locate(ctx, sel.Send, s.cfg.LocateTimeout)
	if err != nil {
		return StepSend, err
	}
	if err := send.Click(ctx); err != nil {
		return StepSend, err
	}

	if err := sleep(ctx, s.cfg.SendSettle); err != nil {
		return StepConfirm, err
	}
	return "", nil
}

// awaitPreview waits until the attachment preview has been observed on
// PreviewPolls consecutive polls. Without a preview selector there is no
// observable signal and the fixed AttachSettle applies.
func (s *Session) awaitPreview(ctx context.Context) error {
	if s.cfg.Selectors.Preview.IsZero() {
		return sleep(ctx, s.cfg.AttachSettle)
	}

	seen := 0
	err := backoff.Poll(ctx, s.cfg.PreviewTimeout, previewBackoff, func(ctx context.Context) (bool, error) {
		ok, err := s.surface.Present(ctx, s.cfg.Selectors.Preview)
		if err != nil {
			return false, err
		}
		if !ok {
			seen = 0
			return false, nil
		}
		seen++
		return seen >= s.cfg.PreviewPolls, nil
	})
	if errors.Is(err, backoff.ErrTimeout) {
		return fmt.Errorf("preview %s not stable after %s: %w", s.cfg.Selectors.Preview, s.cfg.PreviewTimeout, browser.ErrElementNotFound)
	}
	return err
}

// Close releases the surface. A failed session stays Failed.
func (s *Session) Close() error {
	s.mu.Lock()
	released := s.released
	s.released = true
	s.mu.Unlock()
	if released {
		return nil
	}

	if s.State() != StateFailed {
		if err := s.transition(StateClosed); err != nil {
			return err
		}
	}
	if err := s.surface.Close(); err != nil {
		return apperrors.Session("session.close", err)
	}
	s.logger.Info("Session closed", "sent", s.Sent())
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
