package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCollection(t *testing.T) {
	t.Parallel()
	cause := errors.New("permission denied")
	err := Collection("Math", cause)

	if !errors.Is(err, ErrCollection) {
		t.Error("expected error to match ErrCollection")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if err.Error() != `collect subject "Math": permission denied` {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Subject != "Math" {
		t.Errorf("expected subject 'Math', got %q", appErr.Subject)
	}
}

func TestCollection_Root(t *testing.T) {
	t.Parallel()
	err := Collection("", errors.New("no such directory"))
	if err.Error() != "collect subjects: no such directory" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	t.Parallel()
	err := UnsupportedEncoding("Art", "sketch.gif")

	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Error("expected error to match ErrUnsupportedEncoding")
	}
	if errors.Is(err, ErrComposition) {
		t.Error("unsupported encoding should not match ErrComposition")
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.File != "sketch.gif" {
		t.Errorf("expected file 'sketch.gif', got %q", appErr.File)
	}
}

func TestTargetNotFound(t *testing.T) {
	t.Parallel()
	err := TargetNotFound("Class - II A Students", context.DeadlineExceeded)

	if !errors.Is(err, ErrSession) {
		t.Error("expected target-not-found to be a session error")
	}
	if !errors.Is(err, ErrTargetNotFound) {
		t.Error("expected error to match ErrTargetNotFound")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be preserved")
	}
}

func TestSession(t *testing.T) {
	t.Parallel()
	err := Session("session.connect", errors.New("browser exited"))

	if !errors.Is(err, ErrSession) {
		t.Error("expected error to match ErrSession")
	}
	if errors.Is(err, ErrTargetNotFound) {
		t.Error("plain session error should not match ErrTargetNotFound")
	}
	if err.Error() != "session.connect: browser exited" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestDeliveryAttempt(t *testing.T) {
	t.Parallel()
	err := DeliveryAttempt("Math", "attach", context.DeadlineExceeded)

	if !errors.Is(err, ErrDeliveryAttempt) {
		t.Error("expected error to match ErrDeliveryAttempt")
	}
	if errors.Is(err, ErrSession) {
		t.Error("delivery attempt failure must not be a session error")
	}
	if got := ArtifactID(err); got != "Math" {
		t.Errorf("ArtifactID() = %q, want 'Math'", got)
	}
	if got := ArtifactID(fmt.Errorf("wrapped: %w", err)); got != "Math" {
		t.Errorf("ArtifactID() through wrap = %q, want 'Math'", got)
	}
	if got := ArtifactID(errors.New("plain")); got != "" {
		t.Errorf("ArtifactID() of plain error = %q, want empty", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("schedule", "required"), http.StatusBadRequest},
		{"conflict", Conflict("run", "already in progress"), http.StatusConflict},
		{"unavailable", Unavailable("run", "shutting down"), http.StatusServiceUnavailable},
		{"session", Session("op", errors.New("fail")), http.StatusBadGateway},
		{"target not found", TargetNotFound("group", errors.New("timeout")), http.StatusBadGateway},
		{"internal", Internal("op", errors.New("fail")), http.StatusInternalServerError},
		{"wrapped conflict", fmt.Errorf("wrap: %w", Conflict("run", "busy")), http.StatusConflict},
		{"unknown error", errors.New("unknown"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := HTTPStatus(tt.err)
			if got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestErrorsIsWithWrapping(t *testing.T) {
	t.Parallel()
	original := UnsupportedEncoding("Art", "a.bmp")
	wrapped := fmt.Errorf("compose: %w", original)
	doubleWrapped := fmt.Errorf("run: %w", wrapped)

	if !errors.Is(doubleWrapped, ErrUnsupportedEncoding) {
		t.Error("expected errors.Is to find ErrUnsupportedEncoding through multiple wraps")
	}
}
