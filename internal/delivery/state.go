package delivery

import "fmt"

// State is the lifecycle position of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingTarget
	StateTargetReady
	StateSending
	StateIdle
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingTarget:
		return "awaiting_target"
	case StateTargetReady:
		return "target_ready"
	case StateSending:
		return "sending"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s State) bool {
	return s == StateClosed || s == StateFailed
}

// CanDeliver reports whether an artifact may be sent from s.
func CanDeliver(s State) bool {
	return s == StateTargetReady || s == StateIdle
}

func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return !IsTerminal(from)
	}
	switch from {
	case StateDisconnected:
		return to == StateConnecting || to == StateClosed
	case StateConnecting:
		return to == StateAwaitingTarget || to == StateClosed
	case StateAwaitingTarget:
		return to == StateTargetReady || to == StateClosed
	case StateTargetReady, StateIdle:
		// Re-entering AwaitingTarget reacquires a lost conversation.
		return to == StateSending || to == StateAwaitingTarget || to == StateClosed
	case StateSending:
		// A send always ends in Idle, whatever its outcome; the session is never
		// closed mid-send.
		return to == StateIdle
	default:
		return false
	}
}
