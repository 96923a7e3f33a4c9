package notificare

import "sync"

// OverlayKind identifies a UI surface competing for the host's screen.
type OverlayKind string

const (
	// OverlayOnboarding is the push permission onboarding prompt.
	OverlayOnboarding OverlayKind = "onboarding"
	// OverlayNotification is the notification presentation surface.
	OverlayNotification OverlayKind = "notification"
	// OverlayMessage is the in-app message surface.
	OverlayMessage OverlayKind = "message"
)

// OverlayState is the presentation state of a single overlay kind.
type OverlayState int

const (
	OverlayHidden OverlayState = iota
	OverlayShowing
	OverlayDismissing
)

func (s OverlayState) String() string {
	switch s {
	case OverlayHidden:
		return "hidden"
	case OverlayShowing:
		return "showing"
	case OverlayDismissing:
		return "dismissing"
	default:
		return "unknown"
	}
}

// OverlayCoordinator mediates exclusive presentation between the push
// onboarding prompt, the notification surface and the in-app message surface.
// The coordinator holds the authoritative visibility state; the host's
// rendering layer follows its transitions.
//
// Invariants enforced by the callers through this coordinator: an in-app
// message never shows while either of the other two overlays is visible; a
// notification force-dismisses a showing message.
type OverlayCoordinator struct {
	mu     sync.Mutex
	states map[OverlayKind]OverlayState
}

func newOverlayCoordinator() *OverlayCoordinator {
	return &OverlayCoordinator{
		states: make(map[OverlayKind]OverlayState),
	}
}

// State returns the current state of the given overlay kind.
func (o *OverlayCoordinator) State(kind OverlayKind) OverlayState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[kind]
}

// IsVisible reports whether the overlay is showing or mid-dismissal.
func (o *OverlayCoordinator) IsVisible(kind OverlayKind) bool {
	return o.State(kind) != OverlayHidden
}

// TryShow transitions kind to showing. It reports false, without changing
// state, when the overlay is already visible.
func (o *OverlayCoordinator) TryShow(kind OverlayKind) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.states[kind] != OverlayHidden {
		return false
	}
	o.states[kind] = OverlayShowing
	return true
}

// SetDismissing marks a showing overlay as mid-dismissal.
func (o *OverlayCoordinator) SetDismissing(kind OverlayKind) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.states[kind] == OverlayShowing {
		o.states[kind] = OverlayDismissing
	}
}

// Clear returns kind to hidden regardless of its current state.
func (o *OverlayCoordinator) Clear(kind OverlayKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.states, kind)
}
