package inappmessaging

import "errors"

var (
	// ErrNoPresenter is returned when a message must be rendered but no
	// Presenter was attached to the engine.
	ErrNoPresenter = errors.New("inappmessaging: no presenter attached")

	// ErrNoMessageShown is returned by action execution when no message is
	// currently on screen.
	ErrNoMessageShown = errors.New("inappmessaging: no message shown")

	// ErrUnsupportedType is returned by presenters for message types they
	// cannot render.
	ErrUnsupportedType = errors.New("inappmessaging: unsupported message type")
)
