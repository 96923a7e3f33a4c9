package inbox

import "errors"

var (
	// ErrInboxUnavailable is returned when the application does not use the
	// device inbox.
	ErrInboxUnavailable = errors.New("inbox: inbox not enabled for this application")

	// ErrAutoBadgeUnavailable is returned by badge operations when auto-badge
	// is not enabled.
	ErrAutoBadgeUnavailable = errors.New("inbox: auto badge not enabled for this application")
)
