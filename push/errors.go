package push

import "errors"

var (
	// ErrNoAdapter is returned when a subscription is needed but no Adapter
	// was attached.
	ErrNoAdapter = errors.New("push: no adapter attached")

	// ErrNotSupported is returned when the host cannot deliver remote
	// notifications.
	ErrNotSupported = errors.New("push: remote notifications not supported by host")

	// ErrNoPresenter is returned when a notification must be rendered but no
	// presenter was attached.
	ErrNoPresenter = errors.New("push: no presenter attached")

	// ErrNoNotificationShown is returned by Dismiss when nothing is on screen.
	ErrNoNotificationShown = errors.New("push: no notification shown")

	// ErrUnsupportedNotificationType is returned for notification types the
	// coordinator does not know how to present.
	ErrUnsupportedNotificationType = errors.New("push: unsupported notification type")

	// ErrUnsupportedActionType is returned for action types the coordinator
	// does not know how to execute.
	ErrUnsupportedActionType = errors.New("push: unsupported action type")

	// ErrOnboardingVisible is returned when the onboarding prompt is already
	// on screen.
	ErrOnboardingVisible = errors.New("push: onboarding already visible")
)
