// Package push manages remote notification enablement and notification
// presentation.
//
// The component attaches to a notificare.Client:
//
//	p := push.Attach(client,
//		push.WithAdapter(adapter),
//		push.WithPresenter(ui),
//	)
//
// The Adapter obtains and releases push subscriptions from whatever transport
// the host has (web push endpoints, a relay, a test double). The
// NotificationPresenter renders notification content; URL-like notification
// types bypass it and navigate through the host environment instead.
//
// Enabling remote notifications promotes the registered device from a
// temporary identity to one carrying the subscription token; disabling
// reverts it. Both survive restarts through the persisted enablement flags.
package push
