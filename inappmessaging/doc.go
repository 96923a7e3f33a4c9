// Package inappmessaging evaluates in-app message contexts against the
// backend and drives message presentation through a host-provided Presenter.
//
// The engine attaches to a notificare.Client as a lifecycle component:
//
//	engine := inappmessaging.Attach(client, inappmessaging.WithPresenter(ui))
//
// Presentation is exclusive: a message never shows while the push onboarding
// prompt or a notification is on screen, and at most one message is shown at
// a time. Messages carry an optional presentation delay, and a message left
// on screen across a long background period is dismissed when the host
// returns to the foreground.
package inappmessaging
