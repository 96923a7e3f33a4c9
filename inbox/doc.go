// Package inbox exposes the per-device notification inbox: listing, opening,
// read-state management and the application badge.
//
// The component attaches to a notificare.Client:
//
//	in := inbox.Attach(client)
//
// All operations require the application's inbox service to be enabled; badge
// tracking additionally requires auto-badge. Inbox items carry partial
// notifications; Open completes them before handing them back for
// presentation.
package inbox
