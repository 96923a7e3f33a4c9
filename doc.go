// Package notificare implements the core Notificare SDK client: the launch
// lifecycle, device registration, session tracking, the REST transport and
// the component registry the feature packages plug into.
//
// A typical host configures and launches once:
//
//	client := notificare.New(
//		notificare.WithStore(fileStore),
//	)
//	if err := client.Configure(notificare.Options{
//		ApplicationKey:    key,
//		ApplicationSecret: secret,
//	}); err != nil {
//		return err
//	}
//	if err := client.Launch(ctx); err != nil {
//		return err
//	}
//
// Feature packages (push, inappmessaging, inbox, geo, userinbox) attach
// themselves to a client via Attach and participate in its lifecycle as
// components. Host-facing happenings (device registered, notification
// presented, inbox updated) are delivered through Client.On.
//
// The client is a state machine over four launch states: none, configured,
// launching and launched. Configuration is one-way and idempotent; launching
// is serialized; Unlaunch returns to configured. Most operations require at
// least a configured client and return ErrNotConfigured or ErrNotReady
// otherwise.
package notificare
