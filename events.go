package notificare

import (
	"log/slog"
	"sync"
)

// Event names surfaced to the host application via Client.On.
const (
	EventReady            = "ready"
	EventUnlaunched       = "unlaunched"
	EventDeviceRegistered = "device_registered"

	EventInboxUpdated = "inbox_updated"
	EventBadgeUpdated = "badge_updated"

	EventNotificationReceived     = "notification_received"
	EventNotificationOpened       = "notification_opened"
	EventNotificationActionOpened = "notification_action_opened"

	EventMessagePresented          = "message_presented"
	EventMessageFinishedPresenting = "message_finished_presenting"
	EventMessageFailedToPresent    = "message_failed_to_present"
	EventActionWillExecute         = "action_will_execute"
	EventActionExecuted            = "action_executed"
	EventActionFailedToExecute     = "action_failed_to_execute"

	EventNotificationWillPresent        = "notification_will_present"
	EventNotificationPresented          = "notification_presented"
	EventNotificationFinishedPresenting = "notification_finished_presenting"
	EventNotificationFailedToPresent    = "notification_failed_to_present"
)

type listenerEntry struct {
	id uint64
	fn func(data any)
}

// emitter is an ordered multi-subscriber event dispatcher. Listeners run
// synchronously in subscription order; a panicking listener is recovered and
// logged so the remaining listeners still run.
type emitter struct {
	mu        sync.Mutex
	seq       uint64
	listeners map[string][]listenerEntry
	log       *slog.Logger
}

func newEmitter(log *slog.Logger) *emitter {
	return &emitter{
		listeners: make(map[string][]listenerEntry),
		log:       log,
	}
}

func (e *emitter) on(event string, fn func(data any)) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	e.seq++
	id := e.seq
	e.listeners[event] = append(e.listeners[event], listenerEntry{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		entries := e.listeners[event]
		for i, entry := range entries {
			if entry.id == id {
				e.listeners[event] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
	}
}

func (e *emitter) emit(event string, data any) {
	e.mu.Lock()
	entries := make([]listenerEntry, len(e.listeners[event]))
	copy(entries, e.listeners[event])
	e.mu.Unlock()

	for _, entry := range entries {
		e.dispatch(event, entry, data)
	}
}

func (e *emitter) dispatch(event string, entry listenerEntry, data any) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event listener panicked",
				slog.String("event", event),
				slog.Any("panic", r),
			)
		}
	}()
	entry.fn(data)
}

// On subscribes fn to the named event and returns a function that removes the
// subscription. Multiple listeners per event are supported and run in
// subscription order.
func (c *Client) On(event string, fn func(data any)) func() {
	return c.emitter.on(event, fn)
}

// Emit dispatches an event to all subscribed listeners. Exposed for the
// feature packages (push, inappmessaging, inbox) that report presentation
// outcomes through the shared event surface.
func (c *Client) Emit(event string, data any) {
	c.log.Debug("emitting event", slog.String("event", event))
	c.emitter.emit(event, data)
}
