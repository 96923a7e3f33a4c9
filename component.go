package notificare

import (
	"context"
	"log/slog"

	"github.com/notificare/notificare-go/pkg/logger"
)

// Broadcast event names delivered to components via ProcessBroadcast.
const (
	// BroadcastForeground signals the host application became visible.
	BroadcastForeground = "application_foreground"
	// BroadcastBackground signals the host application was hidden.
	BroadcastBackground = "application_background"
	// BroadcastUnload signals the host is about to terminate or reload.
	BroadcastUnload = "application_unload"
)

// Component is a pluggable SDK lifecycle participant. The SDK ships a closed
// set of kinds: device, session, geo, push, inbox, in-app messaging and user
// inbox. Launch calls run strictly sequentially in registration order; a
// later component may depend on state a prior one established (the session
// tracker logs events against the device the device component registered).
type Component interface {
	// Name identifies the component; registration is idempotent per name.
	Name() string

	// Configure is called when the SDK is configured, before any launch.
	Configure(ctx context.Context) error

	// Launch initializes the component. An error aborts the overall launch.
	Launch(ctx context.Context) error

	// Unlaunch tears the component down.
	Unlaunch(ctx context.Context) error

	// ClearStorage removes the component's persisted keys. Invoked during
	// the full local reset after the backend reports the device deleted.
	ClearStorage(ctx context.Context) error

	// ProcessBroadcast receives fan-out notifications. Errors and panics are
	// isolated per component and never stop propagation.
	ProcessBroadcast(ctx context.Context, event string, data any)
}

// BaseComponent provides no-op defaults for the optional Component methods.
type BaseComponent struct{}

func (BaseComponent) Configure(ctx context.Context) error    { return nil }
func (BaseComponent) Launch(ctx context.Context) error       { return nil }
func (BaseComponent) Unlaunch(ctx context.Context) error     { return nil }
func (BaseComponent) ClearStorage(ctx context.Context) error { return nil }

func (BaseComponent) ProcessBroadcast(ctx context.Context, event string, data any) {}

// RegisterComponent adds a component to the launch/broadcast registry.
// Registration is insertion-ordered and idempotent by name: re-registering an
// existing name is a no-op, which guards double-initialization when a host
// hot-reloads its wiring.
//
// When the client is already configured, the component's Configure hook runs
// immediately; a failure there is logged but does not unregister it.
func (c *Client) RegisterComponent(comp Component) {
	if comp == nil {
		return
	}

	c.mu.Lock()
	if _, ok := c.componentNames[comp.Name()]; ok {
		c.mu.Unlock()
		c.log.Debug("component already registered", logger.Component(comp.Name()))
		return
	}
	c.componentNames[comp.Name()] = struct{}{}
	c.components = append(c.components, comp)
	configured := c.state >= LaunchStateConfigured
	c.mu.Unlock()

	if configured {
		if err := comp.Configure(context.Background()); err != nil {
			c.log.Warn("failed to configure component",
				logger.Component(comp.Name()),
				logger.Error(err),
			)
		}
	}
}

// ComponentNames returns the registered component names in registration
// order, primarily for diagnostics and tests.
func (c *Client) ComponentNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.components))
	for _, comp := range c.components {
		names = append(names, comp.Name())
	}
	return names
}

func (c *Client) snapshotComponents() []Component {
	c.mu.Lock()
	defer c.mu.Unlock()

	comps := make([]Component, len(c.components))
	copy(comps, c.components)
	return comps
}

func (c *Client) componentByName(name string) Component {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, comp := range c.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

// broadcast delivers an event to every component in registration order.
// Each delivery is isolated: a panicking component is recovered and logged,
// never aborting the loop. This is fan-out notification, not a pipeline.
func (c *Client) broadcast(ctx context.Context, event string, data any) {
	for _, comp := range c.snapshotComponents() {
		c.deliverBroadcast(ctx, comp, event, data)
	}
}

func (c *Client) deliverBroadcast(ctx context.Context, comp Component, event string, data any) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("component broadcast handler panicked",
				logger.Component(comp.Name()),
				slog.String("event", event),
				slog.Any("panic", r),
			)
		}
	}()
	comp.ProcessBroadcast(ctx, event, data)
}
