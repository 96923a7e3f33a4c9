package notificare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
)

// LaunchState tracks the SDK lifecycle. States are strictly ordered and only
// Unlaunch moves the state backwards: operations gated on configuration
// assert state >= LaunchStateConfigured, operations gated on a registered
// device assert LaunchStateLaunched.
type LaunchState int

const (
	LaunchStateNone LaunchState = iota
	LaunchStateConfigured
	LaunchStateLaunching
	LaunchStateLaunched
)

func (s LaunchState) String() string {
	switch s {
	case LaunchStateNone:
		return "none"
	case LaunchStateConfigured:
		return "configured"
	case LaunchStateLaunching:
		return "launching"
	case LaunchStateLaunched:
		return "launched"
	default:
		return "unknown"
	}
}

// Configure stores the connection options and moves the state machine to
// configured. Calling Configure when already configured is a no-op with a
// logged warning; the first call's values win.
func (c *Client) Configure(ctx context.Context, opts Options) error {
	c.mu.Lock()
	if c.state >= LaunchStateConfigured {
		c.mu.Unlock()
		c.log.Warn("notificare is already configured, skipping")
		return nil
	}
	c.mu.Unlock()

	return c.configure(ctx, &opts)
}

func (c *Client) configure(ctx context.Context, opts *Options) error {
	opts.applyDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}

	apiOpts := append([]httpclient.Option{
		httpclient.WithBasicAuth(opts.ApplicationKey, opts.ApplicationSecret),
		httpclient.WithUserAgent(fmt.Sprintf("notificare-go/%s", Version)),
		httpclient.WithLogger(c.log),
	}, c.apiOptions...)

	api, err := httpclient.New(opts.ServicesHost, apiOpts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state >= LaunchStateConfigured {
		c.mu.Unlock()
		c.log.Warn("notificare is already configured, skipping")
		return nil
	}
	c.options = opts
	c.api = api
	c.state = LaunchStateConfigured
	c.mu.Unlock()

	// Load the cached application snapshot so synchronous reads work between
	// Configure and the next launch.
	if app, err := store.GetJSON[Application](ctx, c.store, storageApplicationKey); err == nil {
		c.mu.Lock()
		c.application = app
		c.mu.Unlock()
	}

	for _, comp := range c.snapshotComponents() {
		if err := comp.Configure(ctx); err != nil {
			c.log.Warn("failed to configure component",
				logger.Component(comp.Name()),
				logger.Error(err),
			)
		}
	}

	c.log.Debug("notificare configured")
	return nil
}

// Launch fetches the application snapshot, launches every registered
// component strictly in registration order and flips the state machine to
// launched, emitting the ready event.
//
// Launch is a no-op when already launched and fails with ErrLaunchInProgress
// while another launch is running. When called before Configure, the options
// loader (WithOptionsLoader) provides the configuration; without one, or when
// it fails, the launch is aborted.
//
// A component failing its launch aborts the whole operation: the state stays
// below launched and the caller may retry by calling Launch again.
func (c *Client) Launch(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case LaunchStateLaunched:
		c.mu.Unlock()
		c.log.Warn("notificare is already launched, skipping")
		return nil
	case LaunchStateLaunching:
		c.mu.Unlock()
		return ErrLaunchInProgress
	}
	needsConfig := c.state < LaunchStateConfigured
	c.mu.Unlock()

	if needsConfig {
		if c.optionsLoader == nil {
			return ErrNotConfigured
		}
		opts, err := c.optionsLoader()
		if err != nil {
			return errors.Join(ErrNotConfigured, err)
		}
		if err := c.configure(ctx, opts); err != nil {
			return err
		}
	}

	c.mu.Lock()
	switch c.state {
	case LaunchStateLaunched:
		c.mu.Unlock()
		return nil
	case LaunchStateLaunching:
		c.mu.Unlock()
		return ErrLaunchInProgress
	}
	c.state = LaunchStateLaunching
	c.mu.Unlock()

	if err := c.launch(ctx); err != nil {
		c.mu.Lock()
		c.state = LaunchStateConfigured
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = LaunchStateLaunched
	app := c.application
	pending := c.pendingRegistered
	c.pendingRegistered = nil
	c.mu.Unlock()

	c.log.Info("notificare launched", slog.String("application", app.Name))
	c.Emit(EventReady, app)

	// The device registration from the launch sequence is held back so
	// consumers never observe device_registered before ready.
	if pending != nil {
		c.Emit(EventDeviceRegistered, pending)
	}

	return nil
}

func (c *Client) launch(ctx context.Context) error {
	app, err := c.fetchApplication(ctx)
	if err != nil {
		return fmt.Errorf("notificare: fetch application: %w", err)
	}

	if err := store.SetJSON(ctx, c.store, storageApplicationKey, app); err != nil {
		c.log.Warn("failed to cache application snapshot", logger.Error(err))
	}

	c.mu.Lock()
	c.application = app
	c.mu.Unlock()

	for _, comp := range c.snapshotComponents() {
		if err := comp.Launch(ctx); err != nil {
			return fmt.Errorf("notificare: launch component %q: %w", comp.Name(), err)
		}
	}

	return nil
}

// Unlaunch tears down the session and the device registration, invoking
// Unlaunch on every component in reverse registration order (the session must
// log its close event while the device identity still exists), emits the
// unlaunched event and returns the state machine to configured. Calling
// Unlaunch when not launched is a no-op with a logged warning.
func (c *Client) Unlaunch(ctx context.Context) error {
	c.mu.Lock()
	if c.state != LaunchStateLaunched {
		c.mu.Unlock()
		c.log.Warn("notificare is not launched, skipping unlaunch")
		return nil
	}
	c.mu.Unlock()

	comps := c.snapshotComponents()
	for i := len(comps) - 1; i >= 0; i-- {
		if err := comps[i].Unlaunch(ctx); err != nil {
			return fmt.Errorf("notificare: unlaunch component %q: %w", comps[i].Name(), err)
		}
	}

	c.mu.Lock()
	c.state = LaunchStateConfigured
	c.pendingRegistered = nil
	c.mu.Unlock()

	c.log.Info("notificare unlaunched")
	c.Emit(EventUnlaunched, nil)
	return nil
}

func (o *Options) applyDefaults() {
	if o.ApplicationVersion == "" {
		o.ApplicationVersion = "1.0"
	}
	if o.ServicesHost == "" {
		o.ServicesHost = "https://push.notifica.re"
	}
	if o.DynamicLinkDomain == "" {
		o.DynamicLinkDomain = "ntc.re"
	}
}
