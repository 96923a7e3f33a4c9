package notificare

import (
	"context"
	"log/slog"
	"sync"

	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/store"
)

// Persistence keys owned by the core SDK. Feature packages define their own
// keys under the same "re.notifica." namespace.
const (
	storageDeviceKey        = "re.notifica.device"
	storageSessionKey       = "re.notifica.session"
	storageSessionUnloadKey = "re.notifica.session_unload_at"
	storageApplicationKey   = "re.notifica.application"
)

// Client is the SDK entry point: it owns the launch state machine, the
// component registry, the event surface and the shared infrastructure
// (store, REST client, clock, host environment) the feature packages build
// on. All SDK state lives on the Client; there are no package-level
// singletons, so multiple clients can coexist in one process.
//
// A Client is safe for concurrent use.
type Client struct {
	log           *slog.Logger
	store         store.Store
	env           Environment
	clock         Clock
	optionsLoader func() (*Options, error)
	apiOptions    []httpclient.Option

	mu                sync.Mutex
	state             LaunchState
	options           *Options
	api               *httpclient.Client
	application       *Application
	pendingRegistered *Device

	components     []Component
	componentNames map[string]struct{}

	emitter  *emitter
	overlays *OverlayCoordinator

	device  *deviceManager
	session *sessionManager
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the SDK logger. Nil loggers are ignored.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithStore sets the persistence backend. Defaults to an in-memory store,
// which loses the device identity on process exit; durable hosts should use
// store.FileStore or store.RedisStore.
func WithStore(s store.Store) ClientOption {
	return func(c *Client) {
		if s != nil {
			c.store = s
		}
	}
}

// WithEnvironment sets the host environment abstraction.
func WithEnvironment(env Environment) ClientOption {
	return func(c *Client) {
		if env != nil {
			c.env = env
		}
	}
}

// WithClock replaces the time source, primarily for tests.
func WithClock(clock Clock) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithOptionsLoader sets the fallback used when Launch runs before Configure.
// The loader typically wraps LoadOptions or ConfigFromEnv.
func WithOptionsLoader(loader func() (*Options, error)) ClientOption {
	return func(c *Client) {
		if loader != nil {
			c.optionsLoader = loader
		}
	}
}

// WithAPIOptions appends options applied to the REST client built during
// Configure, e.g. a custom transport or sleeper in tests.
func WithAPIOptions(opts ...httpclient.Option) ClientOption {
	return func(c *Client) {
		c.apiOptions = append(c.apiOptions, opts...)
	}
}

// New creates an unconfigured Client. The device and session components are
// registered immediately, in that order: the session tracker logs analytics
// events against the device identity, so the device component must always
// launch first. Feature packages append themselves behind these two.
func New(opts ...ClientOption) *Client {
	c := &Client{
		log:            slog.Default(),
		store:          store.NewMemoryStore(),
		clock:          NewSystemClock(),
		componentNames: make(map[string]struct{}),
		overlays:       newOverlayCoordinator(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.env == nil {
		c.env = NewStandardEnvironment(WithEnvironmentLogger(c.log))
	}
	c.emitter = newEmitter(c.log)

	c.device = &deviceManager{client: c}
	c.session = &sessionManager{client: c}
	c.RegisterComponent(c.device)
	c.RegisterComponent(c.session)

	return c
}

// State returns the current launch state.
func (c *Client) State() LaunchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConfigured reports whether Configure has completed.
func (c *Client) IsConfigured() bool { return c.State() >= LaunchStateConfigured }

// IsReady reports whether the SDK is fully launched.
func (c *Client) IsReady() bool { return c.State() == LaunchStateLaunched }

// Options returns a copy of the configured options, or nil before Configure.
func (c *Client) Options() *Options {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.options == nil {
		return nil
	}
	opts := *c.options
	return &opts
}

// API returns the REST client. Fails with ErrNotConfigured before Configure.
func (c *Client) API() (*httpclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		return nil, ErrNotConfigured
	}
	return c.api, nil
}

// Store returns the persistence backend.
func (c *Client) Store() store.Store { return c.store }

// Clock returns the SDK time source.
func (c *Client) Clock() Clock { return c.clock }

// Environment returns the host environment.
func (c *Client) Environment() Environment { return c.env }

// Logger returns the SDK logger.
func (c *Client) Logger() *slog.Logger { return c.log }

// Overlays returns the coordinator mediating exclusive overlay presentation.
func (c *Client) Overlays() *OverlayCoordinator { return c.overlays }

// Application returns the application snapshot fetched on launch, or the
// cached copy from a previous launch. Fails with ErrApplicationUnavailable
// when neither exists.
func (c *Client) Application() (*Application, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.application == nil {
		return nil, ErrApplicationUnavailable
	}
	return c.application, nil
}

// HasService reports whether the backend advertises the named service as
// enabled for this application.
func (c *Client) HasService(service string) bool {
	app, err := c.Application()
	if err != nil {
		return false
	}
	return app.Services[service]
}

// CheckService fails with a ServiceUnavailableError when the named service is
// disabled or the application snapshot is missing.
func (c *Client) CheckService(service string) error {
	app, err := c.Application()
	if err != nil {
		return err
	}
	if !app.Services[service] {
		return &ServiceUnavailableError{Service: service}
	}
	return nil
}

// HandleForeground signals that the host application became visible. The
// session tracker and the presentation engines react through the component
// broadcast.
func (c *Client) HandleForeground(ctx context.Context) {
	c.broadcast(ctx, BroadcastForeground, nil)
}

// HandleBackground signals that the host application was hidden.
func (c *Client) HandleBackground(ctx context.Context) {
	c.broadcast(ctx, BroadcastBackground, nil)
}

// HandleUnload signals that the host is about to terminate or reload. The
// session tracker persists an unload timestamp so a quick restart can resume
// the session.
func (c *Client) HandleUnload(ctx context.Context) {
	c.broadcast(ctx, BroadcastUnload, nil)
}

func (c *Client) setPendingRegistered(device *Device) (deferred bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == LaunchStateLaunched {
		return false
	}
	c.pendingRegistered = device
	return true
}
