package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
)

// Persistence keys owned by the push component.
const (
	storageEnabledKey           = "re.notifica.push.remote_notifications_enabled"
	storageAllowedUIKey         = "re.notifica.push.allowed_ui"
	storageOnboardingAttemptKey = "re.notifica.push.onboarding_last_attempt"
)

// Subscription is a push channel obtained from the host.
type Subscription struct {
	// Transport is the device transport the token belongs to, e.g.
	// notificare.TransportWebPush.
	Transport string
	// Token addresses this device on the transport.
	Token string
}

// Adapter is the host's push transport. Subscribe may be retried; it must be
// safe to call again after a failure.
type Adapter interface {
	// IsSupported reports whether the host can deliver remote notifications.
	IsSupported() bool

	// Subscribe obtains a push subscription.
	Subscribe(ctx context.Context) (*Subscription, error)

	// Unsubscribe releases the active subscription.
	Unsubscribe(ctx context.Context) error
}

// Push is the remote notifications component. Create one with Attach.
type Push struct {
	notificare.BaseComponent
	client    *notificare.Client
	adapter   Adapter
	presenter NotificationPresenter
	log       *slog.Logger

	mu        sync.Mutex
	enabled   bool
	allowedUI bool
	shown     *notificare.Notification
}

// Option configures a Push component.
type Option func(*Push)

// WithAdapter sets the host push transport.
func WithAdapter(a Adapter) Option {
	return func(p *Push) {
		if a != nil {
			p.adapter = a
		}
	}
}

// WithPresenter sets the host notification rendering surface.
func WithPresenter(pr NotificationPresenter) Option {
	return func(p *Push) {
		if pr != nil {
			p.presenter = pr
		}
	}
}

// Attach registers the push component on the client.
func Attach(client *notificare.Client, opts ...Option) *Push {
	p := &Push{
		client: client,
		log:    client.Logger().With(logger.Component("push")),
	}
	for _, opt := range opts {
		opt(p)
	}
	client.RegisterComponent(p)
	return p
}

func (p *Push) Name() string { return "push" }

// Launch restores the persisted enablement flags, so a host restart keeps a
// previously enabled device enabled without a new subscription round-trip.
func (p *Push) Launch(ctx context.Context) error {
	enabled, err := store.GetJSON[bool](ctx, p.client.Store(), storageEnabledKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}
	allowedUI, err := store.GetJSON[bool](ctx, p.client.Store(), storageAllowedUIKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	p.mu.Lock()
	p.enabled = enabled != nil && *enabled
	p.allowedUI = allowedUI != nil && *allowedUI
	p.mu.Unlock()
	return nil
}

func (p *Push) Unlaunch(ctx context.Context) error {
	p.mu.Lock()
	p.enabled = false
	p.allowedUI = false
	p.shown = nil
	p.mu.Unlock()
	return p.ClearStorage(ctx)
}

func (p *Push) ClearStorage(ctx context.Context) error {
	for _, key := range []string{storageEnabledKey, storageAllowedUIKey, storageOnboardingAttemptKey} {
		if err := p.client.Store().Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// HasRemoteNotificationsEnabled reports whether the device carries an active
// push subscription.
func (p *Push) HasRemoteNotificationsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// AllowedUI reports whether the host granted notification display permission.
func (p *Push) AllowedUI() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allowedUI
}

// EnableRemoteNotifications obtains a subscription from the adapter and
// registers its token as the device token. Transient subscription failures
// are retried with exponential backoff until ctx is done.
func (p *Push) EnableRemoteNotifications(ctx context.Context) error {
	if !p.client.IsReady() {
		return notificare.ErrNotReady
	}
	if err := p.client.CheckService(notificare.ServiceWebsitePush); err != nil {
		return err
	}
	if p.adapter == nil {
		return ErrNoAdapter
	}
	if !p.adapter.IsSupported() {
		return ErrNotSupported
	}

	var sub *Subscription
	operation := func() error {
		s, err := p.adapter.Subscribe(ctx)
		if err != nil {
			p.log.Warn("push subscription attempt failed", logger.Error(err))
			return err
		}
		sub = s
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return err
	}

	if err := p.client.RegisterPushToken(ctx, sub.Transport, sub.Token); err != nil {
		return err
	}

	p.mu.Lock()
	p.enabled = true
	p.allowedUI = true
	p.mu.Unlock()

	if err := store.SetJSON(ctx, p.client.Store(), storageEnabledKey, true); err != nil {
		return err
	}
	return store.SetJSON(ctx, p.client.Store(), storageAllowedUIKey, true)
}

// DisableRemoteNotifications releases the subscription and reverts the device
// to a temporary identity.
func (p *Push) DisableRemoteNotifications(ctx context.Context) error {
	if !p.client.IsReady() {
		return notificare.ErrNotReady
	}

	if p.adapter != nil {
		if err := p.adapter.Unsubscribe(ctx); err != nil {
			p.log.Warn("failed to release push subscription", logger.Error(err))
		}
	}

	if err := p.client.RegisterTemporaryDevice(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	p.enabled = false
	p.allowedUI = false
	p.mu.Unlock()

	if err := p.client.Store().Delete(ctx, storageEnabledKey); err != nil && !store.IsNotFound(err) {
		return err
	}
	if err := p.client.Store().Delete(ctx, storageAllowedUIKey); err != nil && !store.IsNotFound(err) {
		return err
	}
	return nil
}

// HandleNotificationReceived records delivery of a notification and surfaces
// it to the host. Hosts call this when their transport hands them a payload.
func (p *Push) HandleNotificationReceived(ctx context.Context, n *notificare.Notification) {
	if n == nil {
		return
	}
	if err := p.client.LogNotificationReceive(ctx, n.ID); err != nil {
		p.log.Warn("failed to log notification delivery",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
	}
	p.client.Emit(notificare.EventNotificationReceived, n)
}

// ShouldShowOnboarding reports whether the automatic onboarding prompt is due:
// the websitePush service must advertise onboarding options, notifications
// must not already be enabled, and the configured retry interval must have
// elapsed since the previous attempt.
func (p *Push) ShouldShowOnboarding(ctx context.Context) bool {
	options := p.onboardingOptions()
	if options == nil {
		return false
	}
	if p.HasRemoteNotificationsEnabled() {
		return false
	}

	lastAttempt, err := store.GetJSON[time.Time](ctx, p.client.Store(), storageOnboardingAttemptKey)
	if err != nil || lastAttempt == nil {
		return true
	}

	retryAfter := time.Duration(options.RetryAfterHours) * time.Hour
	return p.client.Clock().Now().Sub(*lastAttempt) >= retryAfter
}

// ShowOnboarding marks the onboarding prompt visible and records the attempt.
// The host renders the prompt and reports the outcome through
// OnboardingAccepted or OnboardingDismissed.
func (p *Push) ShowOnboarding(ctx context.Context) (*notificare.AutoOnboardingOptions, error) {
	options := p.onboardingOptions()
	if options == nil {
		return nil, notificare.ErrApplicationUnavailable
	}

	if !p.client.Overlays().TryShow(notificare.OverlayOnboarding) {
		return nil, ErrOnboardingVisible
	}

	if err := store.SetJSON(ctx, p.client.Store(), storageOnboardingAttemptKey, p.client.Clock().Now()); err != nil {
		p.client.Overlays().Clear(notificare.OverlayOnboarding)
		return nil, err
	}
	return options, nil
}

// OnboardingAccepted dismisses the prompt and enables remote notifications.
func (p *Push) OnboardingAccepted(ctx context.Context) error {
	p.client.Overlays().Clear(notificare.OverlayOnboarding)
	return p.EnableRemoteNotifications(ctx)
}

// OnboardingDismissed dismisses the prompt without enabling notifications.
func (p *Push) OnboardingDismissed() {
	p.client.Overlays().Clear(notificare.OverlayOnboarding)
}

func (p *Push) onboardingOptions() *notificare.AutoOnboardingOptions {
	app, err := p.client.Application()
	if err != nil {
		return nil
	}
	if app.WebsitePushConfig == nil || app.WebsitePushConfig.LaunchConfig == nil {
		return nil
	}
	return app.WebsitePushConfig.LaunchConfig.AutoOnboardingOptions
}
