package inappmessaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
)

const (
	eventMessageViewed        = "re.notifica.event.inappmessage.View"
	eventMessageActionClicked = "re.notifica.event.inappmessage.ActionClicked"

	// backgroundGrace is how long a shown message survives in the background
	// before the next foreground dismisses it.
	backgroundGrace = 5 * time.Minute
)

// Presenter renders messages on whatever surface the host owns. Present must
// return ErrUnsupportedType for message types it cannot render; the engine
// reports those as failed presentations.
type Presenter interface {
	Present(ctx context.Context, message *Message) error
	Dismiss(ctx context.Context) error
}

// Engine is the in-app messaging component. Create one with Attach.
type Engine struct {
	notificare.BaseComponent
	client    *notificare.Client
	presenter Presenter
	log       *slog.Logger

	mu           sync.Mutex
	suppressed   bool
	backgroundAt time.Time
	delayTimer   notificare.Timer
	shown        *Message
}

// Option configures an Engine.
type Option func(*Engine)

// WithPresenter sets the host rendering surface. Without one every
// presentation fails with ErrNoPresenter.
func WithPresenter(p Presenter) Option {
	return func(e *Engine) {
		if p != nil {
			e.presenter = p
		}
	}
}

// Attach registers the in-app messaging engine on the client.
func Attach(client *notificare.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		log:    client.Logger().With(logger.Component("inappmessaging")),
	}
	for _, opt := range opts {
		opt(e)
	}
	client.RegisterComponent(e)

	// A notification about to present takes the screen; force-dismiss any
	// shown message before it does.
	client.On(notificare.EventNotificationWillPresent, func(any) {
		e.DismissMessage(context.Background())
	})
	return e
}

func (e *Engine) Name() string { return "inappmessaging" }

// Launch evaluates the launch context. Evaluation failures never abort the
// overall launch; messages are opportunistic.
func (e *Engine) Launch(ctx context.Context) error {
	if !e.client.HasService(notificare.ServiceInAppMessaging) {
		e.log.Debug("in-app messaging service disabled, skipping evaluation")
		return nil
	}
	e.EvaluateContext(ctx, ContextLaunch)
	return nil
}

func (e *Engine) Unlaunch(ctx context.Context) error {
	e.mu.Lock()
	e.cancelDelayTimerLocked()
	e.suppressed = false
	hasShown := e.shown != nil
	e.mu.Unlock()

	if hasShown {
		e.DismissMessage(ctx)
	}
	return nil
}

func (e *Engine) ProcessBroadcast(ctx context.Context, event string, data any) {
	switch event {
	case notificare.BroadcastBackground:
		e.handleBackground()
	case notificare.BroadcastForeground:
		e.handleForeground(ctx)
	}
}

// IsSuppressed reports whether message presentation is currently suppressed.
func (e *Engine) IsSuppressed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suppressed
}

// SetMessagesSuppressed toggles suppression. Turning suppression off with
// evaluate set re-evaluates the foreground context immediately.
func (e *Engine) SetMessagesSuppressed(ctx context.Context, suppressed, evaluate bool) {
	e.mu.Lock()
	changed := e.suppressed != suppressed
	e.suppressed = suppressed
	if suppressed {
		e.cancelDelayTimerLocked()
	}
	e.mu.Unlock()

	if changed && !suppressed && evaluate {
		e.EvaluateContext(ctx, ContextForeground)
	}
}

// ShownMessage returns the message currently on screen, or nil.
func (e *Engine) ShownMessage() *Message {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shown == nil {
		return nil
	}
	message := *e.shown
	return &message
}

// EvaluateContext asks the backend for a message scheduled for the given
// context and presents it. A launch context with nothing scheduled falls
// through to a foreground evaluation. Failures are logged and swallowed.
func (e *Engine) EvaluateContext(ctx context.Context, evaluation Context) {
	if e.client.Overlays().IsVisible(notificare.OverlayOnboarding) ||
		e.client.Overlays().IsVisible(notificare.OverlayNotification) {
		e.log.Debug("another overlay is visible, skipping message evaluation")
		return
	}

	device, err := e.client.Device()
	if err != nil {
		e.log.Debug("no registered device, skipping message evaluation")
		return
	}

	message, err := e.fetchMessage(ctx, evaluation, device.ID)
	if err != nil {
		if httpclient.IsNotFound(err) {
			if evaluation == ContextLaunch {
				e.EvaluateContext(ctx, ContextForeground)
			}
			return
		}
		e.log.Warn("failed to evaluate message context",
			slog.String("context", string(evaluation)),
			logger.Error(err),
		)
		return
	}

	if message.DelaySeconds > 0 {
		delay := time.Duration(message.DelaySeconds) * time.Second
		e.mu.Lock()
		e.cancelDelayTimerLocked()
		e.delayTimer = e.client.Clock().AfterFunc(delay, func() {
			e.mu.Lock()
			e.delayTimer = nil
			e.mu.Unlock()
			e.presentMessage(context.Background(), message)
		})
		e.mu.Unlock()
		return
	}

	e.presentMessage(ctx, message)
}

func (e *Engine) fetchMessage(ctx context.Context, evaluation Context, deviceID string) (*Message, error) {
	api, err := e.client.API()
	if err != nil {
		return nil, err
	}

	resp, err := api.Get(ctx, "/api/inappmessage/forcontext/"+string(evaluation),
		httpclient.WithQuery("deviceID", deviceID),
	)
	if err != nil {
		return nil, err
	}

	var payload messageResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	return payload.Message.toMessage(), nil
}

func (e *Engine) presentMessage(ctx context.Context, message *Message) {
	e.mu.Lock()
	if e.shown != nil {
		e.mu.Unlock()
		e.log.Debug("another message is shown", logger.MessageID(message.ID))
		e.client.Emit(notificare.EventMessageFailedToPresent, message)
		return
	}
	if e.suppressed {
		e.mu.Unlock()
		e.log.Debug("message presentation is suppressed", logger.MessageID(message.ID))
		e.client.Emit(notificare.EventMessageFailedToPresent, message)
		return
	}
	e.mu.Unlock()

	if e.client.Overlays().IsVisible(notificare.OverlayOnboarding) ||
		e.client.Overlays().IsVisible(notificare.OverlayNotification) {
		e.log.Debug("another overlay is visible", logger.MessageID(message.ID))
		e.client.Emit(notificare.EventMessageFailedToPresent, message)
		return
	}

	if !e.client.Overlays().TryShow(notificare.OverlayMessage) {
		e.client.Emit(notificare.EventMessageFailedToPresent, message)
		return
	}

	if e.presenter == nil {
		e.client.Overlays().Clear(notificare.OverlayMessage)
		e.log.Warn("no presenter attached", logger.MessageID(message.ID))
		e.client.Emit(notificare.EventMessageFailedToPresent, message)
		return
	}

	if err := e.presenter.Present(ctx, message); err != nil {
		e.client.Overlays().Clear(notificare.OverlayMessage)
		e.log.Warn("failed to present message",
			logger.MessageID(message.ID),
			logger.Error(err),
		)
		e.client.Emit(notificare.EventMessageFailedToPresent, message)
		return
	}

	e.mu.Lock()
	e.shown = message
	e.mu.Unlock()

	e.client.Emit(notificare.EventMessagePresented, message)

	if err := e.client.LogEvent(ctx, eventMessageViewed, map[string]any{"message": message.ID}, ""); err != nil {
		e.log.Warn("failed to log message view", logger.MessageID(message.ID), logger.Error(err))
	}
}

// DismissMessage removes the shown message from screen. It is a no-op when
// nothing is shown.
func (e *Engine) DismissMessage(ctx context.Context) {
	e.mu.Lock()
	message := e.shown
	e.shown = nil
	e.mu.Unlock()

	if message == nil {
		return
	}

	if e.presenter != nil {
		if err := e.presenter.Dismiss(ctx); err != nil {
			e.log.Warn("presenter failed to dismiss message",
				logger.MessageID(message.ID),
				logger.Error(err),
			)
		}
	}
	e.client.Overlays().Clear(notificare.OverlayMessage)
	e.client.Emit(notificare.EventMessageFinishedPresenting, message)
}

// ExecuteAction runs the primary or secondary action of the shown message.
// An action without a URL just dismisses the message. The message is always
// dismissed, whether navigation succeeds or not.
func (e *Engine) ExecuteAction(ctx context.Context, primary bool) error {
	e.mu.Lock()
	message := e.shown
	e.mu.Unlock()

	if message == nil {
		return ErrNoMessageShown
	}

	action := message.SecondaryAction
	kind := "secondaryAction"
	if primary {
		action = message.PrimaryAction
		kind = "primaryAction"
	}

	if action == nil || action.URL == "" {
		e.DismissMessage(ctx)
		return nil
	}

	data := map[string]any{"message": message.ID, "action": kind}
	if err := e.client.LogEvent(ctx, eventMessageActionClicked, data, ""); err != nil {
		e.log.Warn("failed to log message action", logger.MessageID(message.ID), logger.Error(err))
	}

	if err := e.client.Environment().OpenURL(ctx, action.URL); err != nil {
		e.client.Emit(notificare.EventActionFailedToExecute, action)
		e.DismissMessage(ctx)
		return err
	}

	e.client.Emit(notificare.EventActionExecuted, action)
	e.DismissMessage(ctx)
	return nil
}

func (e *Engine) handleBackground() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelDelayTimerLocked()
	if e.shown != nil && e.backgroundAt.IsZero() {
		e.backgroundAt = e.client.Clock().Now()
	}
}

func (e *Engine) handleForeground(ctx context.Context) {
	e.mu.Lock()
	backgroundAt := e.backgroundAt
	e.backgroundAt = time.Time{}
	expired := e.shown != nil && !backgroundAt.IsZero() &&
		e.client.Clock().Now().Sub(backgroundAt) > backgroundGrace
	e.mu.Unlock()

	if expired {
		e.log.Debug("dismissing message shown across a long background period")
		e.DismissMessage(ctx)
	}

	e.mu.Lock()
	busy := e.shown != nil || e.suppressed
	e.mu.Unlock()

	if busy || !e.client.IsReady() {
		return
	}
	e.EvaluateContext(ctx, ContextForeground)
}

func (e *Engine) cancelDelayTimerLocked() {
	if e.delayTimer != nil {
		e.delayTimer.Stop()
		e.delayTimer = nil
	}
}
