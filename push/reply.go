package push

import (
	"context"
	"net/url"
	"strings"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
)

type replyPayload struct {
	Notification string    `json:"notification"`
	DeviceID     string    `json:"deviceID"`
	UserID       string    `json:"userID,omitempty"`
	Label        string    `json:"label"`
	Data         replyData `json:"data"`
}

type replyData struct {
	Target   string `json:"target,omitempty"`
	Message  string `json:"message,omitempty"`
	Media    string `json:"media,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// PresentAction executes one of the notification's actions. App and Browser
// actions record the reply before navigating; every other type records it
// after the action completed. The notification is dismissed afterwards either
// way.
func (p *Push) PresentAction(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction) error {
	p.client.Emit(notificare.EventActionWillExecute, action)

	if !p.client.IsConfigured() {
		return notificare.ErrNotConfigured
	}

	n, err := p.client.EnsureNotification(ctx, n)
	if err != nil {
		return err
	}

	if err := p.executeAction(ctx, n, action); err != nil {
		p.client.Emit(notificare.EventActionFailedToExecute, action)
		p.Dismiss(ctx)
		return err
	}

	p.client.Emit(notificare.EventActionExecuted, action)
	p.client.Emit(notificare.EventNotificationActionOpened, action)
	p.Dismiss(ctx)
	return nil
}

func (p *Push) executeAction(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction) error {
	env := p.client.Environment()

	switch action.Type {
	case notificare.ActionTypeApp:
		// In-app navigation may still replace the host page, so record the
		// reply first.
		if err := p.sendReply(ctx, n, action, replyData{Target: action.Target}); err != nil {
			p.log.Warn("failed to record app action reply",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
		}
		if action.Target == "" {
			return nil
		}
		return env.OpenURL(ctx, action.Target)

	case notificare.ActionTypeBrowser:
		// The host leaves the page on navigation, so record the reply first.
		if err := p.sendReply(ctx, n, action, replyData{Target: action.Target}); err != nil {
			p.log.Warn("failed to record browser action reply",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
		}
		return env.OpenURL(ctx, action.Target)

	case notificare.ActionTypeCallback:
		return p.executeCallback(ctx, n, action)

	case notificare.ActionTypeCustom:
		if action.Target != "" {
			if err := env.OpenURL(ctx, action.Target); err != nil {
				return err
			}
		}
		return p.sendReply(ctx, n, action, replyData{Target: action.Target})

	case notificare.ActionTypeMail:
		if err := env.OpenURL(ctx, "mailto:"+action.Target); err != nil {
			return err
		}
		return p.sendReply(ctx, n, action, replyData{})

	case notificare.ActionTypeSMS:
		if err := env.OpenURL(ctx, "sms:"+action.Target); err != nil {
			return err
		}
		return p.sendReply(ctx, n, action, replyData{})

	case notificare.ActionTypeTelephone:
		if err := env.OpenURL(ctx, "tel:"+action.Target); err != nil {
			return err
		}
		return p.sendReply(ctx, n, action, replyData{})

	default:
		return ErrUnsupportedActionType
	}
}

// executeCallback optionally captures user input through the presenter, posts
// the webhook when the action targets one, then records the standard reply.
func (p *Push) executeCallback(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction) error {
	var reply *Reply
	if action.Camera || action.Keyboard {
		if p.presenter == nil {
			return ErrNoPresenter
		}
		captured, err := p.presenter.CaptureReply(ctx, n, action)
		if err != nil {
			return err
		}
		reply = captured
	}

	data := replyData{}
	if reply != nil {
		data.Message = reply.Message
		data.Media = reply.MediaURL
		data.MimeType = reply.MimeType
	}

	if action.Target != "" {
		data.Target = action.Target
		if err := p.sendWebhook(ctx, n, action, data); err != nil {
			return err
		}
	}

	return p.sendReply(ctx, n, action, data)
}

func (p *Push) sendReply(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction, data replyData) error {
	device, err := p.client.Device()
	if err != nil {
		return err
	}

	api, err := p.client.API()
	if err != nil {
		return err
	}

	payload := replyPayload{
		Notification: n.ID,
		DeviceID:     device.ID,
		UserID:       device.UserID,
		Label:        action.Label,
		Data:         data,
	}
	_, err = api.Post(ctx, "/api/reply", httpclient.WithJSONBody(payload))
	return err
}

// sendWebhook posts the callback payload to the action's target: the target's
// own query parameters are flattened into the body alongside the device and
// notification identity.
func (p *Push) sendWebhook(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction, data replyData) error {
	device, err := p.client.Device()
	if err != nil {
		return err
	}

	api, err := p.client.API()
	if err != nil {
		return err
	}

	target, err := url.Parse(action.Target)
	if err != nil {
		return err
	}

	body := map[string]string{
		"target":       strings.SplitN(action.Target, "?", 2)[0],
		"label":        action.Label,
		"deviceID":     device.ID,
		"notification": n.ID,
	}
	if device.UserID != "" {
		body["userID"] = device.UserID
	}
	if data.Message != "" {
		body["message"] = data.Message
	}
	if data.Media != "" {
		body["media"] = data.Media
	}
	for key, values := range target.Query() {
		if len(values) > 0 {
			body[key] = values[0]
		}
	}

	_, err = api.Post(ctx, "/api/reply/webhook", httpclient.WithJSONBody(body))
	return err
}
