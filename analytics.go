package notificare

import (
	"context"

	"github.com/notificare/notificare-go/pkg/httpclient"
)

// Internal analytics event types.
const (
	eventApplicationOpen  = "re.notifica.event.application.Open"
	eventApplicationClose = "re.notifica.event.application.Close"

	eventNotificationOpen       = "re.notifica.event.notification.Open"
	eventNotificationReceive    = "re.notifica.event.notification.Receive"
	eventNotificationInfluenced = "re.notifica.event.notification.Influenced"

	customEventPrefix = "re.notifica.event.custom."
)

type eventPayload struct {
	Type         string         `json:"type"`
	Timestamp    int64          `json:"timestamp"`
	DeviceID     string         `json:"deviceID,omitempty"`
	UserID       string         `json:"userID,omitempty"`
	SessionID    string         `json:"sessionID,omitempty"`
	Notification string         `json:"notification,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// logInternalEvent posts one analytics event stamped with the current device
// and session. Callers decide whether a failure is fatal; most analytics are
// best-effort and swallow the error with a log line.
func (c *Client) logInternalEvent(ctx context.Context, eventType string, data map[string]any, notificationID string) error {
	api, err := c.API()
	if err != nil {
		return err
	}

	payload := eventPayload{
		Type:         eventType,
		Timestamp:    c.clock.Now().UnixMilli(),
		SessionID:    c.session.currentID(),
		Notification: notificationID,
		Data:         data,
	}
	if device := c.device.currentDevice(); device != nil {
		payload.DeviceID = device.ID
		payload.UserID = device.UserID
	}

	_, err = api.Post(ctx, "/api/event", httpclient.WithJSONBody(payload))
	return err
}

// LogCustom posts a custom analytics event named by the host application.
// Requires a completed launch.
func (c *Client) LogCustom(ctx context.Context, event string, data map[string]any) error {
	if !c.IsReady() {
		return ErrNotReady
	}
	return c.logInternalEvent(ctx, customEventPrefix+event, data, "")
}

// LogNotificationOpen records that the given notification was opened.
func (c *Client) LogNotificationOpen(ctx context.Context, notificationID string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return c.logInternalEvent(ctx, eventNotificationOpen, nil, notificationID)
}

// LogNotificationReceive records that the given notification reached the
// device.
func (c *Client) LogNotificationReceive(ctx context.Context, notificationID string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return c.logInternalEvent(ctx, eventNotificationReceive, nil, notificationID)
}

// LogNotificationInfluenced records that the given notification influenced an
// application open.
func (c *Client) LogNotificationInfluenced(ctx context.Context, notificationID string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return c.logInternalEvent(ctx, eventNotificationInfluenced, nil, notificationID)
}

// LogEvent exposes the raw internal event logger to the feature packages
// (in-app messaging views, notification replies) that share the analytics
// pipeline.
func (c *Client) LogEvent(ctx context.Context, eventType string, data map[string]any, notificationID string) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return c.logInternalEvent(ctx, eventType, data, notificationID)
}
