package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the SDK component name under the key "component".
func Component(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("component", name)
}

// DeviceID records the device identifier under the key "device_id".
func DeviceID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("device_id", id)
}

// SessionID records the analytics session identifier under the key "session_id".
func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("notification_id", id)
}

// MessageID records the in-app message identifier under the key "message_id".
func MessageID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("message_id", id)
}

// EventType records an analytics event type under the key "event_type".
func EventType(t string) slog.Attr {
	if t == "" {
		return slog.Attr{}
	}
	return slog.String("event_type", t)
}
