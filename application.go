package notificare

import (
	"context"
)

// Backend-advertised service names used with HasService/CheckService.
const (
	ServiceWebsitePush    = "websitePush"
	ServiceInbox          = "inbox"
	ServiceInAppMessaging = "inAppMessaging"
	ServicePasses         = "passes"
	ServiceStorage        = "storage"
)

// Application is the server-provided configuration snapshot. It is immutable
// after fetch, refetched on every launch and cached in the store for
// synchronous reads between launches.
type Application struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Category          string             `json:"category"`
	Services          map[string]bool    `json:"services"`
	InboxConfig       *InboxConfig       `json:"inboxConfig,omitempty"`
	WebsitePushConfig *WebsitePushConfig `json:"websitePushConfig,omitempty"`
	RegionConfig      *RegionConfig      `json:"regionConfig,omitempty"`
	UserDataFields    []UserDataField    `json:"userDataFields"`
	ActionCategories  []ActionCategory   `json:"actionCategories"`
}

// InboxConfig describes the application's inbox capabilities.
type InboxConfig struct {
	UseInbox     bool `json:"useInbox"`
	UseUserInbox bool `json:"useUserInbox"`
	AutoBadge    bool `json:"autoBadge"`
}

// WebsitePushConfig describes the web push setup.
type WebsitePushConfig struct {
	Icon            string        `json:"icon,omitempty"`
	AllowedDomains  []string      `json:"allowedDomains"`
	URLFormatString string        `json:"urlFormatString,omitempty"`
	LaunchConfig    *LaunchConfig `json:"launchConfig,omitempty"`
	Vapid           *Vapid        `json:"vapid,omitempty"`
}

// LaunchConfig holds the automatic onboarding configuration.
type LaunchConfig struct {
	AutoOnboardingOptions *AutoOnboardingOptions `json:"autoOnboardingOptions,omitempty"`
}

// AutoOnboardingOptions configures the push onboarding prompt.
type AutoOnboardingOptions struct {
	Message           string `json:"message,omitempty"`
	CancelButton      string `json:"cancelButton,omitempty"`
	AcceptButton      string `json:"acceptButton,omitempty"`
	RetryAfterHours   int    `json:"retryAfterHours,omitempty"`
	ShowAfterSessions int    `json:"showAfterSessions,omitempty"`
}

// Vapid holds the web push VAPID public key.
type Vapid struct {
	PublicKey string `json:"publicKey"`
}

// RegionConfig describes the geo configuration.
type RegionConfig struct {
	ProximityUUID string `json:"proximityUUID,omitempty"`
}

// UserDataField describes one entry of the user-data schema.
type UserDataField struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ActionCategory groups reusable notification actions under a named category.
type ActionCategory struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Type        string               `json:"type"`
	Actions     []NotificationAction `json:"actions"`
}

type applicationResponse struct {
	Application applicationPayload `json:"application"`
}

type applicationPayload struct {
	ID                string             `json:"_id"`
	Name              string             `json:"name"`
	Category          string             `json:"category"`
	Services          map[string]bool    `json:"services"`
	InboxConfig       *InboxConfig       `json:"inboxConfig"`
	WebsitePushConfig *WebsitePushConfig `json:"websitePushConfig"`
	RegionConfig      *RegionConfig      `json:"regionConfig"`
	UserDataFields    []UserDataField    `json:"userDataFields"`
	ActionCategories  []ActionCategory   `json:"actionCategories"`
}

func (c *Client) fetchApplication(ctx context.Context) (*Application, error) {
	api, err := c.API()
	if err != nil {
		return nil, err
	}

	resp, err := api.Get(ctx, "/api/application/info")
	if err != nil {
		return nil, err
	}

	var payload applicationResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}

	app := &Application{
		ID:                payload.Application.ID,
		Name:              payload.Application.Name,
		Category:          payload.Application.Category,
		Services:          payload.Application.Services,
		InboxConfig:       payload.Application.InboxConfig,
		WebsitePushConfig: payload.Application.WebsitePushConfig,
		RegionConfig:      payload.Application.RegionConfig,
		UserDataFields:    payload.Application.UserDataFields,
		ActionCategories:  payload.Application.ActionCategories,
	}
	if app.Services == nil {
		app.Services = make(map[string]bool)
	}
	return app, nil
}
