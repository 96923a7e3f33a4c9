package inappmessaging

// Message type identifiers.
const (
	MessageTypeBanner     = "re.notifica.inappmessage.Banner"
	MessageTypeCard       = "re.notifica.inappmessage.Card"
	MessageTypeFullscreen = "re.notifica.inappmessage.Fullscreen"
)

// Context identifies the moment a message evaluation runs for.
type Context string

const (
	// ContextLaunch is evaluated once per launch.
	ContextLaunch Context = "launch"
	// ContextForeground is evaluated when the host returns to the foreground.
	ContextForeground Context = "foreground"
)

// Message is an in-app message scheduled for the current device.
type Message struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Context         []string       `json:"context"`
	Title           string         `json:"title,omitempty"`
	Message         string         `json:"message,omitempty"`
	Image           string         `json:"image,omitempty"`
	LandscapeImage  string         `json:"landscapeImage,omitempty"`
	DelaySeconds    int            `json:"delaySeconds"`
	PrimaryAction   *MessageAction `json:"primaryAction,omitempty"`
	SecondaryAction *MessageAction `json:"secondaryAction,omitempty"`
}

// MessageAction is one of the up to two actions attached to a message.
type MessageAction struct {
	Label       string `json:"label,omitempty"`
	Destructive bool   `json:"destructive"`
	URL         string `json:"url,omitempty"`
}

type messageResponse struct {
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	ID              string         `json:"_id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Context         []string       `json:"context"`
	Title           string         `json:"title"`
	Message         string         `json:"message"`
	Image           string         `json:"image"`
	LandscapeImage  string         `json:"landscapeImage"`
	DelaySeconds    int            `json:"delaySeconds"`
	PrimaryAction   *MessageAction `json:"primaryAction"`
	SecondaryAction *MessageAction `json:"secondaryAction"`
}

func (p messagePayload) toMessage() *Message {
	m := &Message{
		ID:              p.ID,
		Name:            p.Name,
		Type:            p.Type,
		Context:         p.Context,
		Title:           p.Title,
		Message:         p.Message,
		Image:           p.Image,
		LandscapeImage:  p.LandscapeImage,
		DelaySeconds:    p.DelaySeconds,
		PrimaryAction:   p.PrimaryAction,
		SecondaryAction: p.SecondaryAction,
	}
	if m.Context == nil {
		m.Context = []string{}
	}
	return m
}
