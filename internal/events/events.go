package events

import "context"

// Streams
const (
	// StreamAutomation carries events emitted by automation runs.
	StreamAutomation = "events:automation"
	// StreamTriggers carries trigger events published by other CRM services.
	StreamTriggers = "events:triggers"
)

// Event types
const (
	EventAutomationExecuted = "automation.executed"
	EventEmailQueued        = "email.queued"
	EventTeamNotification   = "team.notification"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
