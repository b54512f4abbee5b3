package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/estate-crm/backend/internal/events"
	"github.com/estate-crm/backend/internal/integrations"
	"go.uber.org/zap"
)

// TeamNotifier forwards automation notifications to the team chat
// webhook (Slack-compatible incoming webhook).
type TeamNotifier struct {
	chat *integrations.TeamChatClient
	log  *zap.Logger
}

func NewTeamNotifier(webhookURL string, log *zap.Logger) *TeamNotifier {
	client := &http.Client{Timeout: 15 * time.Second}
	return &TeamNotifier{
		chat: integrations.NewTeamChatClient(webhookURL, client, log),
		log:  log,
	}
}

type TeamMessage = integrations.TeamMessage

// MessageFor renders the chat message for an automation event. ok is false
// for event types that are not forwarded.
func MessageFor(event events.Event) (msg TeamMessage, ok bool) {
	str := func(key string) string {
		v, _ := event.Payload[key].(string)
		return v
	}

	switch event.Type {
	case events.EventTeamNotification:
		text := str("message")
		if text == "" {
			text = "Automation notification"
		}
		return TeamMessage{Channel: str("channel"), Text: text}, true
	case events.EventEmailQueued:
		return TeamMessage{Text: fmt.Sprintf("Email queued to %s: %s", str("to"), str("subject"))}, true
	default:
		return TeamMessage{}, false
	}
}

func (n *TeamNotifier) Send(ctx context.Context, msg TeamMessage) error {
	if !n.chat.Configured() {
		n.log.Info("team webhook not configured, dropping notification", zap.String("channel", msg.Channel))
		return nil
	}
	return n.chat.Post(ctx, msg)
}
