package integrations

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// TeamMessage is the Slack-compatible incoming webhook payload.
type TeamMessage struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// TeamChatClient posts messages to the team chat incoming webhook.
type TeamChatClient struct {
	webhookURL string
	http       *httpDoer
}

func NewTeamChatClient(webhookURL string, client *http.Client, log *zap.Logger) *TeamChatClient {
	return &TeamChatClient{webhookURL: webhookURL, http: newHTTPDoer("team_chat", client, log)}
}

func (c *TeamChatClient) Configured() bool {
	return c.webhookURL != ""
}

func (c *TeamChatClient) Post(ctx context.Context, msg TeamMessage) error {
	_, err := c.http.do(ctx, http.MethodPost, c.webhookURL, nil, msg)
	return err
}
