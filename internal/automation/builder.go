package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/estate-crm/backend/internal/llm"
	"github.com/estate-crm/backend/internal/models"
	"go.uber.org/zap"
)

const builderSystemPrompt = "You design automations for a real estate CRM. " +
	"Reply with a single JSON object and nothing else."

// Greedy on purpose: the outermost object wins when the model wraps it in prose.
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// Builder turns natural-language descriptions into automation drafts.
type Builder struct {
	llm llm.Client
	log *zap.Logger
}

func NewBuilder(client llm.Client, log *zap.Logger) *Builder {
	return &Builder{llm: client, log: log}
}

// Generate asks the model for a draft. It never fails: when the model is
// unavailable or its output is unusable the fallback draft is returned.
func (b *Builder) Generate(ctx context.Context, description string) models.AutomationDraft {
	raw, err := b.llm.Complete(ctx, builderSystemPrompt, buildPrompt(description))
	if err != nil {
		b.log.Warn("blueprint generation failed, using fallback", zap.Error(err))
		return FallbackDraft(description)
	}

	draft, err := parseDraft(raw)
	if err != nil {
		b.log.Warn("unusable blueprint from llm, using fallback", zap.Error(err))
		return FallbackDraft(description)
	}
	return draft
}

// FallbackDraft is the default automation offered when generation fails.
func FallbackDraft(description string) models.AutomationDraft {
	return models.AutomationDraft{
		Name:        "New Automation",
		Description: description,
		TriggerType: models.TriggerContactCreated,
		Actions: []models.ActionDraft{{
			ActionType: models.ActionNotifyTeam,
			Config: models.ActionConfig{
				"channel": "default",
				"message": "New automation triggered",
			},
		}},
	}
}

func buildPrompt(description string) string {
	var sb strings.Builder
	sb.WriteString("Create an automation for this request:\n")
	sb.WriteString(description)
	sb.WriteString("\n\nAvailable triggers:\n")
	for _, t := range models.SortedTriggerDefinitions() {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Type, t.Description)
	}
	sb.WriteString("\nAvailable actions:\n")
	for _, a := range models.SortedActionDefinitions() {
		fmt.Fprintf(&sb, "- %s: %s (config: %s)\n", a.Type, a.Description, strings.Join(a.ConfigFields, ", "))
	}
	sb.WriteString(`
Respond with JSON in this shape:
{"name": "...", "description": "...", "triggerType": "...", "actions": [{"actionType": "...", "config": {}}]}
Message templates may use {{field}} placeholders from the trigger payload.`)
	return sb.String()
}

func parseDraft(raw string) (models.AutomationDraft, error) {
	var draft models.AutomationDraft

	obj := jsonObjectRe.FindString(raw)
	if obj == "" {
		return draft, fmt.Errorf("no json object in response")
	}
	if err := json.Unmarshal([]byte(obj), &draft); err != nil {
		return draft, fmt.Errorf("decode draft: %w", err)
	}
	if draft.TriggerType == "" {
		return draft, fmt.Errorf("draft has no trigger type")
	}
	if len(draft.Actions) == 0 {
		return draft, fmt.Errorf("draft has no actions")
	}
	for i := range draft.Actions {
		if draft.Actions[i].Config == nil {
			draft.Actions[i].Config = models.ActionConfig{}
		}
	}
	return draft, nil
}
