package models

import (
	"fmt"
	"math"
	"sort"
)

type ActionType string

const (
	ActionSendWhatsApp  ActionType = "send_whatsapp"
	ActionSendEmail     ActionType = "send_email"
	ActionWebhook       ActionType = "webhook"
	ActionRunN8n        ActionType = "run_n8n"
	ActionRunMake       ActionType = "run_make"
	ActionUpdateContact ActionType = "update_contact"
	ActionCreateTask    ActionType = "create_task"
	ActionAddTag        ActionType = "add_tag"
	ActionNotifyTeam    ActionType = "notify_team"
)

type ActionDefinition struct {
	Type         ActionType `json:"type"`
	Label        string     `json:"label"`
	Description  string     `json:"description"`
	ConfigFields []string   `json:"configFields"`
}

// ActionDefinitions is the action catalog. Treat as read-only.
var ActionDefinitions = map[ActionType]ActionDefinition{
	ActionSendWhatsApp:  {ActionSendWhatsApp, "Send WhatsApp", "Send a WhatsApp message to the contact", []string{"message", "phone"}},
	ActionSendEmail:     {ActionSendEmail, "Send Email", "Send an email to the contact", []string{"to", "subject", "body"}},
	ActionWebhook:       {ActionWebhook, "Call Webhook", "Make an HTTP request to an external URL", []string{"url", "method", "headers"}},
	ActionRunN8n:        {ActionRunN8n, "Run n8n Workflow", "Trigger an n8n automation workflow", []string{"workflowId"}},
	ActionRunMake:       {ActionRunMake, "Run Make Scenario", "Trigger a Make (Integromat) scenario", []string{"scenarioId"}},
	ActionUpdateContact: {ActionUpdateContact, "Update Contact", "Update contact fields in CRM", []string{"updates"}},
	ActionCreateTask:    {ActionCreateTask, "Create Task", "Create a follow-up task", []string{"title", "dueDate", "assignee"}},
	ActionAddTag:        {ActionAddTag, "Add Tag", "Add a tag to the contact", []string{"tag"}},
	ActionNotifyTeam:    {ActionNotifyTeam, "Notify Team", "Send notification to team channel", []string{"channel", "message"}},
}

func (a ActionType) IsValid() bool {
	_, ok := ActionDefinitions[a]
	return ok
}

func SortedActionDefinitions() []ActionDefinition {
	defs := make([]ActionDefinition, 0, len(ActionDefinitions))
	for _, d := range ActionDefinitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}

// ActionConfig is the free-form configuration of one action, as stored in
// the config JSONB column.
type ActionConfig map[string]any

// String returns the value under key as a string, or "" when absent.
// Non-string scalars are formatted.
func (c ActionConfig) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool applies loose truthiness: true, non-empty strings other than
// "false"/"0", and non-zero numbers count as set.
func (c ActionConfig) Bool(key string) bool {
	return Truthy(c[key])
}

func (c ActionConfig) StopOnError() bool {
	return c.Bool("stopOnError")
}

// StringMap returns a nested object of string values, e.g. webhook headers.
func (c ActionConfig) StringMap(key string) map[string]string {
	out := map[string]string{}
	switch m := c[key].(type) {
	case map[string]any:
		for k, v := range m {
			if v == nil {
				continue
			}
			out[k] = fmt.Sprint(v)
		}
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Truthy follows JavaScript truthiness for decoded JSON values, so any
// non-empty string (including "false") is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	default:
		return true
	}
}
