package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogs(t *testing.T) {
	assert.Len(t, TriggerDefinitions, 14)
	assert.Len(t, ActionDefinitions, 9)

	for k, d := range TriggerDefinitions {
		assert.Equal(t, k, d.Type)
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.Description)
	}
	for k, d := range ActionDefinitions {
		assert.Equal(t, k, d.Type)
		assert.NotEmpty(t, d.ConfigFields, "action %s has no config fields", k)
	}
}

func TestSortedDefinitions(t *testing.T) {
	triggers := SortedTriggerDefinitions()
	assert.Equal(t, TriggerCampaignCompleted, triggers[0].Type)
	for i := 1; i < len(triggers); i++ {
		assert.Less(t, triggers[i-1].Type, triggers[i].Type)
	}

	actions := SortedActionDefinitions()
	assert.Equal(t, ActionAddTag, actions[0].Type)
	assert.Len(t, actions, len(ActionDefinitions))
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected bool
	}{
		{"nil", nil, false},
		{"true", true, true},
		{"false", false, false},
		{"string yes", "yes", true},
		{"string true", "true", true},
		{"string false", "false", true},
		{"string zero", "0", true},
		{"empty string", "", false},
		{"nan", math.NaN(), false},
		{"float one", float64(1), true},
		{"float zero", float64(0), false},
		{"int", 3, true},
		{"object", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truthy(tt.input))
		})
	}
}

func TestActionConfig_Accessors(t *testing.T) {
	cfg := ActionConfig{
		"message":     "Hi {{name}}",
		"retries":     float64(2),
		"stopOnError": true,
		"headers":     map[string]any{"X-Token": "abc", "X-Count": float64(3), "X-Nil": nil},
	}

	assert.Equal(t, "Hi {{name}}", cfg.String("message"))
	assert.Equal(t, "2", cfg.String("retries"))
	assert.Equal(t, "", cfg.String("missing"))
	assert.True(t, cfg.StopOnError())
	assert.Equal(t, map[string]string{"X-Token": "abc", "X-Count": "3"}, cfg.StringMap("headers"))
	assert.Empty(t, cfg.StringMap("missing"))
	assert.False(t, ActionConfig(nil).StopOnError())
}

func TestAutomationDraft_Validate(t *testing.T) {
	tests := []struct {
		name    string
		draft   AutomationDraft
		wantErr string
	}{
		{
			name:  "valid",
			draft: AutomationDraft{Name: "Welcome", TriggerType: TriggerContactCreated, Actions: []ActionDraft{{ActionType: ActionNotifyTeam}}},
		},
		{
			name:  "valid without actions",
			draft: AutomationDraft{Name: "Empty", TriggerType: TriggerDealCreated},
		},
		{
			name:    "missing name",
			draft:   AutomationDraft{Name: "  ", TriggerType: TriggerContactCreated},
			wantErr: "name is required",
		},
		{
			name:    "missing trigger",
			draft:   AutomationDraft{Name: "x"},
			wantErr: "triggerType is required",
		},
		{
			name:    "unknown trigger",
			draft:   AutomationDraft{Name: "x", TriggerType: "contact.exploded"},
			wantErr: `unknown trigger type "contact.exploded"`,
		},
		{
			name:    "unknown action",
			draft:   AutomationDraft{Name: "x", TriggerType: TriggerIntentHigh, Actions: []ActionDraft{{ActionType: ActionAddTag}, {ActionType: "send_fax"}}},
			wantErr: `action 1: unknown action type "send_fax"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestAutomation_Draft(t *testing.T) {
	desc := "Greets new leads"
	a := &Automation{
		Name:        "Welcome",
		Description: &desc,
		TriggerType: TriggerContactCreated,
		Actions: []AutomationAction{
			{Position: 0, ActionType: ActionSendWhatsApp, Config: ActionConfig{"message": "Hi"}},
			{Position: 1, ActionType: ActionAddTag, Config: ActionConfig{"tag": "new"}},
		},
	}

	d := a.Draft()
	assert.Equal(t, "Welcome", d.Name)
	assert.Equal(t, desc, d.Description)
	assert.Equal(t, TriggerContactCreated, d.TriggerType)
	assert.Equal(t, []ActionDraft{
		{ActionType: ActionSendWhatsApp, Config: ActionConfig{"message": "Hi"}},
		{ActionType: ActionAddTag, Config: ActionConfig{"tag": "new"}},
	}, d.Actions)
}

func TestNewTriggerEvent(t *testing.T) {
	e := NewTriggerEvent(TriggerFormSubmitted, nil)
	assert.Equal(t, TriggerFormSubmitted, e.Type)
	assert.NotNil(t, e.Payload)
	assert.False(t, e.Timestamp.IsZero())
}
