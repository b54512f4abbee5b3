package dto

import "github.com/estate-crm/backend/internal/models"

type ActionRequest struct {
	ActionType models.ActionType   `json:"actionType"`
	Config     models.ActionConfig `json:"config"`
}

// AutomationRequest is the body of create and update.
type AutomationRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TriggerType models.TriggerType `json:"triggerType"`
	Actions     []ActionRequest    `json:"actions"`
}

func (r AutomationRequest) Draft() models.AutomationDraft {
	d := models.AutomationDraft{
		Name:        r.Name,
		Description: r.Description,
		TriggerType: r.TriggerType,
		Actions:     make([]models.ActionDraft, 0, len(r.Actions)),
	}
	for _, a := range r.Actions {
		d.Actions = append(d.Actions, models.ActionDraft{ActionType: a.ActionType, Config: a.Config})
	}
	return d
}

type ToggleRequest struct {
	IsActive *bool `json:"isActive"`
}

type TestRequest struct {
	Payload map[string]any `json:"payload,omitempty"`
}

type GenerateRequest struct {
	Description string `json:"description"`
}

type TriggerRequest struct {
	TriggerType models.TriggerType `json:"triggerType"`
	Payload     map[string]any     `json:"payload,omitempty"`
}
