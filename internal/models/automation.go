package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Automation log statuses
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

type Automation struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description *string            `json:"description,omitempty"`
	TriggerType TriggerType        `json:"triggerType"`
	IsActive    bool               `json:"isActive"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Actions     []AutomationAction `json:"actions"`
}

type AutomationAction struct {
	ID           uuid.UUID    `json:"id"`
	AutomationID uuid.UUID    `json:"automationId"`
	Position     int          `json:"position"`
	ActionType   ActionType   `json:"actionType"`
	Config       ActionConfig `json:"config"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type AutomationLog struct {
	ID           uuid.UUID `json:"id"`
	AutomationID uuid.UUID `json:"automationId"`
	Status       string    `json:"status"` // success/failed
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ExecutionResult is the outcome of one executed action.
type ExecutionResult struct {
	Success    bool       `json:"success"`
	ActionType ActionType `json:"actionType"`
	Message    string     `json:"message"`
	Data       any        `json:"data,omitempty"`
}

// AutomationRun groups the results of one automation fired by an event.
type AutomationRun struct {
	AutomationID   uuid.UUID         `json:"automationId"`
	AutomationName string            `json:"automationName"`
	Results        []ExecutionResult `json:"results"`
}

// AutomationDraft is an automation definition that is not persisted yet:
// create/update input and generated blueprints.
type AutomationDraft struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	TriggerType TriggerType   `json:"triggerType"`
	Actions     []ActionDraft `json:"actions"`
}

type ActionDraft struct {
	ActionType ActionType   `json:"actionType"`
	Config     ActionConfig `json:"config"`
}

// Draft converts a stored automation back into its definition.
func (a *Automation) Draft() AutomationDraft {
	d := AutomationDraft{
		Name:        a.Name,
		TriggerType: a.TriggerType,
		Actions:     make([]ActionDraft, 0, len(a.Actions)),
	}
	if a.Description != nil {
		d.Description = *a.Description
	}
	for _, act := range a.Actions {
		d.Actions = append(d.Actions, ActionDraft{ActionType: act.ActionType, Config: act.Config})
	}
	return d
}

// Validate checks required fields and catalog membership.
func (d AutomationDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if d.TriggerType == "" {
		return fmt.Errorf("triggerType is required")
	}
	if !d.TriggerType.IsValid() {
		return fmt.Errorf("unknown trigger type %q", d.TriggerType)
	}
	for i, a := range d.Actions {
		if !a.ActionType.IsValid() {
			return fmt.Errorf("action %d: unknown action type %q", i, a.ActionType)
		}
	}
	return nil
}
