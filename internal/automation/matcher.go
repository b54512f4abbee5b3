// Package automation matches trigger events to automations, runs their
// actions, and converts automations to and from external blueprints.
package automation

import "github.com/estate-crm/backend/internal/models"

// Match returns the active automations whose trigger equals the event type,
// in input order. Every match fires; there is no priority.
func Match(event models.TriggerEvent, automations []models.Automation) []models.Automation {
	var matched []models.Automation
	for _, a := range automations {
		if a.IsActive && a.TriggerType == event.Type {
			matched = append(matched, a)
		}
	}
	return matched
}
