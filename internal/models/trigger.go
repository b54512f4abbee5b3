package models

import (
	"sort"
	"time"
)

type TriggerType string

const (
	TriggerContactCreated    TriggerType = "contact.created"
	TriggerContactUpdated    TriggerType = "contact.updated"
	TriggerContactScoredHigh TriggerType = "contact.scored_high"
	TriggerIntentHigh        TriggerType = "intent.high"
	TriggerIntentMedium      TriggerType = "intent.medium"
	TriggerWhatsAppReceived  TriggerType = "whatsapp.received"
	TriggerCampaignCompleted TriggerType = "campaign.completed"
	TriggerDealCreated       TriggerType = "deal.created"
	TriggerDealStageChanged  TriggerType = "deal.stage_changed"
	TriggerPropertyViewed    TriggerType = "property.viewed"
	TriggerFormSubmitted     TriggerType = "form.submitted"
	TriggerScheduleDaily     TriggerType = "schedule.daily"
	TriggerScheduleWeekly    TriggerType = "schedule.weekly"
	TriggerWebhookReceived   TriggerType = "webhook.received"
)

type TriggerDefinition struct {
	Type        TriggerType `json:"type"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
}

// TriggerDefinitions is the trigger catalog. Treat as read-only.
var TriggerDefinitions = map[TriggerType]TriggerDefinition{
	TriggerContactCreated:    {TriggerContactCreated, "Contact Created", "Triggered when a new contact is added to the CRM"},
	TriggerContactUpdated:    {TriggerContactUpdated, "Contact Updated", "Triggered when contact information is modified"},
	TriggerContactScoredHigh: {TriggerContactScoredHigh, "Contact Scored High", "Triggered when a contact's score exceeds threshold"},
	TriggerIntentHigh:        {TriggerIntentHigh, "High Intent Detected", "Triggered when buyer intent scan shows high score"},
	TriggerIntentMedium:      {TriggerIntentMedium, "Medium Intent Detected", "Triggered when buyer intent scan shows medium score"},
	TriggerWhatsAppReceived:  {TriggerWhatsAppReceived, "WhatsApp Message Received", "Triggered when a WhatsApp message is received"},
	TriggerCampaignCompleted: {TriggerCampaignCompleted, "Campaign Completed", "Triggered when a campaign finishes execution"},
	TriggerDealCreated:       {TriggerDealCreated, "Deal Created", "Triggered when a new deal is created"},
	TriggerDealStageChanged:  {TriggerDealStageChanged, "Deal Stage Changed", "Triggered when a deal moves to a new stage"},
	TriggerPropertyViewed:    {TriggerPropertyViewed, "Property Viewed", "Triggered when a property listing is viewed"},
	TriggerFormSubmitted:     {TriggerFormSubmitted, "Form Submitted", "Triggered when a web form is submitted"},
	TriggerScheduleDaily:     {TriggerScheduleDaily, "Daily Schedule", "Triggered once per day at specified time"},
	TriggerScheduleWeekly:    {TriggerScheduleWeekly, "Weekly Schedule", "Triggered once per week on specified day"},
	TriggerWebhookReceived:   {TriggerWebhookReceived, "Webhook Received", "Triggered when external webhook is received"},
}

func (t TriggerType) IsValid() bool {
	_, ok := TriggerDefinitions[t]
	return ok
}

// SortedTriggerDefinitions returns the catalog ordered by type.
func SortedTriggerDefinitions() []TriggerDefinition {
	defs := make([]TriggerDefinition, 0, len(TriggerDefinitions))
	for _, d := range TriggerDefinitions {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}

// TriggerEvent is an incoming occurrence that may fire automations.
// It is never persisted.
type TriggerEvent struct {
	Type      TriggerType    `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewTriggerEvent(t TriggerType, payload map[string]any) TriggerEvent {
	if payload == nil {
		payload = map[string]any{}
	}
	return TriggerEvent{Type: t, Payload: payload, Timestamp: time.Now()}
}
