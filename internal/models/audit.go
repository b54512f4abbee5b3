package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actor types
const (
	ActorOperator  = "operator"
	ActorSystem    = "system"
	ActorWebhook   = "webhook"
	ActorScheduler = "scheduler"
)

// AuditEntityAutomation is the only entity the audit trail records.
const AuditEntityAutomation = "automation"

type AuditAction string

const (
	AuditAutomationCreated      AuditAction = "automation_created"
	AuditAutomationUpdated      AuditAction = "automation_updated"
	AuditAutomationActivated    AuditAction = "automation_activated"
	AuditAutomationDeactivated  AuditAction = "automation_deactivated"
	AuditAutomationDeleted      AuditAction = "automation_deleted"
	AuditAutomationDeployedN8n  AuditAction = "automation_deployed_n8n"
	AuditAutomationDeployedMake AuditAction = "automation_deployed_make"
)

type AuditLog struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    *uuid.UUID     `json:"actorId,omitempty"`
	ActorType  string         `json:"actorType"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   *uuid.UUID     `json:"entityId,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}
