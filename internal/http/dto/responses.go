package dto

import "github.com/estate-crm/backend/internal/models"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type TestResponse struct {
	Results []models.ExecutionResult `json:"results"`
}

type TriggerResponse struct {
	Triggered int                    `json:"triggered"`
	Results   []models.AutomationRun `json:"results"`
}
