package integrations

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RunResult is the outcome of starting an external workflow/scenario.
type RunResult struct {
	Success     bool   `json:"success"`
	WorkflowID  string `json:"workflowId,omitempty"`
	ScenarioID  string `json:"scenarioId,omitempty"`
	ExecutionID string `json:"executionId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RemoteFlow is a workflow (n8n) or scenario (Make) known to the vendor.
type RemoteFlow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// N8nRunner triggers and manages n8n workflows.
type N8nRunner interface {
	Execute(ctx context.Context, workflowID string, payload map[string]any) (*RunResult, error)
	CreateWorkflow(ctx context.Context, blueprint map[string]any) (*RunResult, error)
	ListWorkflows(ctx context.Context) ([]RemoteFlow, error)
}

type N8nClient struct {
	baseURL string
	apiKey  string
	http    *httpDoer
}

func NewN8nClient(baseURL, apiKey string, client *http.Client, log *zap.Logger) *N8nClient {
	return &N8nClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    newHTTPDoer("n8n", client, log),
	}
}

func (c *N8nClient) headers() map[string]string {
	return map[string]string{"X-N8N-API-KEY": c.apiKey}
}

func (c *N8nClient) Execute(ctx context.Context, workflowID string, payload map[string]any) (*RunResult, error) {
	url := fmt.Sprintf("%s/api/v1/workflows/%s/execute", c.baseURL, workflowID)
	resp, err := c.http.do(ctx, http.MethodPost, url, c.headers(), map[string]any{"data": payload})
	if err != nil {
		return &RunResult{Success: false, WorkflowID: workflowID, Error: err.Error()}, err
	}

	var body struct {
		ExecutionID any `json:"executionId"`
		ID          any `json:"id"`
	}
	if err := decodeJSON("n8n", resp, &body); err != nil {
		return &RunResult{Success: false, WorkflowID: workflowID, Error: err.Error()}, err
	}

	return &RunResult{
		Success:     true,
		WorkflowID:  workflowID,
		ExecutionID: firstID(body.ExecutionID, body.ID),
	}, nil
}

func (c *N8nClient) CreateWorkflow(ctx context.Context, blueprint map[string]any) (*RunResult, error) {
	resp, err := c.http.do(ctx, http.MethodPost, c.baseURL+"/api/v1/workflows", c.headers(), blueprint)
	if err != nil {
		return &RunResult{Success: false, Error: err.Error()}, err
	}

	var body struct {
		ID any `json:"id"`
	}
	if err := decodeJSON("n8n", resp, &body); err != nil {
		return &RunResult{Success: false, Error: err.Error()}, err
	}
	return &RunResult{Success: true, WorkflowID: firstID(body.ID)}, nil
}

func (c *N8nClient) ListWorkflows(ctx context.Context) ([]RemoteFlow, error) {
	resp, err := c.http.do(ctx, http.MethodGet, c.baseURL+"/api/v1/workflows", c.headers(), nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Data []struct {
			ID     any    `json:"id"`
			Name   string `json:"name"`
			Active bool   `json:"active"`
		} `json:"data"`
	}
	if err := decodeJSON("n8n", resp, &body); err != nil {
		return nil, err
	}

	flows := make([]RemoteFlow, 0, len(body.Data))
	for _, w := range body.Data {
		flows = append(flows, RemoteFlow{ID: firstID(w.ID), Name: w.Name, Active: w.Active})
	}
	return flows, nil
}

// SimulatedN8n reports success for every call (demo mode).
type SimulatedN8n struct {
	log *zap.Logger
}

func NewSimulatedN8n(log *zap.Logger) *SimulatedN8n {
	return &SimulatedN8n{log: log}
}

func (s *SimulatedN8n) Execute(_ context.Context, workflowID string, _ map[string]any) (*RunResult, error) {
	s.log.Info("n8n API key not configured, simulating success", zap.String("workflow_id", workflowID))
	return &RunResult{Success: true, WorkflowID: workflowID, ExecutionID: simulatedID()}, nil
}

func (s *SimulatedN8n) CreateWorkflow(_ context.Context, _ map[string]any) (*RunResult, error) {
	s.log.Info("n8n API key not configured, simulating workflow creation")
	return &RunResult{Success: true, WorkflowID: "wf-" + simulatedID()}, nil
}

func (s *SimulatedN8n) ListWorkflows(context.Context) ([]RemoteFlow, error) {
	return []RemoteFlow{
		{ID: "demo-1", Name: "Lead Qualification Flow", Active: true},
		{ID: "demo-2", Name: "Follow-up Sequence", Active: true},
		{ID: "demo-3", Name: "Data Enrichment", Active: false},
	}, nil
}

// firstID returns the first non-empty id, formatting numeric ids.
func firstID(values ...any) string {
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			if x != "" {
				return x
			}
		case float64:
			return fmt.Sprintf("%.0f", x)
		default:
			return fmt.Sprint(x)
		}
	}
	return ""
}
