package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MakeRunner triggers and manages Make (Integromat) scenarios.
type MakeRunner interface {
	Execute(ctx context.Context, scenarioID string, payload map[string]any) (*RunResult, error)
	CreateScenario(ctx context.Context, blueprint map[string]any) (*RunResult, error)
	ListScenarios(ctx context.Context) ([]RemoteFlow, error)
}

type MakeClient struct {
	hookURL string // scenario webhooks, e.g. https://hook.eu1.make.com
	apiURL  string // management API, e.g. https://eu1.make.com/api/v2
	apiKey  string
	teamID  string
	http    *httpDoer
}

func NewMakeClient(hookURL, apiURL, apiKey, teamID string, client *http.Client, log *zap.Logger) *MakeClient {
	return &MakeClient{
		hookURL: strings.TrimRight(hookURL, "/"),
		apiURL:  strings.TrimRight(apiURL, "/"),
		apiKey:  apiKey,
		teamID:  teamID,
		http:    newHTTPDoer("make", client, log),
	}
}

func (c *MakeClient) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Token " + c.apiKey}
}

// Execute posts the payload to the scenario's webhook. Make does not return
// an execution id for webhook calls, so a synthetic one is generated.
func (c *MakeClient) Execute(ctx context.Context, scenarioID string, payload map[string]any) (*RunResult, error) {
	target := fmt.Sprintf("%s/%s", c.hookURL, scenarioID)
	if _, err := c.http.do(ctx, http.MethodPost, target, nil, payload); err != nil {
		return &RunResult{Success: false, ScenarioID: scenarioID, Error: err.Error()}, err
	}
	return &RunResult{Success: true, ScenarioID: scenarioID, ExecutionID: "exec-" + uuid.NewString()}, nil
}

func (c *MakeClient) CreateScenario(ctx context.Context, blueprint map[string]any) (*RunResult, error) {
	body := make(map[string]any, len(blueprint)+1)
	for k, v := range blueprint {
		body[k] = v
	}
	body["teamId"] = c.teamID

	resp, err := c.http.do(ctx, http.MethodPost, c.apiURL+"/scenarios", c.authHeaders(), body)
	if err != nil {
		return &RunResult{Success: false, Error: err.Error()}, err
	}

	var out struct {
		Scenario struct {
			ID any `json:"id"`
		} `json:"scenario"`
		ID any `json:"id"`
	}
	if err := decodeJSON("make", resp, &out); err != nil {
		return &RunResult{Success: false, Error: err.Error()}, err
	}
	return &RunResult{Success: true, ScenarioID: firstID(out.Scenario.ID, out.ID)}, nil
}

func (c *MakeClient) ListScenarios(ctx context.Context) ([]RemoteFlow, error) {
	target := c.apiURL + "/scenarios?teamId=" + url.QueryEscape(c.teamID)
	resp, err := c.http.do(ctx, http.MethodGet, target, c.authHeaders(), nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Scenarios []struct {
			ID       any    `json:"id"`
			Name     string `json:"name"`
			IsActive bool   `json:"isActive"`
		} `json:"scenarios"`
	}
	if err := decodeJSON("make", resp, &out); err != nil {
		return nil, err
	}

	flows := make([]RemoteFlow, 0, len(out.Scenarios))
	for _, s := range out.Scenarios {
		flows = append(flows, RemoteFlow{ID: firstID(s.ID), Name: s.Name, Active: s.IsActive})
	}
	return flows, nil
}

// SimulatedMake reports success for every call (demo mode).
type SimulatedMake struct {
	log *zap.Logger
}

func NewSimulatedMake(log *zap.Logger) *SimulatedMake {
	return &SimulatedMake{log: log}
}

func (s *SimulatedMake) Execute(_ context.Context, scenarioID string, _ map[string]any) (*RunResult, error) {
	s.log.Info("make API key not configured, simulating success", zap.String("scenario_id", scenarioID))
	return &RunResult{Success: true, ScenarioID: scenarioID, ExecutionID: simulatedID()}, nil
}

func (s *SimulatedMake) CreateScenario(_ context.Context, _ map[string]any) (*RunResult, error) {
	s.log.Info("make API key not configured, simulating scenario creation")
	return &RunResult{Success: true, ScenarioID: "sc-" + simulatedID()}, nil
}

func (s *SimulatedMake) ListScenarios(context.Context) ([]RemoteFlow, error) {
	return []RemoteFlow{
		{ID: "demo-1", Name: "New Lead Notification", Active: true},
		{ID: "demo-2", Name: "CRM Sync", Active: true},
		{ID: "demo-3", Name: "Property Alert", Active: false},
	}, nil
}
