package http

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/estate-crm/backend/internal/automation"
	"github.com/estate-crm/backend/internal/config"
	"github.com/estate-crm/backend/internal/integrations"
	"github.com/estate-crm/backend/internal/llm"
	"github.com/estate-crm/backend/internal/metrics"
	"github.com/estate-crm/backend/internal/models"
	"github.com/estate-crm/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu    sync.Mutex
	items []models.Automation
	logs  []models.AutomationLog
	audit []models.AuditLog
}

func (m *memStore) List(context.Context) ([]models.Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Automation{}, m.items...), nil
}

func (m *memStore) ListActiveByTrigger(ctx context.Context, trigger models.TriggerType) ([]models.Automation, error) {
	all, _ := m.List(ctx)
	var out []models.Automation
	for _, a := range all {
		if a.IsActive && a.TriggerType == trigger {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, services.ErrNotFound
}

func (m *memStore) Create(_ context.Context, a *models.Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.items = append(m.items, *a)
	return nil
}

func (m *memStore) Update(_ context.Context, a *models.Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == a.ID {
			a.IsActive = m.items[i].IsActive
			m.items[i] = *a
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].IsActive = active
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return services.ErrNotFound
}

func (m *memStore) Log(_ context.Context, entry models.AutomationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memStore) ListByAutomation(_ context.Context, id uuid.UUID, _, _ int) ([]models.AutomationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AutomationLog{}
	for _, l := range m.logs {
		if l.AutomationID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

type memAudit struct{ store *memStore }

func (a memAudit) Record(_ context.Context, e models.AuditLog) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	a.store.audit = append(a.store.audit, e)
	return nil
}

func (a memAudit) ListForAutomation(context.Context, uuid.UUID, int, int) ([]models.AuditLog, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return append([]models.AuditLog{}, a.store.audit...), nil
}

func newTestApp(t *testing.T) (*fiber.App, *memStore) {
	t.Helper()
	log := zap.NewNop()
	store := &memStore{}
	clients := integrations.Set{
		WhatsApp: integrations.NewSimulatedWhatsApp(log),
		N8n:      integrations.NewSimulatedN8n(log),
		Make:     integrations.NewSimulatedMake(log),
		Webhook:  integrations.NewHTTPWebhookCaller(httptestClient(), log),
	}
	m := metrics.NewRegistry()
	executor := automation.NewExecutor(store, clients, nil, m, log)
	builder := automation.NewBuilder(llm.Simulated{}, log)
	svc := services.NewAutomationService(store, store, memAudit{store}, executor, builder, clients, nil, m, log)

	app := NewApp()
	SetupRouter(app, Deps{
		Config:            &config.Config{CORSAllowOrigins: "*", JWTSecret: "secret"},
		Log:               log,
		Metrics:           m,
		AutomationService: svc,
	})
	return app, store
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

const welcomeBody = `{
	"name": "Welcome",
	"triggerType": "contact.created",
	"actions": [
		{"actionType": "send_whatsapp", "config": {"message": "Hi {{name}}"}},
		{"actionType": "notify_team", "config": {"channel": "sales"}}
	]
}`

func createWelcome(t *testing.T, app *fiber.App) models.Automation {
	t.Helper()
	status, body := do(t, app, "POST", "/api/automations", welcomeBody)
	require.Equal(t, fiber.StatusCreated, status, string(body))
	var a models.Automation
	require.NoError(t, json.Unmarshal(body, &a))
	return a
}

func TestCreateAndGet(t *testing.T) {
	app, _ := newTestApp(t)
	a := createWelcome(t, app)

	assert.Equal(t, "Welcome", a.Name)
	assert.True(t, a.IsActive)
	require.Len(t, a.Actions, 2)

	status, body := do(t, app, "GET", "/api/automations/"+a.ID.String(), "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), `"triggerType":"contact.created"`)

	status, body = do(t, app, "GET", "/api/automations", "")
	assert.Equal(t, 200, status)
	var list []models.Automation
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)
}

func TestCreate_BadInput(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed", `{"name":`, "invalid request"},
		{"missing name", `{"triggerType":"contact.created"}`, "name is required"},
		{"unknown trigger", `{"name":"x","triggerType":"nope"}`, `unknown trigger type \"nope\"`},
		{"unknown action", `{"name":"x","triggerType":"deal.created","actions":[{"actionType":"fax"}]}`, "unknown action type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, "POST", "/api/automations", tt.body)
			assert.Equal(t, 400, status)
			assert.Contains(t, string(body), tt.wantErr)
		})
	}
}

func TestNotFoundAndInvalidID(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := do(t, app, "GET", "/api/automations/"+uuid.NewString(), "")
	assert.Equal(t, 404, status)

	status, _ = do(t, app, "DELETE", "/api/automations/"+uuid.NewString(), "")
	assert.Equal(t, 404, status)

	status, body := do(t, app, "GET", "/api/automations/not-a-uuid", "")
	assert.Equal(t, 400, status)
	assert.Contains(t, string(body), "invalid automation id")
}

func TestToggleAndDelete(t *testing.T) {
	app, store := newTestApp(t)
	a := createWelcome(t, app)

	status, body := do(t, app, "PATCH", "/api/automations/"+a.ID.String()+"/toggle", `{"isActive":false}`)
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"success":true}`, string(body))
	assert.False(t, store.items[0].IsActive)

	status, _ = do(t, app, "PATCH", "/api/automations/"+a.ID.String()+"/toggle", `{}`)
	assert.Equal(t, 400, status)

	status, body = do(t, app, "DELETE", "/api/automations/"+a.ID.String(), "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"success":true}`, string(body))
	assert.Empty(t, store.items)
}

func TestUpdate(t *testing.T) {
	app, _ := newTestApp(t)
	a := createWelcome(t, app)

	status, body := do(t, app, "PUT", "/api/automations/"+a.ID.String(),
		`{"name":"Renamed","triggerType":"deal.created","actions":[{"actionType":"add_tag","config":{"tag":"x"}}]}`)
	require.Equal(t, 200, status, string(body))

	var updated models.Automation
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.TriggerDealCreated, updated.TriggerType)
	assert.Len(t, updated.Actions, 1)
}

func TestTestEndpointWritesLogs(t *testing.T) {
	app, _ := newTestApp(t)
	a := createWelcome(t, app)

	status, body := do(t, app, "POST", "/api/automations/"+a.ID.String()+"/test", `{"payload":{"phone":"+34600","name":"Ana"}}`)
	require.Equal(t, 200, status)

	var res struct {
		Results []models.ExecutionResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, "WhatsApp sent to +34600", res.Results[0].Message)

	status, body = do(t, app, "GET", "/api/automations/"+a.ID.String()+"/logs", "")
	require.Equal(t, 200, status)
	var logs []models.AutomationLog
	require.NoError(t, json.Unmarshal(body, &logs))
	assert.Len(t, logs, 2)
}

func TestTestEndpointWithoutBody(t *testing.T) {
	app, _ := newTestApp(t)
	a := createWelcome(t, app)

	status, body := do(t, app, "POST", "/api/automations/"+a.ID.String()+"/test", "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), "No phone number")
}

func TestTriggerWebhook(t *testing.T) {
	app, _ := newTestApp(t)
	createWelcome(t, app)
	createWelcome(t, app)

	status, body := do(t, app, "POST", "/api/webhooks/automation-trigger",
		`{"triggerType":"contact.created","payload":{"phone":"+1","name":"Ana"}}`)
	require.Equal(t, 200, status)

	var res struct {
		Triggered int                    `json:"triggered"`
		Results   []models.AutomationRun `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 2, res.Triggered)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "Welcome", res.Results[0].AutomationName)
	assert.Len(t, res.Results[0].Results, 2)

	status, body = do(t, app, "POST", "/api/webhooks/automation-trigger", `{"triggerType":"deal.created"}`)
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"triggered":0,"results":[]}`, string(body))

	status, _ = do(t, app, "POST", "/api/webhooks/automation-trigger", `{"payload":{}}`)
	assert.Equal(t, 400, status)
}

func TestCatalogs(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, "GET", "/api/automations/triggers", "")
	require.Equal(t, 200, status)
	var triggers []models.TriggerDefinition
	require.NoError(t, json.Unmarshal(body, &triggers))
	assert.Len(t, triggers, len(models.TriggerDefinitions))

	status, body = do(t, app, "GET", "/api/automations/actions", "")
	require.Equal(t, 200, status)
	var actions []models.ActionDefinition
	require.NoError(t, json.Unmarshal(body, &actions))
	assert.Len(t, actions, len(models.ActionDefinitions))
}

func TestGenerateFallsBackWithoutLLM(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, "POST", "/api/automations/generate", `{"description":"greet new leads"}`)
	require.Equal(t, 200, status)

	var draft models.AutomationDraft
	require.NoError(t, json.Unmarshal(body, &draft))
	assert.Equal(t, "New Automation", draft.Name)
	assert.Equal(t, "greet new leads", draft.Description)

	status, _ = do(t, app, "POST", "/api/automations/generate", `{}`)
	assert.Equal(t, 400, status)
}

func TestExportAndDeploy(t *testing.T) {
	app, store := newTestApp(t)
	a := createWelcome(t, app)
	base := "/api/automations/" + a.ID.String()

	status, body := do(t, app, "POST", base+"/export/n8n", "")
	require.Equal(t, 200, status)
	var wf automation.N8nWorkflow
	require.NoError(t, json.Unmarshal(body, &wf))
	assert.Len(t, wf.Nodes, 3)

	status, body = do(t, app, "POST", base+"/export/make", "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), "gateway:CustomWebHook")

	status, body = do(t, app, "POST", base+"/deploy/n8n", "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), `"success":true`)

	status, _ = do(t, app, "POST", base+"/deploy/make", "")
	require.Equal(t, 200, status)

	status, body = do(t, app, "GET", base+"/audit", "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), "automation_deployed_make")
	assert.Len(t, store.audit, 3)
}

func TestIntegrationLists(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, "GET", "/api/integrations/n8n/workflows", "")
	require.Equal(t, 200, status)
	assert.Contains(t, string(body), "demo-1")

	status, _ = do(t, app, "GET", "/api/integrations/make/scenarios", "")
	assert.Equal(t, 200, status)
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, "GET", "/health", "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	do(t, app, "GET", "/api/automations", "")
	status, body = do(t, app, "GET", "/metrics", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), "crm_http_requests_total")
}

func TestSetupOpsRouter(t *testing.T) {
	m := metrics.NewRegistry()
	m.RunsTotal.WithLabelValues("schedule.daily").Inc()

	app := NewApp()
	SetupOpsRouter(app, m)

	status, body := do(t, app, "GET", "/metrics", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(body), `crm_automation_runs_total{trigger_type="schedule.daily"} 1`)

	status, _ = do(t, app, "GET", "/health", "")
	assert.Equal(t, 200, status)

	status, _ = do(t, app, "GET", "/api/automations", "")
	assert.Equal(t, 404, status)
}

func httptestClient() *nethttp.Client {
	return &nethttp.Client{Timeout: 2 * time.Second}
}
