package integrations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/estate-crm/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Second}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestUltraMsgClient_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/instance1/messages/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"sent":"true","message":"ok","id":42}`))
	}))
	defer srv.Close()

	c := NewUltraMsgClient(srv.URL+"/instance1", "tok", testClient(), zap.NewNop())
	res, err := c.Send(context.Background(), WhatsAppMessage{To: "+34600000000", Body: "Hola"})
	require.NoError(t, err)

	assert.True(t, res.Sent)
	assert.Equal(t, "42", res.ID)
	assert.Equal(t, "ok", res.Message)
	assert.Equal(t, map[string]any{"token": "tok", "to": "+34600000000", "body": "Hola"}, got)
}

func TestUltraMsgClient_NotSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sent":false,"error":"invalid number"}`))
	}))
	defer srv.Close()

	c := NewUltraMsgClient(srv.URL+"/", "tok", testClient(), zap.NewNop())
	res, err := c.Send(context.Background(), WhatsAppMessage{To: "x", Body: "y"})
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "invalid number", res.Message)
}

func TestUltraMsgClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad token"))
	}))
	defer srv.Close()

	c := NewUltraMsgClient(srv.URL, "tok", testClient(), zap.NewNop())
	_, err := c.Send(context.Background(), WhatsAppMessage{To: "x", Body: "y"})
	require.Error(t, err)
	assert.Equal(t, KindStatus, KindOf(err))
	assert.Equal(t, "ultramsg error: 401 - bad token", err.Error())
}

func TestUltraMsgClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewUltraMsgClient(url, "tok", testClient(), zap.NewNop())
	_, err := c.Send(context.Background(), WhatsAppMessage{To: "x", Body: "y"})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestSimulatedWhatsApp_DistinctIDs(t *testing.T) {
	s := NewSimulatedWhatsApp(zap.NewNop())

	a, err := s.Send(context.Background(), WhatsAppMessage{To: "1", Body: "hi"})
	require.NoError(t, err)
	b, err := s.Send(context.Background(), WhatsAppMessage{To: "1", Body: "hi"})
	require.NoError(t, err)

	assert.True(t, a.Sent)
	assert.True(t, b.Sent)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Contains(t, a.ID, "sim-")
}

func TestN8nClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows/wf-7/execute", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-N8N-API-KEY"))
		body := decodeBody(t, r)
		assert.Equal(t, map[string]any{"name": "Ana"}, body["data"])
		_, _ = w.Write([]byte(`{"executionId":"exec-1"}`))
	}))
	defer srv.Close()

	c := NewN8nClient(srv.URL+"/", "secret", testClient(), zap.NewNop())
	res, err := c.Execute(context.Background(), "wf-7", map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, &RunResult{Success: true, WorkflowID: "wf-7", ExecutionID: "exec-1"}, res)
}

func TestN8nClient_ExecuteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("workflow not found"))
	}))
	defer srv.Close()

	c := NewN8nClient(srv.URL, "secret", testClient(), zap.NewNop())
	res, err := c.Execute(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "n8n error: 404 - workflow not found", res.Error)
}

func TestN8nClient_ListAndCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Flow","active":true},{"id":2,"name":"Other"}]}`))
		case http.MethodPost:
			body := decodeBody(t, r)
			assert.Equal(t, "Welcome", body["name"])
			_, _ = w.Write([]byte(`{"id":"wf-99"}`))
		}
	}))
	defer srv.Close()

	c := NewN8nClient(srv.URL, "secret", testClient(), zap.NewNop())

	flows, err := c.ListWorkflows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []RemoteFlow{{ID: "1", Name: "Flow", Active: true}, {ID: "2", Name: "Other"}}, flows)

	res, err := c.CreateWorkflow(context.Background(), map[string]any{"name": "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, "wf-99", res.WorkflowID)
}

func TestMakeClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sc-1", r.URL.Path)
		assert.Equal(t, map[string]any{"phone": "123"}, decodeBody(t, r))
		_, _ = w.Write([]byte("Accepted"))
	}))
	defer srv.Close()

	c := NewMakeClient(srv.URL, srv.URL, "key", "team", testClient(), zap.NewNop())
	res, err := c.Execute(context.Background(), "sc-1", map[string]any{"phone": "123"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "sc-1", res.ScenarioID)
	assert.NotEmpty(t, res.ExecutionID)
}

func TestMakeClient_CreateScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/scenarios", r.URL.Path)
		assert.Equal(t, "Token key", r.Header.Get("Authorization"))
		body := decodeBody(t, r)
		assert.Equal(t, "team-1", body["teamId"])
		_, _ = w.Write([]byte(`{"scenario":{"id":555}}`))
	}))
	defer srv.Close()

	c := NewMakeClient(srv.URL, srv.URL+"/api/v2", "key", "team-1", testClient(), zap.NewNop())
	res, err := c.CreateScenario(context.Background(), map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "555", res.ScenarioID)
}

func TestSimulatedRunners(t *testing.T) {
	ctx := context.Background()

	n8n := NewSimulatedN8n(zap.NewNop())
	a, _ := n8n.Execute(ctx, "wf", nil)
	b, _ := n8n.Execute(ctx, "wf", nil)
	assert.True(t, a.Success)
	assert.Equal(t, a.Success, b.Success)
	assert.NotEqual(t, a.ExecutionID, b.ExecutionID)

	flows, err := n8n.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 3)

	mk := NewSimulatedMake(zap.NewNop())
	res, err := mk.Execute(ctx, "sc", nil)
	require.NoError(t, err)
	assert.Equal(t, "sc", res.ScenarioID)
	scenarios, _ := mk.ListScenarios(ctx)
	assert.Len(t, scenarios, 3)
}

func TestHTTPWebhookCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "abc", r.Header.Get("X-Token"))
			assert.Equal(t, map[string]any{"id": "1"}, decodeBody(t, r))
			w.WriteHeader(http.StatusAccepted)
		case "/get":
			data, _ := io.ReadAll(r.Body)
			assert.Empty(t, data)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPWebhookCaller(testClient(), zap.NewNop())
	ctx := context.Background()

	res, err := c.Call(ctx, WebhookRequest{URL: srv.URL + "/ok", Method: "put", Headers: map[string]string{"X-Token": "abc"}, Body: map[string]any{"id": "1"}})
	require.NoError(t, err)
	assert.Equal(t, &WebhookResponse{Status: http.StatusAccepted, OK: true}, res)

	res, err = c.Call(ctx, WebhookRequest{URL: srv.URL + "/get", Method: "GET", Body: map[string]any{"ignored": true}})
	require.NoError(t, err)
	assert.True(t, res.OK)

	res, err = c.Call(ctx, WebhookRequest{URL: srv.URL + "/missing"})
	require.NoError(t, err)
	assert.Equal(t, &WebhookResponse{Status: http.StatusNotFound, OK: false}, res)
}

func TestHTTPWebhookCaller_BadURL(t *testing.T) {
	c := NewHTTPWebhookCaller(testClient(), zap.NewNop())
	_, err := c.Call(context.Background(), WebhookRequest{URL: "://nope"})
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestHTTPWebhookCaller_BreakerIsPerHost(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	healthyHits := 0
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthyHits++
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	c := NewHTTPWebhookCaller(testClient(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := c.Call(ctx, WebhookRequest{URL: failing.URL})
		require.NoError(t, err)
		assert.False(t, res.OK)
	}

	// failing host is now short-circuited
	_, err := c.Call(ctx, WebhookRequest{URL: failing.URL})
	assert.Equal(t, KindTransport, KindOf(err))

	res, err := c.Call(ctx, WebhookRequest{URL: healthy.URL + "/hook"})
	require.NoError(t, err)
	assert.Equal(t, &WebhookResponse{Status: http.StatusOK, OK: true}, res)
	assert.Equal(t, 1, healthyHits)
}

func TestHTTPDoer_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := newHTTPDoer("test", testClient(), zap.NewNop())
	for i := 0; i < 5; i++ {
		_, err := d.do(context.Background(), http.MethodPost, srv.URL, nil, map[string]any{})
		assert.Equal(t, KindStatus, KindOf(err))
	}

	_, err := d.do(context.Background(), http.MethodPost, srv.URL, nil, map[string]any{})
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, 5, calls)
}

func TestNew_SelectsStrategies(t *testing.T) {
	cfg := &config.Config{IntegrationTimeout: time.Second, N8nAPIKey: "key", N8nBaseURL: "http://n8n"}
	set := New(cfg, zap.NewNop())

	assert.IsType(t, &SimulatedWhatsApp{}, set.WhatsApp)
	assert.IsType(t, &N8nClient{}, set.N8n)
	assert.IsType(t, &SimulatedMake{}, set.Make)
	assert.IsType(t, &HTTPWebhookCaller{}, set.Webhook)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(io.EOF))
	assert.Equal(t, KindDecode, KindOf(&Error{Kind: KindDecode, Service: "n8n", Err: io.EOF}))
}
