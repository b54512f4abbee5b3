package automation

import (
	"encoding/json"
	"fmt"

	"github.com/estate-crm/backend/internal/models"
)

// n8n node types
const (
	n8nWebhook         = "n8n-nodes-base.webhook"
	n8nHTTPRequest     = "n8n-nodes-base.httpRequest"
	n8nEmailSend       = "n8n-nodes-base.emailSend"
	n8nExecuteWorkflow = "n8n-nodes-base.executeWorkflow"
	n8nSet             = "n8n-nodes-base.set"
)

// Make modules
const (
	makeWebhook  = "gateway:CustomWebHook"
	makeHTTP     = "http:ActionSendData"
	makeEmail    = "email:ActionSendEmail"
	makeRouter   = "builtin:BasicRouter"
	nodeSpacingY = 200
	moduleGapX   = 300
)

type N8nWorkflow struct {
	Name        string                   `json:"name"`
	Nodes       []N8nNode                `json:"nodes"`
	Connections map[string]N8nConnection `json:"connections"`
	Active      bool                     `json:"active"`
	Settings    map[string]any           `json:"settings"`
}

type N8nNode struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Position   [2]int         `json:"position"`
	Parameters map[string]any `json:"parameters"`
}

type N8nConnection struct {
	Main [][]N8nConnectionTarget `json:"main"`
}

type N8nConnectionTarget struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// ToN8nBlueprint builds a linear n8n workflow: a webhook trigger node
// followed by one node per action, each connected only to the next.
// Action types without a dedicated node become pass-through Set nodes.
func ToN8nBlueprint(d models.AutomationDraft, webhookPath string) N8nWorkflow {
	nodes := make([]N8nNode, 0, len(d.Actions)+1)
	nodes = append(nodes, N8nNode{
		ID:       "trigger",
		Name:     "Webhook Trigger",
		Type:     n8nWebhook,
		Position: [2]int{250, 0},
		Parameters: map[string]any{
			"httpMethod": "POST",
			"path":       webhookPath,
		},
	})

	for i, action := range d.Actions {
		nodeType, params := n8nNodeFor(action)
		nodes = append(nodes, N8nNode{
			ID:         fmt.Sprintf("action_%d", i),
			Name:       fmt.Sprintf("%d. %s", i+1, action.ActionType),
			Type:       nodeType,
			Position:   [2]int{250, (i + 1) * nodeSpacingY},
			Parameters: params,
		})
	}

	connections := make(map[string]N8nConnection, len(nodes)-1)
	for i := 0; i < len(nodes)-1; i++ {
		connections[nodes[i].ID] = N8nConnection{
			Main: [][]N8nConnectionTarget{{{Node: nodes[i+1].ID, Type: "main", Index: 0}}},
		}
	}

	return N8nWorkflow{
		Name:        d.Name,
		Nodes:       nodes,
		Connections: connections,
		Active:      false,
		Settings:    map[string]any{},
	}
}

func n8nNodeFor(action models.ActionDraft) (string, map[string]any) {
	cfg := action.Config
	switch action.ActionType {
	case models.ActionSendWhatsApp:
		body, _ := json.Marshal(map[string]any{"message": cfg.String("message")})
		return n8nHTTPRequest, map[string]any{
			"method": "POST",
			"url":    "={{$env.WHATSAPP_API_URL}}",
			"body":   string(body),
		}
	case models.ActionSendEmail:
		return n8nEmailSend, map[string]any{
			"to":      cfg.String("to"),
			"subject": cfg.String("subject"),
			"text":    cfg.String("body"),
		}
	case models.ActionWebhook:
		return n8nHTTPRequest, map[string]any{
			"method": firstNonEmpty(cfg.String("method"), "POST"),
			"url":    cfg.String("url"),
		}
	case models.ActionRunN8n:
		return n8nExecuteWorkflow, map[string]any{
			"workflowId": cfg.String("workflowId"),
		}
	default:
		return n8nSet, map[string]any{
			"values": map[string]any{
				"string": []map[string]any{{"name": "action", "value": string(action.ActionType)}},
			},
		}
	}
}

type MakeBlueprint struct {
	Name      string        `json:"name"`
	Blueprint MakeFlowGraph `json:"blueprint"`
}

type MakeFlowGraph struct {
	Flow     []MakeModule   `json:"flow"`
	Metadata map[string]any `json:"metadata"`
}

type MakeModule struct {
	ID         int            `json:"id"`
	Module     string         `json:"module"`
	Version    int            `json:"version"`
	Parameters map[string]any `json:"parameters"`
	Mapper     map[string]any `json:"mapper"`
	Metadata   map[string]any `json:"metadata"`
}

// ToMakeBlueprint builds a linear Make scenario: a custom webhook module
// (id 1) followed by one module per action (ids 2..n+1). Make runs the
// flow array in order, so position is the only link between modules.
func ToMakeBlueprint(d models.AutomationDraft) MakeBlueprint {
	flow := make([]MakeModule, 0, len(d.Actions)+1)
	flow = append(flow, MakeModule{
		ID:         1,
		Module:     makeWebhook,
		Version:    1,
		Parameters: map[string]any{},
		Mapper:     map[string]any{},
		Metadata:   designer(0),
	})

	for i, action := range d.Actions {
		module, mapper := makeModuleFor(action)
		flow = append(flow, MakeModule{
			ID:         i + 2,
			Module:     module,
			Version:    1,
			Parameters: map[string]any{},
			Mapper:     mapper,
			Metadata:   designer((i + 1) * moduleGapX),
		})
	}

	return MakeBlueprint{
		Name: d.Name,
		Blueprint: MakeFlowGraph{
			Flow: flow,
			Metadata: map[string]any{
				"version":  1,
				"designer": map[string]any{"orphans": []any{}},
			},
		},
	}
}

func designer(x int) map[string]any {
	return map[string]any{"designer": map[string]any{"x": x, "y": 0}}
}

func makeModuleFor(action models.ActionDraft) (string, map[string]any) {
	cfg := action.Config
	switch action.ActionType {
	case models.ActionSendWhatsApp:
		return makeHTTP, map[string]any{"url": "{{WHATSAPP_API_URL}}", "method": "POST"}
	case models.ActionSendEmail:
		return makeEmail, map[string]any{"to": cfg.String("to"), "subject": cfg.String("subject")}
	case models.ActionWebhook:
		return makeHTTP, map[string]any{"url": cfg.String("url"), "method": firstNonEmpty(cfg.String("method"), "POST")}
	default:
		return makeRouter, map[string]any{}
	}
}

// ToDocument converts a blueprint into the generic JSON object the vendor
// APIs accept.
func ToDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
