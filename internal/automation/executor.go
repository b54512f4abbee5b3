package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/estate-crm/backend/internal/events"
	"github.com/estate-crm/backend/internal/integrations"
	"github.com/estate-crm/backend/internal/metrics"
	"github.com/estate-crm/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogWriter persists one log row per executed action.
type LogWriter interface {
	Log(ctx context.Context, entry models.AutomationLog) error
}

// outcome is what an action handler reports; the executor turns it into
// both the log row and the ExecutionResult.
type outcome struct {
	success    bool
	message    string // returned to the caller
	logMessage string // persisted
	data       any
}

func failed(msg string) outcome {
	return outcome{success: false, message: msg, logMessage: msg}
}

type actionRun struct {
	automationID uuid.UUID
	config       models.ActionConfig
	payload      map[string]any
}

type actionHandler func(ctx context.Context, run actionRun) outcome

type Executor struct {
	logs      LogWriter
	clients   integrations.Set
	publisher events.Publisher
	metrics   *metrics.Registry
	log       *zap.Logger
	handlers  map[models.ActionType]actionHandler
}

func NewExecutor(
	logs LogWriter,
	clients integrations.Set,
	publisher events.Publisher,
	m *metrics.Registry,
	log *zap.Logger,
) *Executor {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	e := &Executor{
		logs:      logs,
		clients:   clients,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
	e.handlers = map[models.ActionType]actionHandler{
		models.ActionSendWhatsApp:  e.sendWhatsApp,
		models.ActionSendEmail:     e.sendEmail,
		models.ActionWebhook:       e.callWebhook,
		models.ActionRunN8n:        e.runN8n,
		models.ActionRunMake:       e.runMake,
		models.ActionUpdateContact: e.updateContact,
		models.ActionCreateTask:    e.createTask,
		models.ActionAddTag:        e.addTag,
		models.ActionNotifyTeam:    e.notifyTeam,
	}
	return e
}

// ExecuteAutomation runs actions in order. Each action, including its log
// write, completes before the next starts. A failed action whose config
// has a truthy stopOnError ends the run; later actions are not executed.
func (e *Executor) ExecuteAutomation(ctx context.Context, automationID uuid.UUID, actions []models.AutomationAction, payload map[string]any) []models.ExecutionResult {
	results := make([]models.ExecutionResult, 0, len(actions))
	for _, action := range actions {
		result := e.ExecuteAction(ctx, automationID, action.ActionType, action.Config, payload)
		results = append(results, result)

		if !result.Success && action.Config.StopOnError() {
			e.log.Info("automation stopped on failed action",
				zap.String("automation_id", automationID.String()),
				zap.String("action_type", string(action.ActionType)),
			)
			break
		}
	}
	return results
}

// ExecuteAction runs one action and writes exactly one log row for it.
// Failures are reported in the result, never returned as errors.
func (e *Executor) ExecuteAction(ctx context.Context, automationID uuid.UUID, actionType models.ActionType, config models.ActionConfig, payload map[string]any) models.ExecutionResult {
	if config == nil {
		config = models.ActionConfig{}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	start := time.Now()
	out := e.dispatch(ctx, actionType, actionRun{automationID: automationID, config: config, payload: payload})

	status := models.LogStatusSuccess
	if !out.success {
		status = models.LogStatusFailed
	}
	if err := e.logs.Log(ctx, models.AutomationLog{
		AutomationID: automationID,
		Status:       status,
		Message:      out.logMessage,
	}); err != nil {
		e.log.Error("failed to write automation log",
			zap.String("automation_id", automationID.String()),
			zap.String("action_type", string(actionType)),
			zap.Error(err),
		)
	}

	if e.metrics != nil {
		e.metrics.ActionsTotal.WithLabelValues(string(actionType), status).Inc()
		e.metrics.ActionDuration.WithLabelValues(string(actionType)).Observe(time.Since(start).Seconds())
	}

	return models.ExecutionResult{
		Success:    out.success,
		ActionType: actionType,
		Message:    out.message,
		Data:       out.data,
	}
}

func (e *Executor) dispatch(ctx context.Context, actionType models.ActionType, run actionRun) (out outcome) {
	handler, ok := e.handlers[actionType]
	if !ok {
		// Legacy rows may carry action types this build does not know.
		return failed(fmt.Sprintf("Unknown action type: %s", actionType))
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("action panicked", zap.String("action_type", string(actionType)), zap.Any("panic", r))
			out = failed(fmt.Sprintf("action panicked: %v", r))
		}
	}()
	return handler(ctx, run)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func payloadString(payload map[string]any, key string) string {
	return models.ActionConfig(payload).String(key)
}

func (e *Executor) sendWhatsApp(ctx context.Context, run actionRun) outcome {
	phone := firstNonEmpty(run.config.String("phone"), payloadString(run.payload, "phone"))
	if phone == "" {
		return outcome{success: false, message: "No phone number", logMessage: "No phone number provided"}
	}
	body := Interpolate(run.config.String("message"), run.payload)

	res, err := e.clients.WhatsApp.Send(ctx, integrations.WhatsAppMessage{To: phone, Body: body})
	if err != nil {
		return failed(err.Error())
	}

	out := outcome{
		success:    res.Sent,
		message:    fmt.Sprintf("WhatsApp sent to %s", phone),
		logMessage: fmt.Sprintf("WhatsApp to %s", phone),
		data:       res,
	}
	if !res.Sent {
		out.message = fmt.Sprintf("WhatsApp not sent to %s", phone)
		if res.Message != "" {
			out.message += ": " + res.Message
		}
	}
	return out
}

func (e *Executor) sendEmail(ctx context.Context, run actionRun) outcome {
	to := firstNonEmpty(run.config.String("to"), payloadString(run.payload, "email"))
	if to == "" {
		return failed("No email address provided")
	}
	subject := Interpolate(run.config.String("subject"), run.payload)
	body := Interpolate(run.config.String("body"), run.payload)

	_ = e.publisher.Publish(ctx, events.StreamAutomation, events.Event{
		Type: events.EventEmailQueued,
		Payload: map[string]any{
			"automation_id": run.automationID.String(),
			"to":            to,
			"subject":       subject,
			"body":          body,
		},
	})

	msg := fmt.Sprintf("Email queued to %s", to)
	return outcome{
		success:    true,
		message:    msg,
		logMessage: msg,
		data:       map[string]any{"to": to, "subject": subject},
	}
}

func (e *Executor) callWebhook(ctx context.Context, run actionRun) outcome {
	url := run.config.String("url")
	if url == "" {
		return failed("No webhook URL provided")
	}
	method := firstNonEmpty(run.config.String("method"), "POST")

	res, err := e.clients.Webhook.Call(ctx, integrations.WebhookRequest{
		URL:     url,
		Method:  method,
		Headers: run.config.StringMap("headers"),
		Body:    run.payload,
	})
	if err != nil {
		return outcome{success: false, message: err.Error(), logMessage: fmt.Sprintf("Webhook failed: %s", err.Error())}
	}

	return outcome{
		success:    res.OK,
		message:    fmt.Sprintf("Webhook %s %s", method, url),
		logMessage: fmt.Sprintf("Webhook to %s: %d", url, res.Status),
		data:       map[string]any{"status": res.Status},
	}
}

func (e *Executor) runN8n(ctx context.Context, run actionRun) outcome {
	workflowID := run.config.String("workflowId")
	if workflowID == "" {
		return failed("No n8n workflow id provided")
	}

	res, err := e.clients.N8n.Execute(ctx, workflowID, run.payload)
	logMsg := fmt.Sprintf("n8n workflow %s", workflowID)
	if err != nil {
		return outcome{success: false, message: err.Error(), logMessage: logMsg + ": " + err.Error(), data: runData(res)}
	}
	return outcome{success: res.Success, message: "n8n workflow triggered", logMessage: logMsg, data: res}
}

func (e *Executor) runMake(ctx context.Context, run actionRun) outcome {
	scenarioID := run.config.String("scenarioId")
	if scenarioID == "" {
		return failed("No Make scenario id provided")
	}

	res, err := e.clients.Make.Execute(ctx, scenarioID, run.payload)
	logMsg := fmt.Sprintf("Make scenario %s", scenarioID)
	if err != nil {
		return outcome{success: false, message: err.Error(), logMessage: logMsg + ": " + err.Error(), data: runData(res)}
	}
	return outcome{success: res.Success, message: "Make scenario triggered", logMessage: logMsg, data: res}
}

func runData(res *integrations.RunResult) any {
	if res == nil {
		return nil
	}
	return res
}

func (e *Executor) updateContact(_ context.Context, run actionRun) outcome {
	updates := run.config["updates"]
	encoded, err := json.Marshal(updates)
	if err != nil {
		encoded = []byte(fmt.Sprint(updates))
	}
	return outcome{
		success:    true,
		message:    "Contact updated",
		logMessage: fmt.Sprintf("Contact update: %s", encoded),
		data:       updates,
	}
}

func (e *Executor) createTask(_ context.Context, run actionRun) outcome {
	msg := fmt.Sprintf("Task created: %s", Interpolate(run.config.String("title"), run.payload))
	return outcome{success: true, message: msg, logMessage: msg}
}

func (e *Executor) addTag(_ context.Context, run actionRun) outcome {
	msg := fmt.Sprintf("Tag added: %s", Interpolate(run.config.String("tag"), run.payload))
	return outcome{success: true, message: msg, logMessage: msg}
}

func (e *Executor) notifyTeam(ctx context.Context, run actionRun) outcome {
	channel := run.config.String("channel")
	_ = e.publisher.Publish(ctx, events.StreamAutomation, events.Event{
		Type: events.EventTeamNotification,
		Payload: map[string]any{
			"automation_id": run.automationID.String(),
			"channel":       channel,
			"message":       Interpolate(run.config.String("message"), run.payload),
		},
	})
	return outcome{
		success:    true,
		message:    fmt.Sprintf("Team notified via %s", channel),
		logMessage: fmt.Sprintf("Team notified: %s", channel),
	}
}
