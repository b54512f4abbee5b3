package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/estate-crm/backend/internal/automation"
	"github.com/estate-crm/backend/internal/events"
	"github.com/estate-crm/backend/internal/integrations"
	"github.com/estate-crm/backend/internal/metrics"
	"github.com/estate-crm/backend/internal/models"
	"github.com/estate-crm/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound   = repositories.ErrNotFound
	ErrValidation = errors.New("validation failed")
)

type AutomationStore interface {
	List(ctx context.Context) ([]models.Automation, error)
	ListActiveByTrigger(ctx context.Context, trigger models.TriggerType) ([]models.Automation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Automation, error)
	Create(ctx context.Context, a *models.Automation) error
	Update(ctx context.Context, a *models.Automation) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type LogStore interface {
	ListByAutomation(ctx context.Context, automationID uuid.UUID, limit, offset int) ([]models.AutomationLog, error)
}

type AuditStore interface {
	Record(ctx context.Context, entry models.AuditLog) error
	ListForAutomation(ctx context.Context, automationID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

// Runner executes the ordered actions of one automation.
type Runner interface {
	ExecuteAutomation(ctx context.Context, automationID uuid.UUID, actions []models.AutomationAction, payload map[string]any) []models.ExecutionResult
}

type DraftGenerator interface {
	Generate(ctx context.Context, description string) models.AutomationDraft
}

type AutomationService struct {
	automations AutomationStore
	logs        LogStore
	audit       AuditStore
	runner      Runner
	builder     DraftGenerator
	clients     integrations.Set
	publisher   events.Publisher
	metrics     *metrics.Registry
	log         *zap.Logger
}

func NewAutomationService(
	automations AutomationStore,
	logs LogStore,
	audit AuditStore,
	runner Runner,
	builder DraftGenerator,
	clients integrations.Set,
	publisher events.Publisher,
	m *metrics.Registry,
	log *zap.Logger,
) *AutomationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &AutomationService{
		automations: automations,
		logs:        logs,
		audit:       audit,
		runner:      runner,
		builder:     builder,
		clients:     clients,
		publisher:   publisher,
		metrics:     m,
		log:         log,
	}
}

func (s *AutomationService) List(ctx context.Context) ([]models.Automation, error) {
	return s.automations.List(ctx)
}

func (s *AutomationService) Get(ctx context.Context, id uuid.UUID) (*models.Automation, error) {
	return s.automations.GetByID(ctx, id)
}

// Create validates the draft against the catalogs and stores it active.
func (s *AutomationService) Create(ctx context.Context, actorID *uuid.UUID, d models.AutomationDraft) (*models.Automation, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	a := fromDraft(d)
	a.IsActive = true
	if err := s.automations.Create(ctx, a); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, models.AuditAutomationCreated, a.ID, map[string]any{
		"name":         a.Name,
		"trigger_type": a.TriggerType,
		"actions":      len(a.Actions),
	})
	return a, nil
}

// Update replaces the definition and the full action list.
func (s *AutomationService) Update(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, d models.AutomationDraft) (*models.Automation, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	a := fromDraft(d)
	a.ID = id
	if err := s.automations.Update(ctx, a); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, models.AuditAutomationUpdated, id, map[string]any{
		"name":         a.Name,
		"trigger_type": a.TriggerType,
		"actions":      len(a.Actions),
	})
	return a, nil
}

func (s *AutomationService) SetActive(ctx context.Context, actorID *uuid.UUID, id uuid.UUID, active bool) error {
	if err := s.automations.SetActive(ctx, id, active); err != nil {
		return err
	}
	action := models.AuditAutomationDeactivated
	if active {
		action = models.AuditAutomationActivated
	}
	s.recordAudit(ctx, actorID, action, id, nil)
	return nil
}

func (s *AutomationService) Delete(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) error {
	if err := s.automations.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, models.AuditAutomationDeleted, id, nil)
	return nil
}

func (s *AutomationService) Logs(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.AutomationLog, error) {
	return s.logs.ListByAutomation(ctx, id, limit, offset)
}

// AuditTrail returns operator changes recorded for one automation.
func (s *AutomationService) AuditTrail(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	entries, err := s.audit.ListForAutomation(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	return entries, nil
}

// Test runs one automation with a sample payload, whether or not it is
// active.
func (s *AutomationService) Test(ctx context.Context, id uuid.UUID, payload map[string]any) ([]models.ExecutionResult, error) {
	a, err := s.automations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.runner.ExecuteAutomation(ctx, a.ID, a.Actions, payload), nil
}

// Dispatch fires every active automation matching the event. Automations
// run one after another; a failure or panic in one does not prevent the
// rest from running.
func (s *AutomationService) Dispatch(ctx context.Context, event models.TriggerEvent) ([]models.AutomationRun, error) {
	candidates, err := s.automations.ListActiveByTrigger(ctx, event.Type)
	if err != nil {
		return nil, fmt.Errorf("load automations: %w", err)
	}

	matched := automation.Match(event, candidates)
	runs := make([]models.AutomationRun, 0, len(matched))
	for _, a := range matched {
		runs = append(runs, s.run(ctx, a, event))
	}

	s.log.Info("trigger dispatched",
		zap.String("trigger_type", string(event.Type)),
		zap.Int("matched", len(matched)),
	)
	return runs, nil
}

func (s *AutomationService) run(ctx context.Context, a models.Automation, event models.TriggerEvent) (run models.AutomationRun) {
	run = models.AutomationRun{
		AutomationID:   a.ID,
		AutomationName: a.Name,
		Results:        []models.ExecutionResult{},
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("automation run panicked",
				zap.String("automation_id", a.ID.String()),
				zap.Any("panic", r),
			)
		}
	}()

	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(event.Type)).Inc()
	}
	run.Results = s.runner.ExecuteAutomation(ctx, a.ID, a.Actions, event.Payload)

	failed := 0
	for _, r := range run.Results {
		if !r.Success {
			failed++
		}
	}
	if err := s.publisher.Publish(ctx, events.StreamAutomation, events.Event{
		Type: events.EventAutomationExecuted,
		Payload: map[string]any{
			"automation_id":   a.ID.String(),
			"automation_name": a.Name,
			"trigger_type":    string(event.Type),
			"actions":         len(run.Results),
			"failed":          failed,
		},
	}); err != nil {
		s.log.Warn("failed to publish automation event", zap.Error(err))
	}
	return run
}

func (s *AutomationService) Generate(ctx context.Context, description string) models.AutomationDraft {
	return s.builder.Generate(ctx, description)
}

func (s *AutomationService) ExportN8n(ctx context.Context, id uuid.UUID) (*automation.N8nWorkflow, error) {
	a, err := s.automations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wf := automation.ToN8nBlueprint(a.Draft(), webhookPath(a.ID))
	return &wf, nil
}

func (s *AutomationService) ExportMake(ctx context.Context, id uuid.UUID) (*automation.MakeBlueprint, error) {
	a, err := s.automations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bp := automation.ToMakeBlueprint(a.Draft())
	return &bp, nil
}

// DeployN8n creates the exported workflow in n8n.
func (s *AutomationService) DeployN8n(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*integrations.RunResult, error) {
	wf, err := s.ExportN8n(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := automation.ToDocument(wf)
	if err != nil {
		return nil, fmt.Errorf("encode n8n workflow: %w", err)
	}

	res, err := s.clients.N8n.CreateWorkflow(ctx, doc)
	if err != nil {
		return res, err
	}
	s.recordAudit(ctx, actorID, models.AuditAutomationDeployedN8n, id, map[string]any{"workflow_id": res.WorkflowID})
	return res, nil
}

// DeployMake creates the exported scenario in Make.
func (s *AutomationService) DeployMake(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*integrations.RunResult, error) {
	bp, err := s.ExportMake(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := automation.ToDocument(bp)
	if err != nil {
		return nil, fmt.Errorf("encode make blueprint: %w", err)
	}

	res, err := s.clients.Make.CreateScenario(ctx, doc)
	if err != nil {
		return res, err
	}
	s.recordAudit(ctx, actorID, models.AuditAutomationDeployedMake, id, map[string]any{"scenario_id": res.ScenarioID})
	return res, nil
}

func (s *AutomationService) ListN8nWorkflows(ctx context.Context) ([]integrations.RemoteFlow, error) {
	return s.clients.N8n.ListWorkflows(ctx)
}

func (s *AutomationService) ListMakeScenarios(ctx context.Context) ([]integrations.RemoteFlow, error) {
	return s.clients.Make.ListScenarios(ctx)
}

func (s *AutomationService) recordAudit(ctx context.Context, actorID *uuid.UUID, action models.AuditAction, id uuid.UUID, meta map[string]any) {
	actorType := models.ActorSystem
	if actorID != nil {
		actorType = models.ActorOperator
	}
	if err := s.audit.Record(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: models.AuditEntityAutomation,
		EntityID:   &id,
		Meta:       meta,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", string(action)), zap.Error(err))
	}
}

func fromDraft(d models.AutomationDraft) *models.Automation {
	a := &models.Automation{
		Name:        d.Name,
		TriggerType: d.TriggerType,
		Actions:     make([]models.AutomationAction, 0, len(d.Actions)),
	}
	if d.Description != "" {
		desc := d.Description
		a.Description = &desc
	}
	for i, act := range d.Actions {
		a.Actions = append(a.Actions, models.AutomationAction{
			Position:   i,
			ActionType: act.ActionType,
			Config:     act.Config,
		})
	}
	return a
}

func webhookPath(id uuid.UUID) string {
	return "automation-" + id.String()
}
