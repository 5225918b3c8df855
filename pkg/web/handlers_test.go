package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/dukex/qmsflow/pkg/eventbus"
	"github.com/dukex/qmsflow/pkg/integration"
	"github.com/dukex/qmsflow/pkg/mocks"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/persistence/memory"
	"github.com/dukex/qmsflow/pkg/relationships"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/dukex/qmsflow/pkg/web"
	"github.com/dukex/qmsflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app     *fiber.App
	records persistence.RecordStore
	engine  *rules.Engine
}

func setupTestApp(t *testing.T, records persistence.RecordStore, publisher *mocks.MockEventBus) testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	if records == nil {
		records = memory.NewStore()
	}

	recorder := notifier.NewRecorder()
	rels := relationships.NewService(logger, records, recorder)
	orchestrator := workflow.NewOrchestrator(logger, workflow.NewRepository(workflow.BuiltinTemplates()...), records, rels, recorder)
	engine := rules.NewEngine(logger, rules.NewMemoryStore(rules.BuiltinRules()...), records, recorder,
		rules.WithWorkflowRunner(orchestrator))

	var bus eventbus.EventPublisher
	if publisher != nil {
		bus = publisher
	}

	handlers := web.NewAPIHandlers(engine, orchestrator, integration.NewService(logger, rels, orchestrator), records, bus, models.Validator())

	app := fiber.New()
	handlers.Register(app)

	return testApp{app: app, records: records, engine: engine}
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	return models.StringOf(problem["type"])
}

func TestAPIHandlers_GetRules(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, status)

	var list []models.AutomationRule
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	assert.Equal(t, rules.AutoNCFromCriticalAudit, list[0].ID)
	assert.Equal(t, rules.AutoEscalateOverdueCAPA, list[1].ID)
}

func TestAPIHandlers_CreateRule(t *testing.T) {
	t.Parallel()

	validActions := []models.AutomationAction{{
		Type:         models.ActionSendNotification,
		Notification: &models.NotificationParams{Message: "Complaint received"},
	}}

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name: "successful creation",
			requestBody: web.CreateRuleRequest{
				Name:          "Complaint notice",
				TriggerModule: models.ModuleComplaint,
				TriggerEvent:  "created",
				Actions:       validActions,
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var rule models.AutomationRule
				require.NoError(t, json.Unmarshal(body, &rule))
				assert.NotEmpty(t, rule.ID)
				assert.True(t, rule.Enabled)
				assert.False(t, rule.CreatedAt.IsZero())
			},
		},
		{
			name: "validation error - name too short",
			requestBody: web.CreateRuleRequest{
				Name:          "Co",
				TriggerModule: models.ModuleComplaint,
				TriggerEvent:  "created",
				Actions:       validActions,
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - no actions",
			requestBody: web.CreateRuleRequest{
				Name:          "Complaint notice",
				TriggerModule: models.ModuleComplaint,
				TriggerEvent:  "created",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - action without payload",
			requestBody: web.CreateRuleRequest{
				Name:          "Complaint notice",
				TriggerModule: models.ModuleComplaint,
				TriggerEvent:  "created",
				Actions:       []models.AutomationAction{{Type: models.ActionTriggerWorkflow}},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ta := setupTestApp(t, nil, nil)

			status, body := doRequest(t, ta.app, http.MethodPost, "/rules", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status)

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}

			if tt.expectedStatus == http.StatusBadRequest {
				assert.Equal(t, "validation_error", problemType(t, body))
			}
		})
	}
}

func TestAPIHandlers_RuleLifecycle(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodPatch, "/rules/"+rules.AutoEscalateOverdueCAPA, map[string]any{
		"enabled":  false,
		"priority": 9,
	})
	require.Equal(t, http.StatusOK, status)

	var updated models.AutomationRule
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.False(t, updated.Enabled)
	assert.Equal(t, 9, updated.Priority)
	assert.Equal(t, "Escalate Overdue CAPAs", updated.Name)

	status, body = doRequest(t, ta.app, http.MethodPatch, "/rules/missing", map[string]any{"enabled": true})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "rule_not_found", problemType(t, body))

	status, _ = doRequest(t, ta.app, http.MethodDelete, "/rules/"+rules.AutoEscalateOverdueCAPA, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doRequest(t, ta.app, http.MethodDelete, "/rules/"+rules.AutoEscalateOverdueCAPA, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doRequest(t, ta.app, http.MethodGet, "/rules/"+rules.AutoEscalateOverdueCAPA, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "rule_not_found", problemType(t, body))
}

func TestAPIHandlers_ProcessEvent(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodPost, "/events", web.ProcessEventRequest{
		Module: models.ModuleAudit,
		Event:  "finding_created",
		Data:   map[string]any{"id": "finding-1", "severity": "critical", "findingTitle": "Spill"},
	})
	require.Equal(t, http.StatusOK, status)

	var result models.ProcessResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, []string{rules.AutoNCFromCriticalAudit}, result.Fired())

	ncs, err := ta.records.Select(t.Context(), models.TableNonConformances, persistence.Filter{"source_id": "finding-1"})
	require.NoError(t, err)
	assert.Len(t, ncs, 1)

	status, _ = doRequest(t, ta.app, http.MethodPost, "/events", web.ProcessEventRequest{Module: models.ModuleAudit})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_ProcessEventAsync(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "capa-9", mock.AnythingOfType("events.DomainEvent")).Return(nil).Once()
	bus.On("Publish", mock.Anything, "capa-10", mock.Anything).Return(errors.New("broker down")).Once()

	ta := setupTestApp(t, nil, bus)

	status, body := doRequest(t, ta.app, http.MethodPost, "/events?async=true", web.ProcessEventRequest{
		Module: models.ModuleCAPA, Event: "status_check", Data: map[string]any{"id": "capa-9"},
	})
	require.Equal(t, http.StatusAccepted, status)
	assert.Contains(t, string(body), "event_id")

	status, _ = doRequest(t, ta.app, http.MethodPost, "/events?async=true", web.ProcessEventRequest{
		Module: models.ModuleCAPA, Event: "status_check", Data: map[string]any{"id": "capa-10"},
	})
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = doRequest(t, ta.app, http.MethodPost, "/events?async=maybe", web.ProcessEventRequest{
		Module: models.ModuleCAPA, Event: "status_check",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	bus.AssertExpectations(t)

	withoutBus := setupTestApp(t, nil, nil)
	status, _ = doRequest(t, withoutBus.app, http.MethodPost, "/events?async=true", web.ProcessEventRequest{
		Module: models.ModuleCAPA, Event: "status_check",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_Workflows(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, status)

	var templates []models.WorkflowTemplate
	require.NoError(t, json.Unmarshal(body, &templates))
	assert.Len(t, templates, 4)

	status, body = doRequest(t, ta.app, http.MethodGet, "/workflows/"+workflow.AuditFindingResolution, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "generate-capa")

	status, body = doRequest(t, ta.app, http.MethodGet, "/workflows/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", problemType(t, body))
}

func TestAPIHandlers_ExecuteWorkflow(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodPost, "/workflows/"+workflow.AuditFindingResolution+"/execute",
		web.ExecuteWorkflowRequest{
			SourceID: "finding-1",
			Data:     map[string]any{"findingTitle": "X", "findingDescription": "Y", "severity": "critical"},
		})
	require.Equal(t, http.StatusOK, status)

	var execution models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	status, body = doRequest(t, ta.app, http.MethodGet, "/workflows/"+workflow.AuditFindingResolution+"/tasks", nil)
	require.Equal(t, http.StatusOK, status)

	var tasks []models.PendingTask
	require.NoError(t, json.Unmarshal(body, &tasks))
	assert.Len(t, tasks, 2)

	status, body = doRequest(t, ta.app, http.MethodPost, "/workflows/nonexistent/execute",
		web.ExecuteWorkflowRequest{SourceID: "id1"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", problemType(t, body))

	status, body = doRequest(t, ta.app, http.MethodPost, "/workflows/"+workflow.NCToCAPA+"/execute",
		web.ExecuteWorkflowRequest{SourceID: "missing-nc"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "workflow_failed", problemType(t, body))

	status, _ = doRequest(t, ta.app, http.MethodPost, "/workflows/"+workflow.NCToCAPA+"/execute", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, ta.app, http.MethodGet, "/workflows/nonexistent/tasks", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_CheckTriggers(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodPost, "/workflows/triggers", web.CheckTriggersRequest{
		ModuleType: models.ModuleAuditFinding,
		Event:      "severity_updated",
		Data:       map[string]any{"severity": "major"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"workflows":["audit-finding-resolution"]}`, string(body))

	status, body = doRequest(t, ta.app, http.MethodPost, "/workflows/triggers", web.CheckTriggersRequest{
		ModuleType: models.ModuleAuditFinding,
		Event:      "severity_updated",
		Data:       map[string]any{"severity": "minor"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"workflows":[]}`, string(body))
}

func TestAPIHandlers_Relationships(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	for _, target := range []struct{ targetType, targetID, label string }{
		{models.ModuleNonConformance, "B", "X"},
		{models.ModuleCAPA, "C", "Y"},
	} {
		status, body := doRequest(t, ta.app, http.MethodPost, "/relationships", web.CreateRelationshipRequest{
			SourceType:       models.ModuleAuditFinding,
			SourceID:         "A",
			TargetType:       target.targetType,
			TargetID:         target.targetID,
			RelationshipType: target.label,
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Contains(t, string(body), `"id"`)
	}

	status, body := doRequest(t, ta.app, http.MethodGet, "/relationships?source_id=A&source_type=audit-finding&target_type=capa", nil)
	require.Equal(t, http.StatusOK, status)

	var related []models.ModuleRelationship
	require.NoError(t, json.Unmarshal(body, &related))
	require.Len(t, related, 1)
	assert.Equal(t, "C", related[0].TargetID)

	status, _ = doRequest(t, ta.app, http.MethodGet, "/relationships?source_id=A", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, ta.app, http.MethodPost, "/relationships", web.CreateRelationshipRequest{SourceType: "capa"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_TriggerIntegration(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodPost, "/integrations/"+workflow.AuditFindingToNC, web.TriggerIntegrationRequest{
		SourceModule: models.ModuleAuditFinding,
		SourceID:     "finding-1",
		Data:         map[string]any{"findingTitle": "Spill", "severity": "major"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"triggered":true}`, string(body))

	status, body = doRequest(t, ta.app, http.MethodPost, "/integrations/unknown", web.TriggerIntegrationRequest{
		SourceModule: models.ModuleAuditFinding,
		SourceID:     "finding-1",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "workflow_not_found", problemType(t, body))
}

func TestAPIHandlers_Suggestions(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodPost, "/suggestions", web.SuggestionsRequest{
		ModuleType: models.ModuleCAPA,
		Status:     "Completed",
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"suggestions":["Assign Training","Verify Effectiveness"]}`, string(body))

	status, _ = doRequest(t, ta.app, http.MethodPost, "/suggestions", web.SuggestionsRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	ta := setupTestApp(t, nil, nil)

	status, body := doRequest(t, ta.app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"healthy"`)

	store := &mocks.MockRecordStore{}
	store.On("HealthCheck", mock.Anything).Return(errors.New("connection refused"))

	unhealthy := setupTestApp(t, store, nil)

	status, body = doRequest(t, unhealthy.app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "connection refused")
}
