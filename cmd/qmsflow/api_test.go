package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/qmsflow/pkg/cmd"
	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/persistence/memory"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	records := memory.NewStore()
	services := cmd.NewServices(slog.Default(), records, rules.NewMemoryStore(rules.BuiltinRules()...), nil, nil)

	return NewAPI(slog.Default(), records, services, nil).App()
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func TestAPI_RootEndpoint(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "qmsflow API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		status, body := get(t, app, path)

		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, "OK", string(body), path)
	}
}

func TestAPI_GetRules_Builtin(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/rules")
	require.Equal(t, http.StatusOK, status)

	var list []models.AutomationRule
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 2)
	assert.Equal(t, rules.AutoNCFromCriticalAudit, list[0].ID)
	assert.Equal(t, rules.AutoEscalateOverdueCAPA, list[1].ID)
}

func TestAPI_GetWorkflows_Builtin(t *testing.T) {
	status, body := get(t, setupTestApp(t), "/workflows")
	require.Equal(t, http.StatusOK, status)

	var templates []models.WorkflowTemplate
	require.NoError(t, json.Unmarshal(body, &templates))
	assert.Len(t, templates, 4)
}

func TestLoadDefinitions(t *testing.T) {
	ctx := context.Background()
	services := cmd.NewServices(slog.Default(), memory.NewStore(), rules.NewMemoryStore(), nil, nil)

	err := loadDefinitions(ctx, slog.Default(), services, "../../pkg/ruledefs/testdata/definitions.json")
	require.NoError(t, err)

	_, err = services.Engine.GetRule(ctx, "notify-on-complaint")
	require.NoError(t, err)

	_, err = services.Orchestrator.GetWorkflow(ctx, "complaint-investigation")
	require.NoError(t, err)

	err = loadDefinitions(ctx, slog.Default(), services, "missing.json")
	require.Error(t, err)
}
