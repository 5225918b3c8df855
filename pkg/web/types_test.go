package web_test

import (
	"errors"
	"testing"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/dukex/qmsflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationFields(t *testing.T, err error) []string {
	t.Helper()

	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fieldErr.Field())
	}

	return fields
}

func TestCreateRuleRequest_Validation(t *testing.T) {
	t.Parallel()

	v := models.Validator()
	notify := []models.AutomationAction{{
		Type:         models.ActionSendNotification,
		Notification: &models.NotificationParams{Message: "hello"},
	}}

	tests := []struct {
		name      string
		request   web.CreateRuleRequest
		wantErr   bool
		errFields []string
	}{
		{
			name: "valid request",
			request: web.CreateRuleRequest{
				Name: "Notify", TriggerModule: "capa", TriggerEvent: "created", Actions: notify,
			},
		},
		{
			name:      "missing name",
			request:   web.CreateRuleRequest{TriggerModule: "capa", TriggerEvent: "created", Actions: notify},
			wantErr:   true,
			errFields: []string{"Name"},
		},
		{
			name:      "missing trigger",
			request:   web.CreateRuleRequest{Name: "Notify", Actions: notify},
			wantErr:   true,
			errFields: []string{"TriggerModule", "TriggerEvent"},
		},
		{
			name: "bad operator",
			request: web.CreateRuleRequest{
				Name: "Notify", TriggerModule: "capa", TriggerEvent: "created", Actions: notify,
				Conditions: []models.AutomationCondition{{Field: "status", Operator: "matches"}},
			},
			wantErr:   true,
			errFields: []string{"Operator"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.request)
			if !tt.wantErr {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.ElementsMatch(t, tt.errFields, validationFields(t, err))
		})
	}
}

func TestCreateRuleRequest_Rule(t *testing.T) {
	t.Parallel()

	disabled := false

	enabledByDefault := web.CreateRuleRequest{Name: "Notify", TriggerModule: "capa", TriggerEvent: "created"}.Rule()
	assert.True(t, enabledByDefault.Enabled)
	assert.Empty(t, enabledByDefault.ID)

	explicit := web.CreateRuleRequest{Name: "Notify", Enabled: &disabled, Priority: 3}.Rule()
	assert.False(t, explicit.Enabled)
	assert.Equal(t, 3, explicit.Priority)
}

func TestCreateRelationshipRequest_Validation(t *testing.T) {
	t.Parallel()

	v := models.Validator()

	valid := web.CreateRelationshipRequest{
		SourceType: "audit-finding", SourceID: "A",
		TargetType: "non-conformance", TargetID: "B",
		RelationshipType: "generated-from",
		Metadata:         map[string]any{"note": "manual"},
	}
	require.NoError(t, v.Struct(valid))

	rel := valid.Relationship()
	assert.Equal(t, "A", rel.SourceID)
	assert.Equal(t, "manual", rel.Metadata["note"])
	assert.Empty(t, rel.ID)

	err := v.Struct(web.CreateRelationshipRequest{SourceType: "audit-finding"})
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"SourceID", "TargetType", "TargetID", "RelationshipType"}, validationFields(t, err))
}

func TestSmallRequests_Validation(t *testing.T) {
	t.Parallel()

	v := models.Validator()

	assert.Error(t, v.Struct(web.ProcessEventRequest{Module: "audit"}))
	assert.NoError(t, v.Struct(web.ProcessEventRequest{Module: "audit", Event: "finding_created"}))
	assert.Error(t, v.Struct(web.ExecuteWorkflowRequest{}))
	assert.Error(t, v.Struct(web.CheckTriggersRequest{ModuleType: "audit-finding"}))
	assert.Error(t, v.Struct(web.TriggerIntegrationRequest{SourceModule: "capa"}))
	assert.NoError(t, v.Struct(web.SuggestionsRequest{ModuleType: "capa"}))
}
