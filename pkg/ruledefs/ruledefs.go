// Package ruledefs loads rule and workflow definitions from JSON documents.
// Documents are checked against a JSON schema and the model validators
// before anything is imported.
package ruledefs

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var ErrInvalidDocument = errors.New("invalid definitions document")

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidDocument, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

// Document is a set of rules and workflow templates.
type Document struct {
	Rules     []models.AutomationRule    `json:"rules"`
	Workflows []*models.WorkflowTemplate `json:"workflows"`
}

// Parse validates data against the definitions schema and decodes it.
func Parse(data []byte) (*Document, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, &ValidationError{Problems: problems}
	}

	var doc Document

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Load reads and parses a definitions file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}

	return Parse(data)
}

// Validate runs the model validators over every definition and rejects duplicate ids.
func (d *Document) Validate() error {
	var problems []string

	ruleIDs := make(map[string]bool, len(d.Rules))

	for i := range d.Rules {
		rule := &d.Rules[i]

		if ruleIDs[rule.ID] {
			problems = append(problems, fmt.Sprintf("rules[%d]: duplicate id %q", i, rule.ID))
		}

		ruleIDs[rule.ID] = true

		if err := models.ValidateRule(rule); err != nil {
			problems = append(problems, fmt.Sprintf("rules[%d] %s: %v", i, rule.ID, err))
		}
	}

	workflowIDs := make(map[string]bool, len(d.Workflows))

	for i, template := range d.Workflows {
		if workflowIDs[template.ID] {
			problems = append(problems, fmt.Sprintf("workflows[%d]: duplicate id %q", i, template.ID))
		}

		workflowIDs[template.ID] = true

		if err := models.ValidateTemplate(template); err != nil {
			problems = append(problems, fmt.Sprintf("workflows[%d] %s: %v", i, template.ID, err))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// RuleSink stores rules under their own ids.
type RuleSink interface {
	PutRule(ctx context.Context, rule models.AutomationRule) error
}

// TemplateSink stores workflow templates under their own ids.
type TemplateSink interface {
	RegisterTemplate(ctx context.Context, template *models.WorkflowTemplate) error
}

// ImportResult counts what an import stored.
type ImportResult struct {
	Rules     int `json:"rules"`
	Workflows int `json:"workflows"`
}

// Import stores every workflow, then every rule, replacing definitions that
// share an id. It stops at the first failure; definitions stored before it stay.
func Import(ctx context.Context, logger *slog.Logger, doc *Document, rules RuleSink, templates TemplateSink) (ImportResult, error) {
	logger = logger.With("module", "ruledefs")

	var result ImportResult

	for _, template := range doc.Workflows {
		if templates == nil {
			return result, errors.New("document has workflows but no workflow store is configured")
		}

		if err := templates.RegisterTemplate(ctx, template); err != nil {
			return result, fmt.Errorf("failed to import workflow %s: %w", template.ID, err)
		}

		logger.InfoContext(ctx, "workflow imported", "workflow_id", template.ID)

		result.Workflows++
	}

	for _, rule := range doc.Rules {
		if err := rules.PutRule(ctx, rule); err != nil {
			return result, fmt.Errorf("failed to import rule %s: %w", rule.ID, err)
		}

		logger.InfoContext(ctx, "rule imported", "rule_id", rule.ID)

		result.Rules++
	}

	return result, nil
}
