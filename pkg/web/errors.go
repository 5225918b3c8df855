package web

import (
	"errors"

	"github.com/dukex/qmsflow/pkg/relationships"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/dukex/qmsflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps engine, orchestrator and relationship errors to problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		return notFound(c, "rule_not_found", "rule not found")

	case errors.Is(err, workflow.ErrWorkflowNotFound):
		return notFound(c, "workflow_not_found", "workflow not found")

	case errors.Is(err, rules.ErrInvalidRule),
		errors.Is(err, workflow.ErrInvalidTemplate),
		errors.Is(err, relationships.ErrInvalidRelationship):
		return badRequest(c, err.Error())

	case workflow.IsStepError(err):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("workflow_failed").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	default:
		return internalError(c, err)
	}
}
