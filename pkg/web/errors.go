package web

import (
	"errors"

	"github.com/dukex/flowbridge/pkg/blueprint"
	"github.com/dukex/flowbridge/pkg/converter"
	"github.com/dukex/flowbridge/pkg/persistence"
	"github.com/dukex/flowbridge/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// Problem types.
const (
	ProblemValidation    = "validation_error"
	ProblemHTMLContent   = "html_content"
	ProblemInvalidJSON   = "invalid_json"
	ProblemStructure     = "invalid_structure"
	ProblemTooLarge      = "payload_too_large"
	ProblemNotFound      = "not_found"
	ProblemUnavailable   = "archive_disabled"
	ProblemInternalError = "internal_error"
)

func fail(c fiber.Ctx, problem *problems.Problem) error {
	return c.Status(problem.Status).JSON(ErrorResponse{Problem: problem, Success: false})
}

func badRequest(c fiber.Ctx, detail string) error {
	return fail(c, problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType(ProblemValidation).
		WithDetail(detail))
}

func notFound(c fiber.Ctx, detail string) error {
	return fail(c, problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType(ProblemNotFound).
		WithDetail(detail))
}

func payloadTooLarge(c fiber.Ctx, detail string) error {
	return fail(c, problems.NewStatusProblem(fiber.StatusRequestEntityTooLarge).
		WithInstance(c.Path()).
		WithType(ProblemTooLarge).
		WithDetail(detail))
}

func internalError(c fiber.Ctx, err error) error {
	return fail(c, problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType(ProblemInternalError).
		WithError(err))
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var syntaxErr *converter.SyntaxError

	switch {
	case errors.Is(err, converter.ErrHTMLContent):
		return fail(c, problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType(ProblemHTMLContent).
			WithDetail(converter.HTMLContentMessage))

	case errors.As(err, &syntaxErr), errors.Is(err, converter.ErrInvalidJSON):
		return fail(c, problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType(ProblemInvalidJSON).
			WithDetail(err.Error()))

	case blueprint.IsStructureError(err):
		return fail(c, problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType(ProblemStructure).
			WithDetail(err.Error()))

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsUnavailableError(err):
		return fail(c, problems.NewStatusProblem(fiber.StatusServiceUnavailable).
			WithInstance(c.Path()).
			WithType(ProblemUnavailable).
			WithDetail(err.Error()))

	case persistence.IsConversionNotFound(err):
		return notFound(c, "conversion not found")

	default:
		// callers log the cause
		return fail(c, problems.NewStatusProblem(fiber.StatusInternalServerError).
			WithInstance(c.Path()).
			WithType(ProblemInternalError).
			WithDetail("An unexpected error occurred during conversion"))
	}
}
