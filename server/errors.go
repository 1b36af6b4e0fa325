package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/unidatahq/udc/runtime/assistant"
	"github.com/unidatahq/udc/runtime/connector"
	"github.com/unidatahq/udc/runtime/query"
)

// Error codes carried in the response envelope.
const (
	codeValidation      = "VALIDATION_ERROR"
	codeAssistantConfig = "ASSISTANT_CONFIG_ERROR"
	codeAssistantFailed = "ASSISTANT_RUNTIME_ERROR"
	codeUnknownSource   = "UNKNOWN_SOURCE"
	codeUnavailable     = "SOURCE_UNAVAILABLE"
	codeRateLimited     = "RATE_LIMITED"
	codeInvalidAPIKey   = "AUTH_INVALID_API_KEY"
	codeNotFound        = "NOT_FOUND"
	codeInternal        = "INTERNAL_ERROR"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// writeError maps a service error onto the HTTP envelope.
func writeError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	return c.Status(status).JSON(errorBody{Error: errorDetail{
		Code:    code,
		Message: err.Error(),
	}})
}

func classify(err error) (status int, code string) {
	switch {
	case errors.Is(err, connector.ErrUnknownSource):
		return fiber.StatusNotFound, codeUnknownSource
	case errors.Is(err, connector.ErrSourceUnavailable):
		return fiber.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, assistant.ErrConfiguration):
		return fiber.StatusBadRequest, codeAssistantConfig
	case errors.Is(err, assistant.ErrValidation),
		errors.Is(err, query.ErrInvalidCriteria):
		return fiber.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, assistant.ErrRuntime):
		return fiber.StatusInternalServerError, codeAssistantFailed
	default:
		return fiber.StatusInternalServerError, codeInternal
	}
}

func validationError(c *fiber.Ctx, message string, details any) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Error: errorDetail{
		Code:    codeValidation,
		Message: message,
		Details: details,
	}})
}

func notFoundError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(errorBody{Error: errorDetail{
		Code:    codeNotFound,
		Message: message,
	}})
}
