package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
)

// errorMapping sentinel de dominio -> (status, código).
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrPreconditionFailed, fiber.StatusPreconditionFailed, "PRECONDITION_FAILED"},
	{domain.ErrBusinessRule, fiber.StatusUnprocessableEntity, "BUSINESS_RULE"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
}

// writeError traduce un error de caso de uso a la respuesta HTTP.
// El mensaje conserva el contexto que agregó el caso de uso.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// requireTenant corta la petición si el contexto no trae tenant (AuthMiddleware ausente).
func requireTenant(c *fiber.Ctx) (string, bool) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		_ = c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "tenant requerido"})
		return "", false
	}
	return tenantID, true
}
