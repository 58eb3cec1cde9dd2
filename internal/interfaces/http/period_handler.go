package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// PeriodHandler periodos de facturación.
type PeriodHandler struct {
	uc *billing.PeriodUseCase
}

// NewPeriodHandler construye el handler.
func NewPeriodHandler(uc *billing.PeriodUseCase) *PeriodHandler {
	return &PeriodHandler{uc: uc}
}

// Create godoc
// @Summary      Abrir periodo de facturación
// @Tags         billing-periods
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePeriodRequest  true  "Mes y año"
// @Success      201   {object}  dto.PeriodResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/billing/periods [post]
func (h *PeriodHandler) Create(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.CreatePeriodRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.Create(c.UserContext(), tenantID, GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar periodos
// @Tags         billing-periods
// @Security     Bearer
// @Produce      json
// @Param        year         query  int     false  "Año"
// @Param        state        query  string  false  "OPEN | CLOSED | INVOICED"
// @Param        active_only  query  bool    false  "Solo activos"
// @Success      200  {array}  dto.PeriodResponse
// @Router       /api/billing/periods [get]
func (h *PeriodHandler) List(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	page := pageFromQuery(c)
	out, err := h.uc.List(c.UserContext(), tenantID, repository.PeriodFilter{
		Year:       c.QueryInt("year", 0),
		State:      entity.PeriodState(c.Query("state")),
		ActiveOnly: c.QueryBool("active_only", false),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener periodo
// @Tags         billing-periods
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del periodo"
// @Success      200  {object}  dto.PeriodResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id} [get]
func (h *PeriodHandler) Get(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Get(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Close godoc
// @Summary      Cerrar periodo
// @Tags         billing-periods
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del periodo"
// @Success      200  {object}  dto.PeriodResponse
// @Failure      412  {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/close [post]
func (h *PeriodHandler) Close(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Close(c.UserContext(), tenantID, GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Remove godoc
// @Summary      Dar de baja un periodo sin conceptos aplicados
// @Tags         billing-periods
// @Security     Bearer
// @Param        id   path  string  true  "ID del periodo"
// @Success      204
// @Failure      412  {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id} [delete]
func (h *PeriodHandler) Remove(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	if err := h.uc.Remove(c.UserContext(), tenantID, GetUserID(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
