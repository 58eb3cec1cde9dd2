package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// AppliedConceptHandler libro de conceptos aplicados por periodo.
type AppliedConceptHandler struct {
	uc *billing.AppliedConceptUseCase
}

// NewAppliedConceptHandler construye el handler.
func NewAppliedConceptHandler(uc *billing.AppliedConceptUseCase) *AppliedConceptHandler {
	return &AppliedConceptHandler{uc: uc}
}

// Apply godoc
// @Summary      Aplicar concepto a una cuenta
// @Tags         billing-applied
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del periodo"
// @Param        body  body  dto.ApplyConceptRequest  true  "Concepto, cuenta y cantidad"
// @Success      201   {object}  dto.AppliedConceptResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      412   {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/concepts [post]
func (h *AppliedConceptHandler) Apply(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.ApplyConceptRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.Apply(c.UserContext(), tenantID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// BulkApply godoc
// @Summary      Aplicar un concepto a muchas cuentas
// @Description  Las cuentas que ya tienen el concepto se omiten; los fallos se reportan por cuenta.
// @Tags         billing-applied
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del periodo"
// @Param        body  body  dto.BulkApplyRequest  true  "Concepto y cuentas"
// @Success      200   {object}  dto.BulkApplyResult
// @Failure      412   {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/concepts/bulk [post]
func (h *AppliedConceptHandler) BulkApply(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.BulkApplyRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.BulkApply(c.UserContext(), tenantID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar conceptos aplicados del periodo
// @Tags         billing-applied
// @Security     Bearer
// @Produce      json
// @Param        id          path   string  true   "ID del periodo"
// @Param        account_id  query  string  false  "Cuentas separadas por coma"
// @Param        concept_id  query  string  false  "Concepto"
// @Param        billed      query  bool    false  "Facturados / pendientes"
// @Success      200  {array}  dto.AppliedConceptResponse
// @Router       /api/billing/periods/{id}/concepts [get]
func (h *AppliedConceptHandler) List(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	page := pageFromQuery(c)
	filter := repository.AppliedConceptFilter{
		AccountIDs: splitCSV(c.Query("account_id")),
		ConceptID:  c.Query("concept_id"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if s := c.Query("billed"); s != "" {
		billed := c.QueryBool("billed")
		filter.Billed = &billed
	}
	out, err := h.uc.List(c.UserContext(), tenantID, c.Params("id"), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener concepto aplicado
// @Tags         billing-applied
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del concepto aplicado"
// @Success      200  {object}  dto.AppliedConceptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/applied-concepts/{id} [get]
func (h *AppliedConceptHandler) Get(c *fiber.Ctx) error {
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

// Update godoc
// @Summary      Modificar concepto aplicado (periodo abierto, no facturado)
// @Tags         billing-applied
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true  "ID del concepto aplicado"
// @Param        body  body  dto.UpdateAppliedConceptRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.AppliedConceptResponse
// @Failure      412   {object}  dto.ErrorResponse
// @Router       /api/billing/applied-concepts/{id} [put]
func (h *AppliedConceptHandler) Update(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.UpdateAppliedConceptRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.Update(c.UserContext(), tenantID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Remove godoc
// @Summary      Eliminar concepto aplicado (periodo abierto, no facturado)
// @Tags         billing-applied
// @Security     Bearer
// @Param        id   path  string  true  "ID del concepto aplicado"
// @Success      204
// @Failure      412  {object}  dto.ErrorResponse
// @Router       /api/billing/applied-concepts/{id} [delete]
func (h *AppliedConceptHandler) Remove(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	if err := h.uc.Remove(c.UserContext(), tenantID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
