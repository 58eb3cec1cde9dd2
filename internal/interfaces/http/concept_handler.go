package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// ConceptHandler catálogo de conceptos facturables e historial de precios.
type ConceptHandler struct {
	uc *billing.ConceptUseCase
}

// NewConceptHandler construye el handler.
func NewConceptHandler(uc *billing.ConceptUseCase) *ConceptHandler {
	return &ConceptHandler{uc: uc}
}

// Create godoc
// @Summary      Crear concepto facturable
// @Tags         billing-concepts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateConceptRequest  true  "Concepto"
// @Success      201   {object}  dto.ConceptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/billing/concepts [post]
func (h *ConceptHandler) Create(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.CreateConceptRequest
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
// @Summary      Listar conceptos
// @Tags         billing-concepts
// @Security     Bearer
// @Produce      json
// @Param        kind         query  string  false  "FLAT_FEE | METERED | OTHER"
// @Param        active_only  query  bool    false  "Solo activos"
// @Param        search       query  string  false  "Código o nombre"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {array}  dto.ConceptResponse
// @Router       /api/billing/concepts [get]
func (h *ConceptHandler) List(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	page := pageFromQuery(c)
	out, err := h.uc.List(c.UserContext(), tenantID, repository.ConceptFilter{
		Kind:       entity.ConceptKind(c.Query("kind")),
		ActiveOnly: c.QueryBool("active_only", false),
		Search:     c.Query("search"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Get godoc
// @Summary      Obtener concepto
// @Tags         billing-concepts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del concepto"
// @Success      200  {object}  dto.ConceptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/concepts/{id} [get]
func (h *ConceptHandler) Get(c *fiber.Ctx) error {
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
// @Summary      Actualizar concepto (nombre, tipo, impuesto)
// @Tags         billing-concepts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del concepto"
// @Param        body  body  dto.UpdateConceptRequest  true  "Campos a actualizar"
// @Success      200   {object}  dto.ConceptResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      412   {object}  dto.ErrorResponse
// @Router       /api/billing/concepts/{id} [put]
func (h *ConceptHandler) Update(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.UpdateConceptRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.Update(c.UserContext(), tenantID, c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Deactivate godoc
// @Summary      Desactivar concepto
// @Description  Se rechaza si algún concepto aplicado lo referencia.
// @Tags         billing-concepts
// @Security     Bearer
// @Param        id   path  string  true  "ID del concepto"
// @Success      204
// @Failure      412  {object}  dto.ErrorResponse
// @Router       /api/billing/concepts/{id} [delete]
func (h *ConceptHandler) Deactivate(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	if err := h.uc.Deactivate(c.UserContext(), tenantID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reprice godoc
// @Summary      Agregar vigencia de precio
// @Tags         billing-concepts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del concepto"
// @Param        body  body  dto.RepriceRequest  true  "Nueva vigencia"
// @Success      201   {object}  dto.PriceResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/billing/concepts/{id}/prices [post]
func (h *ConceptHandler) Reprice(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.RepriceRequest
	if !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.Reprice(c.UserContext(), tenantID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// PriceHistory godoc
// @Summary      Historial de precios
// @Tags         billing-concepts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del concepto"
// @Success      200  {array}  dto.PriceResponse
// @Router       /api/billing/concepts/{id}/prices [get]
func (h *ConceptHandler) PriceHistory(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	out, err := h.uc.PriceHistory(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CurrentPrice godoc
// @Summary      Precio vigente a una fecha
// @Tags         billing-concepts
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del concepto"
// @Param        as_of  query  string  false  "YYYY-MM-DD (por defecto hoy)"
// @Success      200  {object}  dto.PriceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/concepts/{id}/prices/current [get]
func (h *ConceptHandler) CurrentPrice(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	asOf := time.Now()
	if s := c.Query("as_of"); s != "" {
		t, err := time.Parse(dto.DateLayout, s)
		if err != nil {
			return badRequest(c, "VALIDATION", "as_of debe tener formato YYYY-MM-DD")
		}
		asOf = t
	}
	out, err := h.uc.CurrentPrice(c.UserContext(), tenantID, c.Params("id"), asOf)
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NO_PRICE", Message: "el concepto no tiene precio vigente en esa fecha"})
	}
	return c.JSON(out)
}

// DeactivatePrice godoc
// @Summary      Desactivar una vigencia de precio
// @Tags         billing-concepts
// @Security     Bearer
// @Param        id       path  string  true  "ID del concepto"
// @Param        priceId  path  string  true  "ID de la vigencia"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/concepts/{id}/prices/{priceId} [delete]
func (h *ConceptHandler) DeactivatePrice(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	if err := h.uc.DeactivatePrice(c.UserContext(), tenantID, c.Params("id"), c.Params("priceId")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// pageFromQuery limit/offset con los topes habituales (20 por defecto, máximo 500).
func pageFromQuery(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	if p.Limit > 500 {
		p.Limit = 500
	}
	return p
}
