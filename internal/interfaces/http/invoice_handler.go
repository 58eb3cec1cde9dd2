package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// InvoiceHandler generación, consulta, reversión y PDF de facturas.
type InvoiceHandler struct {
	uc   *billing.InvoiceUseCase
	docs *billing.InvoiceDocumentUseCase
}

// NewInvoiceHandler construye el handler. docs puede ser nil (sin PDF).
func NewInvoiceHandler(uc *billing.InvoiceUseCase, docs *billing.InvoiceDocumentUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, docs: docs}
}

// Preview godoc
// @Summary      Vista previa de la facturación del periodo
// @Description  Calcula totales por cuenta sin escribir nada.
// @Tags         billing-invoices
// @Security     Bearer
// @Produce      json
// @Param        id           path   string  true   "ID del periodo"
// @Param        account_ids  query  string  false  "Cuentas separadas por coma"
// @Success      200  {object}  dto.PreviewResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/invoices/preview [get]
func (h *InvoiceHandler) Preview(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	out, err := h.uc.Preview(c.UserContext(), tenantID, c.Params("id"), splitCSV(c.Query("account_ids")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Generate godoc
// @Summary      Generar facturas del periodo
// @Description  Cada cuenta se factura en su propia transacción; los fallos se reportan en el resultado.
// @Tags         billing-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID del periodo"
// @Param        body  body  dto.GenerateInvoicesRequest  true  "Opciones de generación"
// @Success      200   {object}  dto.GenerationResult
// @Failure      412   {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/invoices/generate [post]
func (h *InvoiceHandler) Generate(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.GenerateInvoicesRequest
	if len(c.Body()) > 0 && !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.GenerateForPeriod(c.UserContext(), tenantID, GetUserID(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GenerateOne godoc
// @Summary      Generar la factura de una cuenta
// @Tags         billing-invoices
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id         path  string                             true  "ID del periodo"
// @Param        accountId  path  string                             true  "ID de la cuenta"
// @Param        body       body  dto.GenerateAccountInvoiceRequest  true  "Opciones"
// @Success      201  {object}  dto.GeneratedInvoice
// @Success      200  {object}  dto.GeneratedInvoice
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/accounts/{accountId}/invoice [post]
func (h *InvoiceHandler) GenerateOne(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	var in dto.GenerateAccountInvoiceRequest
	if len(c.Body()) > 0 && !parseBody(c, &in) {
		return nil
	}
	out, err := h.uc.GenerateOne(c.UserContext(), tenantID, GetUserID(c), c.Params("id"), c.Params("accountId"), in)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if out.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(out)
}

// DeletePeriodInvoices godoc
// @Summary      Revertir la facturación del periodo
// @Description  Elimina las facturas, desmarca los conceptos aplicados y devuelve el periodo a CLOSED.
// @Tags         billing-invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del periodo"
// @Success      200  {object}  dto.ReversalResult
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/billing/periods/{id}/invoices [delete]
func (h *InvoiceHandler) DeletePeriodInvoices(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	out, err := h.uc.DeletePeriodInvoices(c.UserContext(), tenantID, GetUserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar facturas
// @Tags         billing-invoices
// @Security     Bearer
// @Produce      json
// @Param        account_id  query  string  false  "Cuenta"
// @Param        month       query  int     false  "Mes"
// @Param        year        query  int     false  "Año"
// @Param        status      query  string  false  "Estado"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {array}  dto.InvoiceResponse
// @Router       /api/billing/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	page := pageFromQuery(c)
	out, err := h.uc.ListInvoices(c.UserContext(), tenantID, repository.InvoiceFilter{
		AccountID: c.Query("account_id"),
		Month:     c.QueryInt("month", 0),
		Year:      c.QueryInt("year", 0),
		Status:    entity.InvoiceStatus(c.Query("status")),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener factura con sus líneas
// @Tags         billing-invoices
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	out, err := h.uc.GetInvoice(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetPDF godoc
// @Summary      Descargar PDF de la factura
// @Tags         billing-invoices
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/billing/invoices/{id}/pdf [get]
func (h *InvoiceHandler) GetPDF(c *fiber.Ctx) error {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil
	}
	if h.docs == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "PDF_DISABLED", Message: "generación de PDF no configurada"})
	}
	body, filename, err := h.docs.Render(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(body)
}
