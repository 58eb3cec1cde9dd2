package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ConceptUC  *billing.ConceptUseCase
	PeriodUC   *billing.PeriodUseCase
	AppliedUC  *billing.AppliedConceptUseCase
	InvoiceUC  *billing.InvoiceUseCase
	DocumentUC *billing.InvoiceDocumentUseCase
	JWTSecret  string
	Logger     *logger.Logger // nil: sin log de peticiones
}

// Router registra las rutas de la API.
// Lecturas: cualquier rol. Altas y cambios: admin y facturador.
// Reversión de facturas, baja de periodos y de conceptos: solo admin.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	api := app.Group("/api/billing", AuthMiddleware(deps.JWTSecret), RequestLogger(log))

	read := RequireRole(RoleAdmin, RoleFacturador, RoleConsulta)
	write := RequireRole(RoleAdmin, RoleFacturador)
	admin := RequireRole(RoleAdmin)

	// Conceptos y precios
	conceptHandler := NewConceptHandler(deps.ConceptUC)
	concepts := api.Group("/concepts")
	concepts.Post("/", write, conceptHandler.Create)
	concepts.Get("/", read, conceptHandler.List)
	concepts.Get("/:id", read, conceptHandler.Get)
	concepts.Put("/:id", write, conceptHandler.Update)
	concepts.Delete("/:id", admin, conceptHandler.Deactivate)
	concepts.Post("/:id/prices", write, conceptHandler.Reprice)
	concepts.Get("/:id/prices", read, conceptHandler.PriceHistory)
	concepts.Get("/:id/prices/current", read, conceptHandler.CurrentPrice)
	concepts.Delete("/:id/prices/:priceId", write, conceptHandler.DeactivatePrice)

	// Periodos, libro y generación
	periodHandler := NewPeriodHandler(deps.PeriodUC)
	appliedHandler := NewAppliedConceptHandler(deps.AppliedUC)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.DocumentUC)

	periods := api.Group("/periods")
	periods.Post("/", write, periodHandler.Create)
	periods.Get("/", read, periodHandler.List)
	periods.Get("/:id", read, periodHandler.Get)
	periods.Post("/:id/close", write, periodHandler.Close)
	periods.Delete("/:id", admin, periodHandler.Remove)

	periods.Post("/:id/concepts", write, appliedHandler.Apply)
	periods.Post("/:id/concepts/bulk", write, appliedHandler.BulkApply)
	periods.Get("/:id/concepts", read, appliedHandler.List)

	periods.Get("/:id/invoices/preview", read, invoiceHandler.Preview)
	periods.Post("/:id/invoices/generate", write, invoiceHandler.Generate)
	periods.Post("/:id/accounts/:accountId/invoice", write, invoiceHandler.GenerateOne)
	periods.Delete("/:id/invoices", admin, invoiceHandler.DeletePeriodInvoices)

	applied := api.Group("/applied-concepts")
	applied.Get("/:id", read, appliedHandler.Get)
	applied.Put("/:id", write, appliedHandler.Update)
	applied.Delete("/:id", write, appliedHandler.Remove)

	// Facturas
	invoices := api.Group("/invoices")
	invoices.Get("/", read, invoiceHandler.List)
	invoices.Get("/:id", read, invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", read, invoiceHandler.GetPDF)
}
