package dto

import "github.com/shopspring/decimal"

// GenerateInvoicesRequest body para POST /api/billing/periods/:id/invoices/generate.
// AccountIDs vacío = periodo completo (único caso en que el periodo pasa a INVOICED).
type GenerateInvoicesRequest struct {
	DueDate    string   `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AccountIDs []string `json:"account_ids,omitempty"`
	Overwrite  bool     `json:"overwrite"`
	Notes      string   `json:"notes,omitempty" validate:"max=1000"`
}

// GenerateAccountInvoiceRequest body para POST /api/billing/periods/:id/accounts/:accountId/invoice.
type GenerateAccountInvoiceRequest struct {
	DueDate   string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Overwrite bool   `json:"overwrite"`
	Notes     string `json:"notes,omitempty" validate:"max=1000"`
}

// GenerationResult resultado estructurado de la generación masiva (no lanza error por cuenta).
type GenerationResult struct {
	PeriodID           string         `json:"period_id"`
	PeriodState        string         `json:"period_state"`
	AccountsConsidered int            `json:"accounts_considered"`
	InvoicesCreated    int            `json:"invoices_created"`
	InvoicesUpdated    int            `json:"invoices_updated"`
	ErrorCount         int            `json:"error_count"`
	Errors             []AccountError `json:"errors"`
	// PeriodStateError motivo por el que el periodo no pasó a INVOICED pese a facturar sin errores.
	PeriodStateError string `json:"period_state_error,omitempty"`
}

// GeneratedInvoice resultado de la generación de una sola cuenta.
type GeneratedInvoice struct {
	Invoice InvoiceResponse `json:"invoice"`
	Created bool            `json:"created"`
}

// InvoiceResponse factura con detalle para GET /api/billing/invoices/:id.
type InvoiceResponse struct {
	ID                 string                `json:"id"`
	TenantID           string                `json:"tenant_id"`
	Number             string                `json:"number"`
	AccountID          string                `json:"account_id"`
	Month              int                   `json:"month"`
	Year               int                   `json:"year"`
	PeriodLabel        string                `json:"period_label"`
	IssueDate          string                `json:"issue_date"`
	DueDate            string                `json:"due_date"`
	Subtotal           decimal.Decimal       `json:"subtotal"`
	TaxTotal           decimal.Decimal       `json:"tax_total"`
	Total              decimal.Decimal       `json:"total"`
	OutstandingBalance decimal.Decimal       `json:"outstanding_balance"`
	Status             string                `json:"status"`
	Notes              string                `json:"notes,omitempty"`
	Lines              []InvoiceLineResponse `json:"lines,omitempty"`
}

// InvoiceLineResponse línea de factura en la respuesta.
type InvoiceLineResponse struct {
	ID           string          `json:"id"`
	ConceptID    string          `json:"concept_id"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	Total        decimal.Decimal `json:"total"`
	DisplayOrder int             `json:"display_order"`
}

// PreviewLine línea calculada en la vista previa.
type PreviewLine struct {
	ConceptID   string          `json:"concept_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

// AccountPreview desglose calculado de una cuenta (sin escribir nada).
type AccountPreview struct {
	AccountID     string          `json:"account_id"`
	AccountNumber string          `json:"account_number,omitempty"`
	HolderName    string          `json:"holder_name,omitempty"`
	Lines         []PreviewLine   `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`
}

// PreviewResponse vista previa de la generación del periodo.
type PreviewResponse struct {
	PeriodID    string           `json:"period_id"`
	PeriodLabel string           `json:"period_label"`
	Accounts    []AccountPreview `json:"accounts"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	TaxTotal    decimal.Decimal  `json:"tax_total"`
	Total       decimal.Decimal  `json:"total"`
}

// ReversalResult resultado de eliminar las facturas de un periodo.
type ReversalResult struct {
	PeriodID        string `json:"period_id"`
	PeriodState     string `json:"period_state"`
	InvoicesDeleted int    `json:"invoices_deleted"`
	EntriesUnbilled int64  `json:"entries_unbilled"`
}
