package dto

import "github.com/shopspring/decimal"

// TaxOverride sustituye la configuración de impuesto por defecto del concepto.
// Percentage nil = se conserva el porcentaje del concepto.
type TaxOverride struct {
	Applies    bool             `json:"applies"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

// ApplyConceptRequest body para POST /api/billing/periods/:id/concepts.
// UnitPrice nil = precio vigente del catálogo a la fecha de inicio del periodo.
type ApplyConceptRequest struct {
	ConceptID string           `json:"concept_id" validate:"required"`
	AccountID string           `json:"account_id" validate:"required"`
	ServiceID *string          `json:"service_id,omitempty"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Tax       *TaxOverride     `json:"tax,omitempty"`
	Notes     string           `json:"notes,omitempty" validate:"max=500"`
}

// UpdateAppliedConceptRequest body para PUT /api/billing/applied-concepts/:id.
type UpdateAppliedConceptRequest struct {
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Tax       *TaxOverride     `json:"tax,omitempty"`
	ServiceID *string          `json:"service_id,omitempty"`
	Notes     *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// BulkApplyItem cantidad por cuenta en una aplicación masiva.
type BulkApplyItem struct {
	AccountID string          `json:"account_id" validate:"required"`
	ServiceID *string         `json:"service_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     string          `json:"notes,omitempty" validate:"max=500"`
}

// BulkApplyRequest body para POST /api/billing/periods/:id/concepts/bulk.
type BulkApplyRequest struct {
	ConceptID string           `json:"concept_id" validate:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Tax       *TaxOverride     `json:"tax,omitempty"`
	Items     []BulkApplyItem  `json:"items" validate:"required,min=1,dive"`
}

// AppliedConceptResponse concepto aplicado en respuestas.
type AppliedConceptResponse struct {
	ID            string          `json:"id"`
	PeriodID      string          `json:"period_id"`
	ConceptID     string          `json:"concept_id"`
	ConceptCode   string          `json:"concept_code,omitempty"`
	ConceptName   string          `json:"concept_name,omitempty"`
	AccountID     string          `json:"account_id"`
	ServiceID     *string         `json:"service_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxApplies    bool            `json:"tax_applies"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Billed        bool            `json:"billed"`
	Notes         string          `json:"notes,omitempty"`
}

// AccountError error registrado para una cuenta dentro de una operación masiva.
type AccountError struct {
	AccountID string `json:"account_id"`
	Message   string `json:"message"`
}

// BulkApplyResult resultado de una aplicación masiva: nunca aborta el lote.
type BulkApplyResult struct {
	Created []AppliedConceptResponse `json:"created"`
	Skipped []string                 `json:"skipped"` // cuentas que ya tenían el concepto en el periodo
	Failed  []AccountError           `json:"failed"`
}
