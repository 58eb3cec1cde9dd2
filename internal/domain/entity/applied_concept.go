package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppliedConcept línea del libro de conceptos aplicados: un concepto cobrado a una cuenta en un periodo.
// Precio e impuesto se capturan al aplicar; no son referencias vivas al catálogo.
type AppliedConcept struct {
	ID            string
	TenantID      string
	PeriodID      string
	ConceptID     string
	AccountID     string
	ServiceID     *string // suministro / medidor asociado, opcional
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Subtotal      decimal.Decimal
	TaxApplies    bool
	TaxPercentage decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	Billed        bool
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Solo lectura (JOIN con billable_concepts).
	ConceptCode string
	ConceptName string
}
