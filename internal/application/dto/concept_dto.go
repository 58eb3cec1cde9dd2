package dto

import "github.com/shopspring/decimal"

// CreateConceptRequest body para POST /api/billing/concepts.
type CreateConceptRequest struct {
	Code          string           `json:"code" validate:"required,max=50"`
	Name          string           `json:"name" validate:"required,max=200"`
	Kind          string           `json:"kind" validate:"required,oneof=FLAT_FEE METERED OTHER"`
	TaxApplies    bool             `json:"tax_applies"`
	TaxPercentage decimal.Decimal  `json:"tax_percentage"`
	InitialPrice  *decimal.Decimal `json:"initial_price,omitempty"` // si viene, abre el historial con vigencia desde hoy
}

// UpdateConceptRequest body para PUT /api/billing/concepts/:id. Solo se actualizan los campos presentes.
type UpdateConceptRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Kind          *string          `json:"kind,omitempty" validate:"omitempty,oneof=FLAT_FEE METERED OTHER"`
	TaxApplies    *bool            `json:"tax_applies,omitempty"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage,omitempty"`
}

// ConceptResponse concepto en respuestas.
type ConceptResponse struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenant_id"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Kind          string           `json:"kind"`
	TaxApplies    bool             `json:"tax_applies"`
	TaxPercentage decimal.Decimal  `json:"tax_percentage"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	Active        bool             `json:"active"`
}

// RepriceRequest body para POST /api/billing/concepts/:id/prices.
// CloseOpenEnded: si el único cruce es una vigencia abierta anterior, se cierra el día previo a EffectiveFrom.
type RepriceRequest struct {
	Value          decimal.Decimal `json:"value"`
	EffectiveFrom  string          `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo    *string         `json:"effective_to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reason         string          `json:"reason" validate:"max=500"`
	CloseOpenEnded bool            `json:"close_open_ended"`
}

// PriceResponse entrada del historial de precios.
type PriceResponse struct {
	ID            string          `json:"id"`
	ConceptID     string          `json:"concept_id"`
	Value         decimal.Decimal `json:"value"`
	EffectiveFrom string          `json:"effective_from"`
	EffectiveTo   *string         `json:"effective_to"`
	Reason        string          `json:"reason,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	Active        bool            `json:"active"`
}
