package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConceptPrice entrada del historial de precios de un concepto.
// El intervalo [EffectiveFrom, EffectiveTo] es cerrado en ambos extremos; EffectiveTo nil = vigente sin fin.
type ConceptPrice struct {
	ID            string
	ConceptID     string
	Value         decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Reason        string
	CreatedBy     string
	Lifecycle     Lifecycle
	CreatedAt     time.Time
}

// Covers indica si la fecha cae dentro del intervalo de vigencia.
func (p *ConceptPrice) Covers(at time.Time) bool {
	if at.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || !p.EffectiveTo.Before(at)
}
