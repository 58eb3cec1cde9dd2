package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConceptKind tipo de concepto facturable.
type ConceptKind string

const (
	ConceptKindFlatFee ConceptKind = "FLAT_FEE" // Cargo fijo (cuota de servicio)
	ConceptKindMetered ConceptKind = "METERED"  // Consumo medido
	ConceptKindOther   ConceptKind = "OTHER"
)

// IsValid verifica que el tipo sea uno de los conocidos.
func (k ConceptKind) IsValid() bool {
	switch k {
	case ConceptKindFlatFee, ConceptKindMetered, ConceptKindOther:
		return true
	}
	return false
}

// BillableConcept concepto facturable del catálogo de la cooperativa.
// CurrentPrice es una caché de la última entrada del historial; nil = sin precio.
type BillableConcept struct {
	ID            string
	TenantID      string
	Code          string
	Name          string
	Kind          ConceptKind
	TaxApplies    bool
	TaxPercentage decimal.Decimal
	CurrentPrice  *decimal.Decimal
	Lifecycle     Lifecycle
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
