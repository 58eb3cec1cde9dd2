package repository

import "github.com/jhoicas/cooperativa-api/internal/domain/entity"

// Filtros tipados por listado. Limit <= 0 significa sin límite.

// ConceptFilter filtro para listar conceptos facturables.
type ConceptFilter struct {
	Kind       entity.ConceptKind
	ActiveOnly bool
	Search     string // coincide con código o nombre (ILIKE)
	Limit      int
	Offset     int
}

// PeriodFilter filtro para listar periodos.
type PeriodFilter struct {
	Year       int
	State      entity.PeriodState
	ActiveOnly bool
	Limit      int
	Offset     int
}

// AppliedConceptFilter filtro del libro de conceptos aplicados.
// Los resultados se ordenan por cuenta y luego por nombre de concepto.
type AppliedConceptFilter struct {
	PeriodID   string
	AccountIDs []string
	ConceptID  string
	Billed     *bool
	Limit      int
	Offset     int
}

// InvoiceFilter filtro para listar facturas.
type InvoiceFilter struct {
	AccountID string
	Month     int
	Year      int
	Status    entity.InvoiceStatus
	Limit     int
	Offset    int
}
