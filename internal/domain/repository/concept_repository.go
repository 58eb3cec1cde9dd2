package repository

import (
	"context"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// ConceptRepository puerto de persistencia del catálogo de conceptos.
// Los Get devuelven (nil, nil) si no existe o no pertenece al tenant.
type ConceptRepository interface {
	Create(ctx context.Context, concept *entity.BillableConcept) error
	Update(ctx context.Context, concept *entity.BillableConcept) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.BillableConcept, error)
	// GetForUpdate bloquea la fila del concepto hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.BillableConcept, error)
	GetByCode(ctx context.Context, tenantID, code string) (*entity.BillableConcept, error)
	List(ctx context.Context, tenantID string, filter ConceptFilter) ([]*entity.BillableConcept, error)
}

// PriceHistoryRepository puerto del historial de precios de conceptos.
type PriceHistoryRepository interface {
	Create(ctx context.Context, price *entity.ConceptPrice) error
	// Update persiste effective_to y lifecycle.
	Update(ctx context.Context, price *entity.ConceptPrice) error
	GetByID(ctx context.Context, conceptID, id string) (*entity.ConceptPrice, error)
	// ListByConcept devuelve todo el historial ordenado por effective_from.
	ListByConcept(ctx context.Context, conceptID string) ([]*entity.ConceptPrice, error)
}
