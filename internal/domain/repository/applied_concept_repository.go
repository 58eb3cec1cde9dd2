package repository

import (
	"context"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// AppliedConceptRepository puerto del libro de conceptos aplicados.
type AppliedConceptRepository interface {
	// Create devuelve domain.ErrConflict si ya existe (periodo, concepto, cuenta).
	Create(ctx context.Context, ac *entity.AppliedConcept) error
	Update(ctx context.Context, ac *entity.AppliedConcept) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.AppliedConcept, error)
	GetByKey(ctx context.Context, periodID, conceptID, accountID string) (*entity.AppliedConcept, error)
	List(ctx context.Context, tenantID string, filter AppliedConceptFilter) ([]*entity.AppliedConcept, error)
	CountByConcept(ctx context.Context, conceptID string) (int, error)
	CountByPeriod(ctx context.Context, periodID string) (int, error)
	// SetBilled marca (o desmarca) los conceptos del periodo; accountID vacío = todas las cuentas.
	SetBilled(ctx context.Context, periodID, accountID string, billed bool) (int64, error)
}
