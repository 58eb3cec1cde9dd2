package repository

import (
	"context"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// BillingPeriodRepository puerto de persistencia de periodos de facturación.
type BillingPeriodRepository interface {
	// Create devuelve domain.ErrConflict si ya existe (tenant, mes, año).
	Create(ctx context.Context, period *entity.BillingPeriod) error
	Update(ctx context.Context, period *entity.BillingPeriod) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.BillingPeriod, error)
	// GetForUpdate bloquea la fila: serializa cambios de estado con altas de conceptos.
	GetForUpdate(ctx context.Context, tenantID, id string) (*entity.BillingPeriod, error)
	GetByMonthYear(ctx context.Context, tenantID string, month, year int) (*entity.BillingPeriod, error)
	List(ctx context.Context, tenantID string, filter PeriodFilter) ([]*entity.BillingPeriod, error)
}
