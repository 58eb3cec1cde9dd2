package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// PeriodUseCase ciclo de vida de los periodos de facturación: OPEN -> CLOSED -> INVOICED.
type PeriodUseCase struct {
	txRunner BillingTxRunner
	repos    BillingRepos
	now      func() time.Time
}

// NewPeriodUseCase construye el caso de uso.
func NewPeriodUseCase(txRunner BillingTxRunner, repos BillingRepos) *PeriodUseCase {
	return &PeriodUseCase{txRunner: txRunner, repos: repos, now: time.Now}
}

// Create abre un periodo para (tenant, mes, año). Sin fechas explícitas cubre el mes calendario.
func (uc *PeriodUseCase) Create(ctx context.Context, tenantID, actorID string, in dto.CreatePeriodRequest) (*dto.PeriodResponse, error) {
	if tenantID == "" || in.Month < 1 || in.Month > 12 || in.Year < 2000 {
		return nil, domain.ErrInvalidInput
	}
	start := time.Date(in.Year, time.Month(in.Month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	if in.StartDate != "" {
		t, err := parseDate(in.StartDate)
		if err != nil {
			return nil, err
		}
		start = t
	}
	if in.EndDate != "" {
		t, err := parseDate(in.EndDate)
		if err != nil {
			return nil, err
		}
		end = t
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date anterior a start_date", domain.ErrInvalidInput)
	}

	existing, err := uc.repos.Periods.GetByMonthYear(ctx, tenantID, in.Month, in.Year)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: ya existe el periodo %s", domain.ErrConflict, existing.Label)
	}

	now := uc.now()
	period := &entity.BillingPeriod{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Month:     in.Month,
		Year:      in.Year,
		Label:     entity.PeriodLabel(in.Month, in.Year),
		StartDate: start,
		EndDate:   end,
		State:     entity.PeriodStateOpen,
		CreatedBy: actorID,
		Notes:     strings.TrimSpace(in.Notes),
		Lifecycle: entity.LifecycleActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repos.Periods.Create(ctx, period); err != nil {
		return nil, err
	}
	return toPeriodResponse(period), nil
}

// Get obtiene un periodo del tenant.
func (uc *PeriodUseCase) Get(ctx context.Context, tenantID, periodID string) (*dto.PeriodResponse, error) {
	period, err := uc.repos.Periods.GetByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	return toPeriodResponse(period), nil
}

// List lista periodos del tenant (más recientes primero).
func (uc *PeriodUseCase) List(ctx context.Context, tenantID string, filter repository.PeriodFilter) ([]*dto.PeriodResponse, error) {
	list, err := uc.repos.Periods.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.PeriodResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPeriodResponse(p))
	}
	return out, nil
}

// Close cierra el periodo (solo desde OPEN): a partir de aquí no admite conceptos y puede facturarse.
func (uc *PeriodUseCase) Close(ctx context.Context, tenantID, actorID, periodID string) (*dto.PeriodResponse, error) {
	var period *entity.BillingPeriod
	err := uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		var err error
		period, err = r.Periods.GetForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period == nil {
			return domain.ErrNotFound
		}
		if err := period.TransitionTo(entity.PeriodStateClosed, actorID, uc.now()); err != nil {
			return err
		}
		return r.Periods.Update(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	return toPeriodResponse(period), nil
}

// Remove baja lógica: el periodo queda CLOSED y desactivado, nunca se borra.
// Se rechaza si todavía tiene conceptos aplicados.
func (uc *PeriodUseCase) Remove(ctx context.Context, tenantID, actorID, periodID string) error {
	return uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		period, err := r.Periods.GetForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period == nil {
			return domain.ErrNotFound
		}
		n, err := r.Applied.CountByPeriod(ctx, period.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: el periodo %s tiene %d conceptos aplicados",
				domain.ErrPreconditionFailed, period.Label, n)
		}
		now := uc.now()
		if period.State != entity.PeriodStateClosed {
			if err := period.TransitionTo(entity.PeriodStateClosed, actorID, now); err != nil {
				return err
			}
		}
		if err := period.Lifecycle.Deactivate(); err != nil {
			return err
		}
		period.UpdatedAt = now
		return r.Periods.Update(ctx, period)
	})
}
