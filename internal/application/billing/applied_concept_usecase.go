package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// AppliedConceptUseCase libro de conceptos aplicados de un periodo.
// Solo se modifica con el periodo OPEN y mientras la línea no esté facturada.
type AppliedConceptUseCase struct {
	txRunner BillingTxRunner
	repos    BillingRepos
	accounts AccountLookup
	log      *logger.Logger
	now      func() time.Time
}

// NewAppliedConceptUseCase construye el caso de uso.
func NewAppliedConceptUseCase(txRunner BillingTxRunner, repos BillingRepos, accounts AccountLookup, log *logger.Logger) *AppliedConceptUseCase {
	return &AppliedConceptUseCase{txRunner: txRunner, repos: repos, accounts: accounts, log: log, now: time.Now}
}

func (uc *AppliedConceptUseCase) logFor(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, uc.log)
}

// Apply registra un concepto para una cuenta en el periodo.
// Importes: subtotal = cantidad × precio; impuesto = subtotal × % / 100 si aplica; total = subtotal + impuesto.
func (uc *AppliedConceptUseCase) Apply(ctx context.Context, tenantID, actorID, periodID string, in dto.ApplyConceptRequest) (*dto.AppliedConceptResponse, error) {
	if err := validateLineInput(in.Quantity, in.UnitPrice, in.Tax); err != nil {
		return nil, err
	}
	if in.ConceptID == "" || in.AccountID == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkAccount(ctx, tenantID, in.AccountID); err != nil {
		return nil, err
	}

	var created *entity.AppliedConcept
	err := uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		period, err := r.Periods.GetForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if err := requireOpen(period); err != nil {
			return err
		}
		concept, err := r.Concepts.GetByID(ctx, tenantID, in.ConceptID)
		if err != nil {
			return err
		}
		if concept == nil {
			return fmt.Errorf("%w: concepto %s", domain.ErrNotFound, in.ConceptID)
		}
		if !concept.Lifecycle.IsActive() {
			return fmt.Errorf("%w: el concepto %s está desactivado", domain.ErrPreconditionFailed, concept.Code)
		}
		existing, err := r.Applied.GetByKey(ctx, period.ID, concept.ID, in.AccountID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: la cuenta ya tiene el concepto %s en el periodo %s",
				domain.ErrConflict, concept.Code, period.Label)
		}

		unitPrice, err := resolveUnitPrice(ctx, r, concept, period, in.UnitPrice)
		if err != nil {
			return err
		}
		taxApplies, taxPct := resolveTax(concept, in.Tax)

		now := uc.now()
		created = &entity.AppliedConcept{
			ID:            uuid.New().String(),
			TenantID:      tenantID,
			PeriodID:      period.ID,
			ConceptID:     concept.ID,
			AccountID:     in.AccountID,
			ServiceID:     in.ServiceID,
			Quantity:      in.Quantity,
			UnitPrice:     unitPrice,
			TaxApplies:    taxApplies,
			TaxPercentage: taxPct,
			Notes:         strings.TrimSpace(in.Notes),
			CreatedBy:     actorID,
			CreatedAt:     now,
			UpdatedAt:     now,
			ConceptCode:   concept.Code,
			ConceptName:   concept.Name,
		}
		invoicing.Recalculate(created)
		return r.Applied.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	return toAppliedConceptResponse(created), nil
}

// BulkApply aplica el mismo concepto (precio e impuesto compartidos) a muchas cuentas.
// Cada cuenta se intenta por separado: las que ya tienen el concepto se omiten y el lote nunca aborta.
func (uc *AppliedConceptUseCase) BulkApply(ctx context.Context, tenantID, actorID, periodID string, in dto.BulkApplyRequest) (*dto.BulkApplyResult, error) {
	if in.ConceptID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	period, err := uc.repos.Periods.GetByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if err := requireOpen(period); err != nil {
		return nil, err
	}
	concept, err := uc.repos.Concepts.GetByID(ctx, tenantID, in.ConceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, fmt.Errorf("%w: concepto %s", domain.ErrNotFound, in.ConceptID)
	}

	result := &dto.BulkApplyResult{
		Created: []dto.AppliedConceptResponse{},
		Skipped: []string{},
		Failed:  []dto.AccountError{},
	}
	for _, item := range in.Items {
		resp, err := uc.Apply(ctx, tenantID, actorID, periodID, dto.ApplyConceptRequest{
			ConceptID: in.ConceptID,
			AccountID: item.AccountID,
			ServiceID: item.ServiceID,
			Quantity:  item.Quantity,
			UnitPrice: in.UnitPrice,
			Tax:       in.Tax,
			Notes:     item.Notes,
		})
		switch {
		case err == nil:
			result.Created = append(result.Created, *resp)
		case errors.Is(err, domain.ErrConflict):
			result.Skipped = append(result.Skipped, item.AccountID)
			uc.logFor(ctx).Info().
				Str("period_id", periodID).
				Str("concept_id", in.ConceptID).
				Str("account_id", item.AccountID).
				Msg("concepto ya aplicado a la cuenta, se omite")
		default:
			result.Failed = append(result.Failed, dto.AccountError{AccountID: item.AccountID, Message: err.Error()})
			uc.logFor(ctx).Warn().
				Err(err).
				Str("period_id", periodID).
				Str("concept_id", in.ConceptID).
				Str("account_id", item.AccountID).
				Msg("no se pudo aplicar el concepto a la cuenta")
		}
	}
	return result, nil
}

// Update modifica cantidad, precio, impuesto o notas y recalcula los importes.
func (uc *AppliedConceptUseCase) Update(ctx context.Context, tenantID, appliedID string, in dto.UpdateAppliedConceptRequest) (*dto.AppliedConceptResponse, error) {
	var ac *entity.AppliedConcept
	err := uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		var err error
		ac, err = uc.loadMutable(ctx, r, tenantID, appliedID)
		if err != nil {
			return err
		}
		if in.Quantity != nil {
			ac.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			ac.UnitPrice = *in.UnitPrice
		}
		if in.Tax != nil {
			ac.TaxApplies = in.Tax.Applies
			if in.Tax.Percentage != nil {
				ac.TaxPercentage = *in.Tax.Percentage
			}
		}
		if in.ServiceID != nil {
			ac.ServiceID = in.ServiceID
		}
		if in.Notes != nil {
			ac.Notes = strings.TrimSpace(*in.Notes)
		}
		price := ac.UnitPrice
		if err := validateLineInput(ac.Quantity, &price, &dto.TaxOverride{Applies: ac.TaxApplies, Percentage: &ac.TaxPercentage}); err != nil {
			return err
		}
		invoicing.Recalculate(ac)
		ac.UpdatedAt = uc.now()
		return r.Applied.Update(ctx, ac)
	})
	if err != nil {
		return nil, err
	}
	return toAppliedConceptResponse(ac), nil
}

// Remove elimina físicamente una línea no facturada de un periodo abierto.
func (uc *AppliedConceptUseCase) Remove(ctx context.Context, tenantID, appliedID string) error {
	return uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		ac, err := uc.loadMutable(ctx, r, tenantID, appliedID)
		if err != nil {
			return err
		}
		return r.Applied.Delete(ctx, ac.ID)
	})
}

// Get obtiene un concepto aplicado.
func (uc *AppliedConceptUseCase) Get(ctx context.Context, tenantID, appliedID string) (*dto.AppliedConceptResponse, error) {
	ac, err := uc.repos.Applied.GetByID(ctx, tenantID, appliedID)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, domain.ErrNotFound
	}
	return toAppliedConceptResponse(ac), nil
}

// List lista los conceptos aplicados del periodo.
func (uc *AppliedConceptUseCase) List(ctx context.Context, tenantID, periodID string, filter repository.AppliedConceptFilter) ([]*dto.AppliedConceptResponse, error) {
	period, err := uc.repos.Periods.GetByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	filter.PeriodID = period.ID
	list, err := uc.repos.Applied.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.AppliedConceptResponse, 0, len(list))
	for _, ac := range list {
		out = append(out, toAppliedConceptResponse(ac))
	}
	return out, nil
}

// loadMutable carga la línea validando periodo OPEN (con bloqueo) y que no esté facturada.
func (uc *AppliedConceptUseCase) loadMutable(ctx context.Context, r BillingRepos, tenantID, appliedID string) (*entity.AppliedConcept, error) {
	ac, err := r.Applied.GetByID(ctx, tenantID, appliedID)
	if err != nil {
		return nil, err
	}
	if ac == nil {
		return nil, domain.ErrNotFound
	}
	period, err := r.Periods.GetForUpdate(ctx, tenantID, ac.PeriodID)
	if err != nil {
		return nil, err
	}
	if err := requireOpen(period); err != nil {
		return nil, err
	}
	if ac.Billed {
		return nil, fmt.Errorf("%w: el concepto aplicado ya fue facturado", domain.ErrPreconditionFailed)
	}
	return ac, nil
}

func (uc *AppliedConceptUseCase) checkAccount(ctx context.Context, tenantID, accountID string) error {
	acc, err := uc.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("%w: cuenta %s", domain.ErrNotFound, accountID)
	}
	if !acc.Active {
		return fmt.Errorf("%w: la cuenta %s está inactiva", domain.ErrPreconditionFailed, acc.Number)
	}
	return nil
}

func requireOpen(period *entity.BillingPeriod) error {
	if period == nil {
		return domain.ErrNotFound
	}
	if period.State != entity.PeriodStateOpen {
		return fmt.Errorf("%w: el periodo %s está %s", domain.ErrPreconditionFailed, period.Label, period.State)
	}
	return nil
}

func validateLineInput(quantity decimal.Decimal, unitPrice *decimal.Decimal, tax *dto.TaxOverride) error {
	if !validAmount(quantity) {
		return fmt.Errorf("%w: la cantidad debe ser >= 0 con hasta 6 decimales", domain.ErrInvalidInput)
	}
	if unitPrice != nil && !validAmount(*unitPrice) {
		return fmt.Errorf("%w: el precio debe ser >= 0 con hasta 6 decimales", domain.ErrInvalidInput)
	}
	if tax != nil && tax.Percentage != nil && !validPercentage(*tax.Percentage) {
		return fmt.Errorf("%w: el porcentaje de impuesto debe estar entre 0 y 100 con hasta 4 decimales", domain.ErrInvalidInput)
	}
	return nil
}

// resolveUnitPrice precio explícito; si no, el vigente al inicio del periodo; si no, la caché del concepto.
func resolveUnitPrice(ctx context.Context, r BillingRepos, concept *entity.BillableConcept, period *entity.BillingPeriod, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}
	p, err := effectivePrice(ctx, r.Prices, concept.ID, period.StartDate)
	if err != nil {
		return decimal.Zero, err
	}
	if p != nil {
		return p.Value, nil
	}
	if concept.CurrentPrice != nil {
		return *concept.CurrentPrice, nil
	}
	return decimal.Zero, fmt.Errorf("%w: el concepto %s no tiene precio vigente", domain.ErrBusinessRule, concept.Code)
}

// resolveTax el override (si viene) manda sobre la configuración del concepto.
func resolveTax(concept *entity.BillableConcept, override *dto.TaxOverride) (bool, decimal.Decimal) {
	if override == nil {
		return concept.TaxApplies, concept.TaxPercentage
	}
	pct := concept.TaxPercentage
	if override.Percentage != nil {
		pct = *override.Percentage
	}
	return override.Applies, pct
}
