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
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// ConceptUseCase catálogo de conceptos facturables y su historial de precios.
type ConceptUseCase struct {
	txRunner BillingTxRunner
	repos    BillingRepos
	now      func() time.Time
}

// NewConceptUseCase construye el caso de uso.
func NewConceptUseCase(txRunner BillingTxRunner, repos BillingRepos) *ConceptUseCase {
	return &ConceptUseCase{txRunner: txRunner, repos: repos, now: time.Now}
}

// Create da de alta un concepto. Si trae precio inicial abre el historial con vigencia desde hoy y sin fin.
func (uc *ConceptUseCase) Create(ctx context.Context, tenantID, actorID string, in dto.CreateConceptRequest) (*dto.ConceptResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	kind := entity.ConceptKind(in.Kind)
	if tenantID == "" || code == "" || name == "" || !kind.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	if !validPercentage(in.TaxPercentage) {
		return nil, fmt.Errorf("%w: el porcentaje de impuesto debe estar entre 0 y 100 con hasta 4 decimales", domain.ErrInvalidInput)
	}
	if in.InitialPrice != nil && !validAmount(*in.InitialPrice) {
		return nil, fmt.Errorf("%w: el precio debe ser >= 0 con hasta 6 decimales", domain.ErrInvalidInput)
	}

	existing, err := uc.repos.Concepts.GetByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: ya existe un concepto con código %s", domain.ErrConflict, code)
	}

	now := uc.now()
	concept := &entity.BillableConcept{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Code:          code,
		Name:          name,
		Kind:          kind,
		TaxApplies:    in.TaxApplies,
		TaxPercentage: in.TaxPercentage,
		Lifecycle:     entity.LifecycleActive,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.InitialPrice != nil {
		v := *in.InitialPrice
		concept.CurrentPrice = &v
	}

	err = uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		if err := r.Concepts.Create(ctx, concept); err != nil {
			return err
		}
		if in.InitialPrice == nil {
			return nil
		}
		return r.Prices.Create(ctx, &entity.ConceptPrice{
			ID:            uuid.New().String(),
			ConceptID:     concept.ID,
			Value:         *in.InitialPrice,
			EffectiveFrom: invoicing.DateOnly(now),
			Reason:        "precio inicial",
			CreatedBy:     actorID,
			Lifecycle:     entity.LifecycleActive,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	return toConceptResponse(concept), nil
}

// Update modifica nombre, tipo y configuración de impuesto. El precio solo cambia vía Reprice.
func (uc *ConceptUseCase) Update(ctx context.Context, tenantID, conceptID string, in dto.UpdateConceptRequest) (*dto.ConceptResponse, error) {
	concept, err := uc.repos.Concepts.GetByID(ctx, tenantID, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, domain.ErrNotFound
	}
	if !concept.Lifecycle.IsActive() {
		return nil, fmt.Errorf("%w: el concepto %s está desactivado", domain.ErrPreconditionFailed, concept.Code)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		concept.Name = name
	}
	if in.Kind != nil {
		kind := entity.ConceptKind(*in.Kind)
		if !kind.IsValid() {
			return nil, domain.ErrInvalidInput
		}
		concept.Kind = kind
	}
	if in.TaxApplies != nil {
		concept.TaxApplies = *in.TaxApplies
	}
	if in.TaxPercentage != nil {
		if !validPercentage(*in.TaxPercentage) {
			return nil, fmt.Errorf("%w: el porcentaje de impuesto debe estar entre 0 y 100 con hasta 4 decimales", domain.ErrInvalidInput)
		}
		concept.TaxPercentage = *in.TaxPercentage
	}
	concept.UpdatedAt = uc.now()
	if err := uc.repos.Concepts.Update(ctx, concept); err != nil {
		return nil, err
	}
	return toConceptResponse(concept), nil
}

// Get obtiene un concepto del tenant.
func (uc *ConceptUseCase) Get(ctx context.Context, tenantID, conceptID string) (*dto.ConceptResponse, error) {
	concept, err := uc.repos.Concepts.GetByID(ctx, tenantID, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, domain.ErrNotFound
	}
	return toConceptResponse(concept), nil
}

// List lista conceptos del tenant.
func (uc *ConceptUseCase) List(ctx context.Context, tenantID string, filter repository.ConceptFilter) ([]*dto.ConceptResponse, error) {
	list, err := uc.repos.Concepts.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ConceptResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toConceptResponse(c))
	}
	return out, nil
}

// Reprice agrega una vigencia al historial. Rechaza con ErrConflict si se cruza con otra vigencia activa,
// salvo CloseOpenEnded: una vigencia abierta que empezó antes se cierra el día previo al nuevo inicio.
func (uc *ConceptUseCase) Reprice(ctx context.Context, tenantID, actorID, conceptID string, in dto.RepriceRequest) (*dto.PriceResponse, error) {
	if !validAmount(in.Value) {
		return nil, fmt.Errorf("%w: el precio debe ser >= 0 con hasta 6 decimales", domain.ErrInvalidInput)
	}
	from, err := parseDate(in.EffectiveFrom)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		return nil, fmt.Errorf("%w: effective_from es obligatorio", domain.ErrInvalidInput)
	}
	var to *time.Time
	if in.EffectiveTo != nil && strings.TrimSpace(*in.EffectiveTo) != "" {
		t, err := parseDate(*in.EffectiveTo)
		if err != nil {
			return nil, err
		}
		if t.Before(from) {
			return nil, fmt.Errorf("%w: effective_to anterior a effective_from", domain.ErrInvalidInput)
		}
		to = &t
	}

	now := uc.now()
	var created *entity.ConceptPrice
	err = uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		concept, err := r.Concepts.GetForUpdate(ctx, tenantID, conceptID)
		if err != nil {
			return err
		}
		if concept == nil {
			return domain.ErrNotFound
		}
		if !concept.Lifecycle.IsActive() {
			return fmt.Errorf("%w: el concepto %s está desactivado", domain.ErrPreconditionFailed, concept.Code)
		}
		history, err := r.Prices.ListByConcept(ctx, concept.ID)
		if err != nil {
			return err
		}

		if clash := invoicing.FindOverlap(history, from, to); clash != nil {
			if !in.CloseOpenEnded || clash.EffectiveTo != nil || !clash.EffectiveFrom.Before(from) {
				return overlapError(clash)
			}
			closeAt := from.AddDate(0, 0, -1)
			clash.EffectiveTo = &closeAt
			if err := r.Prices.Update(ctx, clash); err != nil {
				return err
			}
			if other := invoicing.FindOverlap(history, from, to); other != nil {
				return overlapError(other)
			}
		}

		created = &entity.ConceptPrice{
			ID:            uuid.New().String(),
			ConceptID:     concept.ID,
			Value:         in.Value,
			EffectiveFrom: from,
			EffectiveTo:   to,
			Reason:        strings.TrimSpace(in.Reason),
			CreatedBy:     actorID,
			Lifecycle:     entity.LifecycleActive,
			CreatedAt:     now,
		}
		if err := r.Prices.Create(ctx, created); err != nil {
			return err
		}
		history = append(history, created)
		refreshCurrentPrice(concept, history, now)
		return r.Concepts.Update(ctx, concept)
	})
	if err != nil {
		return nil, err
	}
	return toPriceResponse(created), nil
}

// CurrentPrice devuelve la vigencia que contiene asOf; (nil, nil) si el concepto no tiene precio en esa fecha.
func (uc *ConceptUseCase) CurrentPrice(ctx context.Context, tenantID, conceptID string, asOf time.Time) (*dto.PriceResponse, error) {
	concept, err := uc.repos.Concepts.GetByID(ctx, tenantID, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, domain.ErrNotFound
	}
	p, err := effectivePrice(ctx, uc.repos.Prices, concept.ID, invoicing.DateOnly(asOf))
	if err != nil || p == nil {
		return nil, err
	}
	return toPriceResponse(p), nil
}

// PriceHistory historial completo (incluye vigencias desactivadas).
func (uc *ConceptUseCase) PriceHistory(ctx context.Context, tenantID, conceptID string) ([]*dto.PriceResponse, error) {
	concept, err := uc.repos.Concepts.GetByID(ctx, tenantID, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, domain.ErrNotFound
	}
	history, err := uc.repos.Prices.ListByConcept(ctx, concept.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.PriceResponse, 0, len(history))
	for _, p := range history {
		out = append(out, toPriceResponse(p))
	}
	return out, nil
}

// DeactivatePrice desactiva lógicamente una vigencia y recalcula la caché de precio del concepto.
func (uc *ConceptUseCase) DeactivatePrice(ctx context.Context, tenantID, conceptID, priceID string) error {
	now := uc.now()
	return uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		concept, err := r.Concepts.GetForUpdate(ctx, tenantID, conceptID)
		if err != nil {
			return err
		}
		if concept == nil {
			return domain.ErrNotFound
		}
		price, err := r.Prices.GetByID(ctx, concept.ID, priceID)
		if err != nil {
			return err
		}
		if price == nil {
			return domain.ErrNotFound
		}
		if err := price.Lifecycle.Deactivate(); err != nil {
			return err
		}
		if err := r.Prices.Update(ctx, price); err != nil {
			return err
		}
		history, err := r.Prices.ListByConcept(ctx, concept.ID)
		if err != nil {
			return err
		}
		refreshCurrentPrice(concept, history, now)
		return r.Concepts.Update(ctx, concept)
	})
}

// Deactivate desactiva el concepto. Rechaza si algún concepto aplicado lo referencia.
func (uc *ConceptUseCase) Deactivate(ctx context.Context, tenantID, conceptID string) error {
	now := uc.now()
	return uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		concept, err := r.Concepts.GetForUpdate(ctx, tenantID, conceptID)
		if err != nil {
			return err
		}
		if concept == nil {
			return domain.ErrNotFound
		}
		refs, err := r.Applied.CountByConcept(ctx, concept.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: el concepto %s está referenciado por %d conceptos aplicados",
				domain.ErrPreconditionFailed, concept.Code, refs)
		}
		if err := concept.Lifecycle.Deactivate(); err != nil {
			return err
		}
		concept.UpdatedAt = now
		return r.Concepts.Update(ctx, concept)
	})
}

// effectivePrice vigencia activa que contiene la fecha.
func effectivePrice(ctx context.Context, prices repository.PriceHistoryRepository, conceptID string, at time.Time) (*entity.ConceptPrice, error) {
	history, err := prices.ListByConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	return invoicing.EffectiveAt(history, at), nil
}

// refreshCurrentPrice caché = precio vigente hoy; si no hay, la vigencia activa más reciente.
func refreshCurrentPrice(concept *entity.BillableConcept, history []*entity.ConceptPrice, now time.Time) {
	p := invoicing.EffectiveAt(history, invoicing.DateOnly(now))
	if p == nil {
		p = invoicing.Latest(history)
	}
	concept.UpdatedAt = now
	if p == nil {
		concept.CurrentPrice = nil
		return
	}
	v := p.Value
	concept.CurrentPrice = &v
}

func overlapError(p *entity.ConceptPrice) error {
	until := "sin fin"
	if p.EffectiveTo != nil {
		until = formatDate(*p.EffectiveTo)
	}
	return fmt.Errorf("%w: la vigencia se cruza con la existente %s a %s",
		domain.ErrConflict, formatDate(p.EffectiveFrom), until)
}
