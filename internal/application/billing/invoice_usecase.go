package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// GeneratorConfig parámetros de la generación masiva.
type GeneratorConfig struct {
	Workers        int // cuentas procesadas en paralelo
	DefaultDueDays int // vencimiento por defecto = emisión + N días
}

// InvoiceUseCase genera, consulta y revierte las facturas de un periodo.
type InvoiceUseCase struct {
	txRunner BillingTxRunner
	repos    BillingRepos
	accounts AccountLookup
	persons  PersonLookup
	cfg      GeneratorConfig
	log      *logger.Logger
	now      func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner BillingTxRunner,
	repos BillingRepos,
	accounts AccountLookup,
	persons PersonLookup,
	cfg GeneratorConfig,
	log *logger.Logger,
) *InvoiceUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DefaultDueDays <= 0 {
		cfg.DefaultDueDays = 15
	}
	return &InvoiceUseCase{
		txRunner: txRunner,
		repos:    repos,
		accounts: accounts,
		persons:  persons,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// logFor usa el logger de la petición (con tenant y actor) si viene en ctx.
func (uc *InvoiceUseCase) logFor(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, uc.log)
}

// generation parámetros comunes a todas las cuentas de una corrida.
type generation struct {
	tenantID  string
	actorID   string
	period    *entity.BillingPeriod
	issueDate time.Time
	dueDate   time.Time
	overwrite bool
	notes     string
}

// GenerateOne genera (o sobrescribe) la factura de una cuenta. El periodo debe estar CLOSED o INVOICED.
func (uc *InvoiceUseCase) GenerateOne(ctx context.Context, tenantID, actorID, periodID, accountID string, in dto.GenerateAccountInvoiceRequest) (*dto.GeneratedInvoice, error) {
	period, err := uc.repos.Periods.GetByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	if err := requireActivePeriod(period); err != nil {
		return nil, err
	}
	if period.State == entity.PeriodStateOpen {
		return nil, fmt.Errorf("%w: el periodo %s debe estar cerrado para facturar", domain.ErrPreconditionFailed, period.Label)
	}
	acc, err := uc.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: cuenta %s", domain.ErrNotFound, accountID)
	}
	g, err := uc.newGeneration(tenantID, actorID, period, in.DueDate, in.Overwrite, in.Notes)
	if err != nil {
		return nil, err
	}

	var (
		inv     *entity.Invoice
		lines   []*entity.InvoiceLine
		created bool
	)
	err = uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		var err error
		inv, lines, created, err = uc.generateAccount(ctx, r, g, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto.GeneratedInvoice{Invoice: *toInvoiceResponse(inv, lines), Created: created}, nil
}

// GenerateForPeriod factura todas las cuentas con conceptos pendientes (o el subconjunto pedido).
// Cada cuenta corre en su propia transacción: un fallo se registra y no detiene al resto.
// El periodo pasa a INVOICED solo si no hubo errores y se procesó el periodo completo.
func (uc *InvoiceUseCase) GenerateForPeriod(ctx context.Context, tenantID, actorID, periodID string, in dto.GenerateInvoicesRequest) (*dto.GenerationResult, error) {
	period, err := uc.repos.Periods.GetByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	if err := requireActivePeriod(period); err != nil {
		return nil, err
	}
	if period.State != entity.PeriodStateClosed {
		return nil, fmt.Errorf("%w: el periodo %s está %s, se requiere CLOSED",
			domain.ErrPreconditionFailed, period.Label, period.State)
	}
	g, err := uc.newGeneration(tenantID, actorID, period, in.DueDate, in.Overwrite, in.Notes)
	if err != nil {
		return nil, err
	}

	filter := repository.AppliedConceptFilter{PeriodID: period.ID, AccountIDs: in.AccountIDs}
	if !in.Overwrite {
		unbilled := false
		filter.Billed = &unbilled
	}
	entries, err := uc.repos.Applied.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	groups := invoicing.GroupByAccount(entries)

	result := &dto.GenerationResult{
		PeriodID:           period.ID,
		PeriodState:        string(period.State),
		AccountsConsidered: len(groups),
		Errors:             []dto.AccountError{},
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.cfg.Workers)
	for _, group := range groups {
		accountID := group.AccountID
		eg.Go(func() error {
			var created bool
			err := uc.txRunner.RunBilling(egCtx, func(r BillingRepos) error {
				var err error
				_, _, created, err = uc.generateAccount(egCtx, r, g, accountID)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, dto.AccountError{AccountID: accountID, Message: err.Error()})
				uc.logFor(ctx).Warn().
					Err(err).
					Str("period_id", period.ID).
					Str("account_id", accountID).
					Msg("error generando factura de la cuenta")
			case created:
				result.InvoicesCreated++
			default:
				result.InvoicesUpdated++
			}
			// nunca se propaga: un error cancelaría egCtx y abortaría las demás cuentas
			return nil
		})
	}
	_ = eg.Wait()

	sort.Slice(result.Errors, func(i, j int) bool { return result.Errors[i].AccountID < result.Errors[j].AccountID })
	result.ErrorCount = len(result.Errors)

	// Las facturas de cada cuenta ya están confirmadas: si el periodo no puede avanzar,
	// se informa en el resultado y no como error.
	if result.ErrorCount == 0 && len(in.AccountIDs) == 0 {
		if err := uc.markInvoiced(ctx, tenantID, actorID, period.ID, result); err != nil {
			result.PeriodStateError = err.Error()
			uc.logFor(ctx).Error().
				Err(err).
				Str("period_id", period.ID).
				Msg("no se pudo marcar el periodo como INVOICED")
		}
	}

	uc.logFor(ctx).Info().
		Str("period_id", period.ID).
		Int("accounts", result.AccountsConsidered).
		Int("created", result.InvoicesCreated).
		Int("updated", result.InvoicesUpdated).
		Int("errors", result.ErrorCount).
		Str("state", result.PeriodState).
		Msg("generación de facturas finalizada")
	return result, nil
}

// markInvoiced avanza el periodo a INVOICED. Si otra corrida completa ya lo avanzó, no hay nada que hacer.
func (uc *InvoiceUseCase) markInvoiced(ctx context.Context, tenantID, actorID, periodID string, result *dto.GenerationResult) error {
	return uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		p, err := r.Periods.GetForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if err := requireActivePeriod(p); err != nil {
			return err
		}
		if p.State == entity.PeriodStateInvoiced {
			result.PeriodState = string(p.State)
			return nil
		}
		if err := p.TransitionTo(entity.PeriodStateInvoiced, actorID, uc.now()); err != nil {
			return err
		}
		if err := r.Periods.Update(ctx, p); err != nil {
			return err
		}
		result.PeriodState = string(p.State)
		return nil
	})
}

// requireActivePeriod rechaza periodos dados de baja: no se facturan ni se previsualizan.
func requireActivePeriod(period *entity.BillingPeriod) error {
	if !period.Lifecycle.IsActive() {
		return fmt.Errorf("%w: el periodo %s está dado de baja", domain.ErrPreconditionFailed, period.Label)
	}
	return nil
}

// Preview calcula lo que generaría el periodo sin escribir nada.
func (uc *InvoiceUseCase) Preview(ctx context.Context, tenantID, periodID string, accountIDs []string) (*dto.PreviewResponse, error) {
	period, err := uc.repos.Periods.GetByID(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNotFound
	}
	if err := requireActivePeriod(period); err != nil {
		return nil, err
	}
	unbilled := false
	entries, err := uc.repos.Applied.List(ctx, tenantID, repository.AppliedConceptFilter{
		PeriodID:   period.ID,
		AccountIDs: accountIDs,
		Billed:     &unbilled,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.PreviewResponse{
		PeriodID:    period.ID,
		PeriodLabel: period.Label,
		Accounts:    []dto.AccountPreview{},
		Subtotal:    decimal.Zero,
		TaxTotal:    decimal.Zero,
		Total:       decimal.Zero,
	}
	for _, group := range invoicing.GroupByAccount(entries) {
		totals := invoicing.Sum(group.Entries)
		ap := dto.AccountPreview{
			AccountID: group.AccountID,
			Lines:     make([]dto.PreviewLine, 0, len(group.Entries)),
			Subtotal:  totals.Subtotal,
			TaxTotal:  totals.TaxTotal,
			Total:     totals.Total,
		}
		ap.AccountNumber, ap.HolderName, _ = uc.holder(ctx, tenantID, group.AccountID)
		for _, l := range invoicing.LinesFromEntries("", group.Entries) {
			ap.Lines = append(ap.Lines, dto.PreviewLine{
				ConceptID:   l.ConceptID,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Subtotal:    l.Subtotal,
				TaxAmount:   l.TaxAmount,
				Total:       l.Total,
			})
		}
		resp.Accounts = append(resp.Accounts, ap)
		resp.Subtotal = resp.Subtotal.Add(totals.Subtotal)
		resp.TaxTotal = resp.TaxTotal.Add(totals.TaxTotal)
	}
	resp.Total = resp.Subtotal.Add(resp.TaxTotal)
	return resp, nil
}

// DeletePeriodInvoices revierte la facturación del periodo: borra facturas y líneas,
// desmarca los conceptos y devuelve el periodo a CLOSED. Todo o nada.
func (uc *InvoiceUseCase) DeletePeriodInvoices(ctx context.Context, tenantID, actorID, periodID string) (*dto.ReversalResult, error) {
	result := &dto.ReversalResult{PeriodID: periodID}
	err := uc.txRunner.RunBilling(ctx, func(r BillingRepos) error {
		period, err := r.Periods.GetForUpdate(ctx, tenantID, periodID)
		if err != nil {
			return err
		}
		if period == nil {
			return domain.ErrNotFound
		}
		if period.State == entity.PeriodStateOpen {
			return fmt.Errorf("%w: el periodo %s está abierto, no tiene facturas", domain.ErrPreconditionFailed, period.Label)
		}
		invoices, err := r.Invoices.ListByPeriod(ctx, tenantID, period.Month, period.Year)
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			n, err := r.Payments.CountByInvoice(ctx, inv.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: la factura %s tiene %d pagos registrados", domain.ErrBusinessRule, inv.Number, n)
			}
		}
		for _, inv := range invoices {
			if err := r.Invoices.DeleteLines(ctx, inv.ID); err != nil {
				return err
			}
			if err := r.Invoices.Delete(ctx, inv.ID); err != nil {
				return err
			}
		}
		unbilled, err := r.Applied.SetBilled(ctx, period.ID, "", false)
		if err != nil {
			return err
		}
		if period.State == entity.PeriodStateInvoiced {
			if err := period.TransitionTo(entity.PeriodStateClosed, actorID, uc.now()); err != nil {
				return err
			}
			if err := r.Periods.Update(ctx, period); err != nil {
				return err
			}
		}
		result.PeriodState = string(period.State)
		result.InvoicesDeleted = len(invoices)
		result.EntriesUnbilled = unbilled
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.logFor(ctx).Info().
		Str("period_id", periodID).
		Int("invoices_deleted", result.InvoicesDeleted).
		Int64("entries_unbilled", result.EntriesUnbilled).
		Msg("facturas del periodo eliminadas")
	return result, nil
}

// GetInvoice factura con sus líneas.
func (uc *InvoiceUseCase) GetInvoice(ctx context.Context, tenantID, invoiceID string) (*dto.InvoiceResponse, error) {
	inv, err := uc.repos.Invoices.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.repos.Invoices.GetLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, lines), nil
}

// ListInvoices lista cabeceras de factura (sin líneas).
func (uc *InvoiceUseCase) ListInvoices(ctx context.Context, tenantID string, filter repository.InvoiceFilter) ([]*dto.InvoiceResponse, error) {
	list, err := uc.repos.Invoices.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv, nil))
	}
	return out, nil
}

func (uc *InvoiceUseCase) newGeneration(tenantID, actorID string, period *entity.BillingPeriod, dueDate string, overwrite bool, notes string) (*generation, error) {
	issue := invoicing.DateOnly(uc.now())
	due, err := parseDate(dueDate)
	if err != nil {
		return nil, err
	}
	if due.IsZero() {
		due = issue.AddDate(0, 0, uc.cfg.DefaultDueDays)
	}
	if due.Before(issue) {
		return nil, fmt.Errorf("%w: due_date anterior a la fecha de emisión", domain.ErrInvalidInput)
	}
	return &generation{
		tenantID:  tenantID,
		actorID:   actorID,
		period:    period,
		issueDate: issue,
		dueDate:   due,
		overwrite: overwrite,
		notes:     strings.TrimSpace(notes),
	}, nil
}

// generateAccount materializa la factura de una cuenta dentro de la transacción recibida.
// El candado consultivo + FOR UPDATE serializan generaciones concurrentes de la misma cuenta.
func (uc *InvoiceUseCase) generateAccount(ctx context.Context, r BillingRepos, g *generation, accountID string) (*entity.Invoice, []*entity.InvoiceLine, bool, error) {
	p := g.period
	if err := r.Invoices.LockAccountPeriod(ctx, g.tenantID, accountID, p.Month, p.Year); err != nil {
		return nil, nil, false, err
	}
	existing, err := r.Invoices.FindForAccountPeriod(ctx, g.tenantID, accountID, p.Month, p.Year)
	if err != nil {
		return nil, nil, false, err
	}
	if existing != nil {
		if !g.overwrite {
			return nil, nil, false, fmt.Errorf("%w: la cuenta ya tiene la factura %s para %s",
				domain.ErrConflict, existing.Number, p.Label)
		}
		n, err := r.Payments.CountByInvoice(ctx, existing.ID)
		if err != nil {
			return nil, nil, false, err
		}
		if n > 0 {
			return nil, nil, false, fmt.Errorf("%w: la factura %s tiene pagos registrados y no puede sobrescribirse",
				domain.ErrPreconditionFailed, existing.Number)
		}
	}

	filter := repository.AppliedConceptFilter{PeriodID: p.ID, AccountIDs: []string{accountID}}
	if !g.overwrite {
		unbilled := false
		filter.Billed = &unbilled
	}
	entries, err := r.Applied.List(ctx, g.tenantID, filter)
	if err != nil {
		return nil, nil, false, err
	}
	if len(entries) == 0 {
		return nil, nil, false, fmt.Errorf("%w: la cuenta no tiene conceptos por facturar en %s", domain.ErrBusinessRule, p.Label)
	}
	totals := invoicing.Sum(entries)
	now := uc.now()

	inv := existing
	created := inv == nil
	if created {
		seq, err := r.Invoices.NextSequence(ctx, g.tenantID, p.Year)
		if err != nil {
			return nil, nil, false, err
		}
		inv = &entity.Invoice{
			ID:          uuid.New().String(),
			TenantID:    g.tenantID,
			Number:      invoicing.FormatInvoiceNumber(p.Year, p.Month, seq),
			AccountID:   accountID,
			Month:       p.Month,
			Year:        p.Year,
			PeriodLabel: p.Label,
			CreatedBy:   g.actorID,
			CreatedAt:   now,
		}
	} else if err := r.Invoices.DeleteLines(ctx, inv.ID); err != nil {
		return nil, nil, false, err
	}
	inv.IssueDate = g.issueDate
	inv.DueDate = g.dueDate
	inv.Subtotal = totals.Subtotal
	inv.TaxTotal = totals.TaxTotal
	inv.Total = totals.Total
	inv.OutstandingBalance = totals.Total
	inv.Status = entity.InvoiceStatusPending
	inv.Notes = g.notes
	inv.UpdatedAt = now

	if created {
		err = r.Invoices.Create(ctx, inv)
	} else {
		err = r.Invoices.Update(ctx, inv)
	}
	if err != nil {
		return nil, nil, false, err
	}

	lines := invoicing.LinesFromEntries(inv.ID, entries)
	for _, l := range lines {
		l.ID = uuid.New().String()
		if err := r.Invoices.CreateLine(ctx, l); err != nil {
			return nil, nil, false, err
		}
	}
	if _, err := r.Applied.SetBilled(ctx, p.ID, accountID, true); err != nil {
		return nil, nil, false, err
	}
	return inv, lines, created, nil
}

// holder número de cuenta y nombre del titular para presentación.
func (uc *InvoiceUseCase) holder(ctx context.Context, tenantID, accountID string) (number, name string, err error) {
	if uc.accounts == nil {
		return "", "", nil
	}
	acc, err := uc.accounts.GetByID(ctx, tenantID, accountID)
	if err != nil || acc == nil {
		return "", "", err
	}
	number = acc.Number
	if uc.persons == nil || acc.PersonID == "" {
		return number, "", nil
	}
	person, err := uc.persons.GetByID(ctx, tenantID, acc.PersonID)
	if err != nil {
		return number, "", err
	}
	if person != nil {
		name = person.FullName
	}
	return number, name, nil
}

