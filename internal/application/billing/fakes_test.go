package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// memStore almacén en memoria con la misma semántica que los repositorios de postgres.
// Guarda copias por valor: lo que devuelve un Get no altera el estado hasta un Update.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	concepts  map[string]entity.BillableConcept
	prices    map[string]entity.ConceptPrice
	periods   map[string]entity.BillingPeriod
	applied   map[string]entity.AppliedConcept
	invoices  map[string]entity.Invoice
	lines     map[string]entity.InvoiceLine
	sequences map[string]int64
	payments  map[string]int
	accounts  map[string]entity.Account
	persons   map[string]entity.Person

	// failCreate error inyectado al crear la factura de una cuenta.
	failCreate map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		concepts:   map[string]entity.BillableConcept{},
		prices:     map[string]entity.ConceptPrice{},
		periods:    map[string]entity.BillingPeriod{},
		applied:    map[string]entity.AppliedConcept{},
		invoices:   map[string]entity.Invoice{},
		lines:      map[string]entity.InvoiceLine{},
		sequences:  map[string]int64{},
		payments:   map[string]int{},
		accounts:   map[string]entity.Account{},
		persons:    map[string]entity.Person{},
		failCreate: map[string]error{},
	}
}

type snapshot struct {
	concepts map[string]entity.BillableConcept
	prices   map[string]entity.ConceptPrice
	periods  map[string]entity.BillingPeriod
	applied  map[string]entity.AppliedConcept
	invoices map[string]entity.Invoice
	lines    map[string]entity.InvoiceLine
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		concepts: cloneMap(s.concepts),
		prices:   cloneMap(s.prices),
		periods:  cloneMap(s.periods),
		applied:  cloneMap(s.applied),
		invoices: cloneMap(s.invoices),
		lines:    cloneMap(s.lines),
	}
}

// restore deshace una transacción fallida. Las secuencias no se revierten: un consecutivo
// consumido no vuelve a entregarse.
func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concepts = snap.concepts
	s.prices = snap.prices
	s.periods = snap.periods
	s.applied = snap.applied
	s.invoices = snap.invoices
	s.lines = snap.lines
}

func (s *memStore) repos() BillingRepos {
	return BillingRepos{
		Concepts: memConcepts{s},
		Prices:   memPrices{s},
		Periods:  memPeriods{s},
		Applied:  memApplied{s},
		Invoices: memInvoices{s},
		Payments: memPayments{s},
	}
}

// RunBilling serializa las transacciones y restaura el estado si fn falla.
func (s *memStore) RunBilling(ctx context.Context, fn func(repos BillingRepos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(s.repos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// ── helpers de siembra ────────────────────────────────────────────────────────

func (s *memStore) addAccount(tenantID, id, number, holder string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	personID := "per-" + id
	s.persons[personID] = entity.Person{ID: personID, TenantID: tenantID, FullName: holder, Document: "CC " + number}
	s.accounts[id] = entity.Account{ID: id, TenantID: tenantID, Number: number, PersonID: personID, Active: active}
}

func (s *memStore) addPayment(invoiceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[invoiceID]++
}

func (s *memStore) failInvoiceFor(accountID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[accountID] = err
}

func (s *memStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

func (s *memStore) lineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *memStore) period(id string) entity.BillingPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.periods[id]
}

func (s *memStore) billedCount(periodID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ac := range s.applied {
		if ac.PeriodID == periodID && ac.Billed {
			n++
		}
	}
	return n
}

// ── lookups externos ──────────────────────────────────────────────────────────

type memAccounts struct{ s *memStore }

func (m memAccounts) GetByID(_ context.Context, tenantID, id string) (*entity.Account, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, nil
	}
	return &a, nil
}

type memPersons struct{ s *memStore }

func (m memPersons) GetByID(_ context.Context, tenantID, id string) (*entity.Person, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.persons[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return &p, nil
}

// ── conceptos ─────────────────────────────────────────────────────────────────

type memConcepts struct{ s *memStore }

func (m memConcepts) Create(_ context.Context, c *entity.BillableConcept) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.concepts {
		if other.TenantID == c.TenantID && other.Code == c.Code {
			return fmt.Errorf("%w: uq_billable_concepts_tenant_code", domain.ErrConflict)
		}
	}
	m.s.concepts[c.ID] = *c
	return nil
}

func (m memConcepts) Update(_ context.Context, c *entity.BillableConcept) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.concepts[c.ID]; !ok {
		return domain.ErrNotFound
	}
	m.s.concepts[c.ID] = *c
	return nil
}

func (m memConcepts) GetByID(_ context.Context, tenantID, id string) (*entity.BillableConcept, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.concepts[id]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	return &c, nil
}

func (m memConcepts) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.BillableConcept, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m memConcepts) GetByCode(_ context.Context, tenantID, code string) (*entity.BillableConcept, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, c := range m.s.concepts {
		if c.TenantID == tenantID && c.Code == code {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m memConcepts) List(_ context.Context, tenantID string, f repository.ConceptFilter) ([]*entity.BillableConcept, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.BillableConcept
	for _, c := range m.s.concepts {
		if c.TenantID != tenantID || (f.Kind != "" && c.Kind != f.Kind) || (f.ActiveOnly && !c.Lifecycle.IsActive()) {
			continue
		}
		if q := strings.ToLower(f.Search); q != "" &&
			!strings.Contains(strings.ToLower(c.Code), q) && !strings.Contains(strings.ToLower(c.Name), q) {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, f.Limit, f.Offset), nil
}

// ── historial de precios ──────────────────────────────────────────────────────

type memPrices struct{ s *memStore }

func (m memPrices) Create(_ context.Context, p *entity.ConceptPrice) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.prices[p.ID] = *p
	return nil
}

func (m memPrices) Update(_ context.Context, p *entity.ConceptPrice) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.prices[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.s.prices[p.ID] = *p
	return nil
}

func (m memPrices) GetByID(_ context.Context, conceptID, id string) (*entity.ConceptPrice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.prices[id]
	if !ok || p.ConceptID != conceptID {
		return nil, nil
	}
	return &p, nil
}

func (m memPrices) ListByConcept(_ context.Context, conceptID string) ([]*entity.ConceptPrice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.ConceptPrice
	for _, p := range m.s.prices {
		if p.ConceptID == conceptID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveFrom.Before(out[j].EffectiveFrom) })
	return out, nil
}

// ── periodos ──────────────────────────────────────────────────────────────────

type memPeriods struct{ s *memStore }

func (m memPeriods) Create(_ context.Context, p *entity.BillingPeriod) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.periods {
		if other.TenantID == p.TenantID && other.Month == p.Month && other.Year == p.Year {
			return fmt.Errorf("%w: uq_billing_periods_tenant_month_year", domain.ErrConflict)
		}
	}
	m.s.periods[p.ID] = *p
	return nil
}

func (m memPeriods) Update(_ context.Context, p *entity.BillingPeriod) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.periods[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.s.periods[p.ID] = *p
	return nil
}

func (m memPeriods) GetByID(_ context.Context, tenantID, id string) (*entity.BillingPeriod, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.periods[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	return &p, nil
}

func (m memPeriods) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.BillingPeriod, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m memPeriods) GetByMonthYear(_ context.Context, tenantID string, month, year int) (*entity.BillingPeriod, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.periods {
		if p.TenantID == tenantID && p.Month == month && p.Year == year {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (m memPeriods) List(_ context.Context, tenantID string, f repository.PeriodFilter) ([]*entity.BillingPeriod, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.BillingPeriod
	for _, p := range m.s.periods {
		if p.TenantID != tenantID || (f.Year != 0 && p.Year != f.Year) ||
			(f.State != "" && p.State != f.State) || (f.ActiveOnly && !p.Lifecycle.IsActive()) {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return page(out, f.Limit, f.Offset), nil
}

// ── conceptos aplicados ───────────────────────────────────────────────────────

type memApplied struct{ s *memStore }

func (m memApplied) Create(_ context.Context, ac *entity.AppliedConcept) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.applied {
		if other.PeriodID == ac.PeriodID && other.ConceptID == ac.ConceptID && other.AccountID == ac.AccountID {
			return fmt.Errorf("%w: uq_applied_concepts_period_concept_account", domain.ErrConflict)
		}
	}
	m.s.applied[ac.ID] = *ac
	return nil
}

func (m memApplied) Update(_ context.Context, ac *entity.AppliedConcept) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.applied[ac.ID]; !ok {
		return domain.ErrNotFound
	}
	m.s.applied[ac.ID] = *ac
	return nil
}

func (m memApplied) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.applied, id)
	return nil
}

// withConcept completa código y nombre como lo hace el JOIN del repositorio real.
func (m memApplied) withConcept(ac entity.AppliedConcept) *entity.AppliedConcept {
	if c, ok := m.s.concepts[ac.ConceptID]; ok {
		ac.ConceptCode = c.Code
		ac.ConceptName = c.Name
	}
	return &ac
}

func (m memApplied) GetByID(_ context.Context, tenantID, id string) (*entity.AppliedConcept, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	ac, ok := m.s.applied[id]
	if !ok || ac.TenantID != tenantID {
		return nil, nil
	}
	return m.withConcept(ac), nil
}

func (m memApplied) GetByKey(_ context.Context, periodID, conceptID, accountID string) (*entity.AppliedConcept, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, ac := range m.s.applied {
		if ac.PeriodID == periodID && ac.ConceptID == conceptID && ac.AccountID == accountID {
			return m.withConcept(ac), nil
		}
	}
	return nil, nil
}

func (m memApplied) List(_ context.Context, tenantID string, f repository.AppliedConceptFilter) ([]*entity.AppliedConcept, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	accounts := map[string]bool{}
	for _, id := range f.AccountIDs {
		accounts[id] = true
	}
	var out []*entity.AppliedConcept
	for _, ac := range m.s.applied {
		if ac.TenantID != tenantID ||
			(f.PeriodID != "" && ac.PeriodID != f.PeriodID) ||
			(f.ConceptID != "" && ac.ConceptID != f.ConceptID) ||
			(len(accounts) > 0 && !accounts[ac.AccountID]) ||
			(f.Billed != nil && ac.Billed != *f.Billed) {
			continue
		}
		out = append(out, m.withConcept(ac))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if a.ConceptName != b.ConceptName {
			return a.ConceptName < b.ConceptName
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (m memApplied) CountByConcept(_ context.Context, conceptID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, ac := range m.s.applied {
		if ac.ConceptID == conceptID {
			n++
		}
	}
	return n, nil
}

func (m memApplied) CountByPeriod(_ context.Context, periodID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n := 0
	for _, ac := range m.s.applied {
		if ac.PeriodID == periodID {
			n++
		}
	}
	return n, nil
}

func (m memApplied) SetBilled(_ context.Context, periodID, accountID string, billed bool) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, ac := range m.s.applied {
		if ac.PeriodID != periodID || (accountID != "" && ac.AccountID != accountID) || ac.Billed == billed {
			continue
		}
		ac.Billed = billed
		m.s.applied[id] = ac
		n++
	}
	return n, nil
}

// ── facturas ──────────────────────────────────────────────────────────────────

type memInvoices struct{ s *memStore }

func (m memInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failCreate[inv.AccountID]; err != nil {
		return err
	}
	for _, other := range m.s.invoices {
		if other.TenantID != inv.TenantID {
			continue
		}
		if other.Number == inv.Number {
			return fmt.Errorf("%w: uq_invoices_tenant_number", domain.ErrConflict)
		}
		if other.AccountID == inv.AccountID && other.Month == inv.Month && other.Year == inv.Year {
			return fmt.Errorf("%w: uq_invoices_tenant_account_month_year", domain.ErrConflict)
		}
	}
	m.s.invoices[inv.ID] = *inv
	return nil
}

func (m memInvoices) Update(_ context.Context, inv *entity.Invoice) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	current, ok := m.s.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	updated := *inv
	updated.Number = current.Number
	m.s.invoices[inv.ID] = updated
	return nil
}

func (m memInvoices) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.invoices, id)
	return nil
}

func (m memInvoices) GetByID(_ context.Context, tenantID, id string) (*entity.Invoice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	inv, ok := m.s.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, nil
	}
	return &inv, nil
}

func (m memInvoices) LockAccountPeriod(context.Context, string, string, int, int) error {
	return nil
}

func (m memInvoices) FindForAccountPeriod(_ context.Context, tenantID, accountID string, month, year int) (*entity.Invoice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, inv := range m.s.invoices {
		if inv.TenantID == tenantID && inv.AccountID == accountID && inv.Month == month && inv.Year == year {
			inv := inv
			return &inv, nil
		}
	}
	return nil, nil
}

func (m memInvoices) ListByPeriod(ctx context.Context, tenantID string, month, year int) ([]*entity.Invoice, error) {
	return m.List(ctx, tenantID, repository.InvoiceFilter{Month: month, Year: year})
}

func (m memInvoices) List(_ context.Context, tenantID string, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range m.s.invoices {
		if inv.TenantID != tenantID ||
			(f.AccountID != "" && inv.AccountID != f.AccountID) ||
			(f.Month != 0 && inv.Month != f.Month) ||
			(f.Year != 0 && inv.Year != f.Year) ||
			(f.Status != "" && inv.Status != f.Status) {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return page(out, f.Limit, f.Offset), nil
}

func (m memInvoices) NextSequence(_ context.Context, tenantID string, year int) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := fmt.Sprintf("%s|%d", tenantID, year)
	m.s.sequences[key]++
	return m.s.sequences[key], nil
}

func (m memInvoices) CreateLine(_ context.Context, l *entity.InvoiceLine) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.lines[l.ID] = *l
	return nil
}

func (m memInvoices) DeleteLines(_ context.Context, invoiceID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, l := range m.s.lines {
		if l.InvoiceID == invoiceID {
			delete(m.s.lines, id)
		}
	}
	return nil
}

func (m memInvoices) GetLines(_ context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.InvoiceLine
	for _, l := range m.s.lines {
		if l.InvoiceID == invoiceID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

// ── pagos ─────────────────────────────────────────────────────────────────────

type memPayments struct{ s *memStore }

func (m memPayments) CountByInvoice(_ context.Context, invoiceID string) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.payments[invoiceID], nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ── entorno de pruebas ────────────────────────────────────────────────────────

const (
	testTenant = "tenant-1"
	testActor  = "admin@coop"
)

// fixedNow 2024-02-05: posterior a enero, el periodo que se factura en casi todas las pruebas.
var fixedNow = time.Date(2024, 2, 5, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	store    *memStore
	concepts *ConceptUseCase
	periods  *PeriodUseCase
	applied  *AppliedConceptUseCase
	invoices *InvoiceUseCase
}

func newTestEnv() *testEnv {
	return newTestEnvWithLogger(logger.Nop())
}

func newTestEnvWithLogger(log *logger.Logger) *testEnv {
	s := newMemStore()
	repos := s.repos()
	now := func() time.Time { return fixedNow }

	concepts := NewConceptUseCase(s, repos)
	concepts.now = now
	periods := NewPeriodUseCase(s, repos)
	periods.now = now
	applied := NewAppliedConceptUseCase(s, repos, memAccounts{s}, log)
	applied.now = now
	invoices := NewInvoiceUseCase(s, repos, memAccounts{s}, memPersons{s}, GeneratorConfig{Workers: 3, DefaultDueDays: 15}, log)
	invoices.now = now

	return &testEnv{store: s, concepts: concepts, periods: periods, applied: applied, invoices: invoices}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }
