package billing

import (
	"context"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

// BillingRepos unidad de trabajo: repositorios atados a una misma conexión o transacción.
type BillingRepos struct {
	Concepts repository.ConceptRepository
	Prices   repository.PriceHistoryRepository
	Periods  repository.BillingPeriodRepository
	Applied  repository.AppliedConceptRepository
	Invoices repository.InvoiceRepository
	Payments repository.PaymentRepository
}

// BillingTxRunner ejecuta fn dentro de una transacción: o se confirma todo o nada.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(repos BillingRepos) error) error
}

// AccountLookup resuelve una cuenta del tenant. (nil, nil) = no existe.
type AccountLookup interface {
	GetByID(ctx context.Context, tenantID, accountID string) (*entity.Account, error)
}

// PersonLookup resuelve el titular para nombres de presentación.
type PersonLookup interface {
	GetByID(ctx context.Context, tenantID, personID string) (*entity.Person, error)
}

// InvoiceDocument datos ya calculados que consume el renderizador.
type InvoiceDocument struct {
	Invoice        *entity.Invoice
	Lines          []*entity.InvoiceLine
	AccountNumber  string
	HolderName     string
	HolderDocument string
}

// DocumentRenderer función pura: datos de factura -> documento (PDF).
type DocumentRenderer interface {
	RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}
