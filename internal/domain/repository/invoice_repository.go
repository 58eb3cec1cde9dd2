package repository

import (
	"context"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus líneas.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update reescribe importes, fechas, saldo, estado y notas (el número no cambia).
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error)
	// LockAccountPeriod serializa la generación de una misma cuenta/periodo hasta el fin de la tx.
	LockAccountPeriod(ctx context.Context, tenantID, accountID string, month, year int) error
	// FindForAccountPeriod busca la factura de la cuenta para el mes/año bloqueando la fila.
	FindForAccountPeriod(ctx context.Context, tenantID, accountID string, month, year int) (*entity.Invoice, error)
	ListByPeriod(ctx context.Context, tenantID string, month, year int) ([]*entity.Invoice, error)
	List(ctx context.Context, tenantID string, filter InvoiceFilter) ([]*entity.Invoice, error)
	// NextSequence reserva el siguiente consecutivo de (tenant, año). Nunca reutiliza valores.
	NextSequence(ctx context.Context, tenantID string, year int) (int64, error)

	CreateLine(ctx context.Context, line *entity.InvoiceLine) error
	DeleteLines(ctx context.Context, invoiceID string) error
	GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error)
}

// PaymentRepository lectura de pagos registrados (el módulo de recaudo es externo).
type PaymentRepository interface {
	CountByInvoice(ctx context.Context, invoiceID string) (int, error)
}
