package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo lectura de la tabla payments (la escribe el módulo de recaudo).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador.
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

// CountByInvoice pagos registrados contra la factura.
func (r *PaymentRepo) CountByInvoice(ctx context.Context, invoiceID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}
