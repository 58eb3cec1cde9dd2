package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
)

// Ensure TxRunner implements billing.BillingTxRunner.
var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewBillingRepos arma los repositorios de facturación sobre un Querier (pool o tx).
func NewBillingRepos(q Querier) billing.BillingRepos {
	return billing.BillingRepos{
		Concepts: NewConceptRepository(q),
		Prices:   NewPriceHistoryRepository(q),
		Periods:  NewBillingPeriodRepository(q),
		Applied:  NewAppliedConceptRepository(q),
		Invoices: NewInvoiceRepository(q),
		Payments: NewPaymentRepository(q),
	}
}

// RunBilling inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos billing.BillingRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewBillingRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("commit transaction: %w", errConflict(err))
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
