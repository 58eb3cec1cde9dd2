package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, tenant_id, number, account_id, month, year, period_label, issue_date, due_date,
	subtotal, tax_total, total, outstanding_balance, status, notes, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	if err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Number, &inv.AccountID, &inv.Month, &inv.Year, &inv.PeriodLabel,
		&inv.IssueDate, &inv.DueDate, &inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.OutstandingBalance,
		&inv.Status, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create persiste la cabecera. Número o (cuenta, mes, año) duplicados -> domain.ErrConflict.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.Number, inv.AccountID, inv.Month, inv.Year, inv.PeriodLabel,
		inv.IssueDate, inv.DueDate, inv.Subtotal, inv.TaxTotal, inv.Total, inv.OutstandingBalance,
		inv.Status, inv.Notes, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errConflict(err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update reescribe fechas, importes, saldo, estado y notas. El número se conserva.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET issue_date = $2, due_date = $3, subtotal = $4, tax_total = $5, total = $6,
		    outstanding_balance = $7, status = $8, notes = $9, updated_at = $10
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.IssueDate, inv.DueDate, inv.Subtotal, inv.TaxTotal, inv.Total,
		inv.OutstandingBalance, inv.Status, inv.Notes, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la cabecera (las líneas se borran antes con DeleteLines).
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura del tenant.
func (r *InvoiceRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// LockAccountPeriod candado consultivo transaccional sobre (tenant, cuenta, mes, año).
// Cubre el caso en que aún no existe fila que bloquear con FOR UPDATE.
func (r *InvoiceRepo) LockAccountPeriod(ctx context.Context, tenantID, accountID string, month, year int) error {
	key := fmt.Sprintf("invoice:%s:%s:%04d-%02d", tenantID, accountID, year, month)
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock account period: %w", err)
	}
	return nil
}

// FindForAccountPeriod factura de la cuenta para mes/año, bloqueando la fila.
func (r *InvoiceRepo) FindForAccountPeriod(ctx context.Context, tenantID, accountID string, month, year int) (*entity.Invoice, error) {
	return r.getOne(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 AND account_id = $2 AND month = $3 AND year = $4 FOR UPDATE`,
		tenantID, accountID, month, year)
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// ListByPeriod facturas del tenant para mes/año, bloqueadas hasta el fin de la tx.
func (r *InvoiceRepo) ListByPeriod(ctx context.Context, tenantID string, month, year int) ([]*entity.Invoice, error) {
	return r.list(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 AND month = $2 AND year = $3 ORDER BY number FOR UPDATE`,
		tenantID, month, year)
}

// List lista facturas con filtros, más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context, tenantID string, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", tenantID)
	if f.AccountID != "" {
		w.add("account_id = $%d", f.AccountID)
	}
	if f.Month > 0 {
		w.add("month = $%d", f.Month)
	}
	if f.Year > 0 {
		w.add("year = $%d", f.Year)
	}
	if f.Status != "" {
		w.add("status = $%d", f.Status)
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + w.sql() + ` ORDER BY year DESC, month DESC, number`
	query += w.page(f.Limit, f.Offset)
	return r.list(ctx, query, w.args...)
}

func (r *InvoiceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// NextSequence reserva el siguiente consecutivo de (tenant, año).
// La primera vez se siembra con el mayor sufijo ya emitido; luego solo avanza.
func (r *InvoiceRepo) NextSequence(ctx context.Context, tenantID string, year int) (int64, error) {
	seed, err := r.maxIssuedSequence(ctx, tenantID, year)
	if err != nil {
		return 0, err
	}
	var next int64
	err = r.q.QueryRow(ctx, `
		INSERT INTO invoice_sequences (tenant_id, year, last_value, updated_at)
		VALUES ($1, $2, $3 + 1, NOW())
		ON CONFLICT (tenant_id, year)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value`, tenantID, year, seed).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next invoice sequence: %w", err)
	}
	return next, nil
}

func (r *InvoiceRepo) maxIssuedSequence(ctx context.Context, tenantID string, year int) (int64, error) {
	var last *string
	err := r.q.QueryRow(ctx, `
		SELECT number FROM invoices
		WHERE tenant_id = $1 AND year = $2
		ORDER BY split_part(number, '-', 4)::bigint DESC
		LIMIT 1`, tenantID, year).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("max invoice number: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	seq, err := invoicing.ParseInvoiceSequence(*last)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// CreateLine persiste una línea de factura.
func (r *InvoiceRepo) CreateLine(ctx context.Context, l *entity.InvoiceLine) error {
	query := `
		INSERT INTO invoice_lines (id, invoice_id, concept_id, description, quantity, unit_price, subtotal, tax_amount, total, display_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.InvoiceID, l.ConceptID, l.Description, l.Quantity, l.UnitPrice, l.Subtotal, l.TaxAmount, l.Total, l.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

// DeleteLines borra todas las líneas de la factura.
func (r *InvoiceRepo) DeleteLines(ctx context.Context, invoiceID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	return nil
}

// GetLines líneas en orden de presentación.
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, concept_id, description, quantity, unit_price, subtotal, tax_amount, total, display_order
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY display_order`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ConceptID, &l.Description, &l.Quantity, &l.UnitPrice,
			&l.Subtotal, &l.TaxAmount, &l.Total, &l.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
