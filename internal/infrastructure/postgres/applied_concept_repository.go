package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

var _ repository.AppliedConceptRepository = (*AppliedConceptRepo)(nil)

// AppliedConceptRepo libro de conceptos aplicados (applied_concepts).
type AppliedConceptRepo struct {
	q Querier
}

// NewAppliedConceptRepository construye el adaptador.
func NewAppliedConceptRepository(q Querier) *AppliedConceptRepo {
	return &AppliedConceptRepo{q: q}
}

const appliedSelect = `
	SELECT ac.id, ac.tenant_id, ac.period_id, ac.concept_id, ac.account_id, ac.service_id,
	       ac.quantity, ac.unit_price, ac.subtotal, ac.tax_applies, ac.tax_percentage, ac.tax_amount, ac.total,
	       ac.billed, ac.notes, ac.created_by, ac.created_at, ac.updated_at, c.code, c.name
	FROM applied_concepts ac
	JOIN billable_concepts c ON c.id = ac.concept_id`

func scanApplied(row pgx.Row) (*entity.AppliedConcept, error) {
	var ac entity.AppliedConcept
	if err := row.Scan(
		&ac.ID, &ac.TenantID, &ac.PeriodID, &ac.ConceptID, &ac.AccountID, &ac.ServiceID,
		&ac.Quantity, &ac.UnitPrice, &ac.Subtotal, &ac.TaxApplies, &ac.TaxPercentage, &ac.TaxAmount, &ac.Total,
		&ac.Billed, &ac.Notes, &ac.CreatedBy, &ac.CreatedAt, &ac.UpdatedAt, &ac.ConceptCode, &ac.ConceptName,
	); err != nil {
		return nil, err
	}
	return &ac, nil
}

// Create persiste la línea. (periodo, concepto, cuenta) duplicado -> domain.ErrConflict.
func (r *AppliedConceptRepo) Create(ctx context.Context, ac *entity.AppliedConcept) error {
	query := `
		INSERT INTO applied_concepts (
			id, tenant_id, period_id, concept_id, account_id, service_id, quantity, unit_price, subtotal,
			tax_applies, tax_percentage, tax_amount, total, billed, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		ac.ID, ac.TenantID, ac.PeriodID, ac.ConceptID, ac.AccountID, ac.ServiceID, ac.Quantity, ac.UnitPrice, ac.Subtotal,
		ac.TaxApplies, ac.TaxPercentage, ac.TaxAmount, ac.Total, ac.Billed, ac.Notes, ac.CreatedBy, ac.CreatedAt, ac.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errConflict(err)
		}
		return fmt.Errorf("insert applied concept: %w", err)
	}
	return nil
}

// Update reescribe cantidad, precio, impuesto, importes y notas.
func (r *AppliedConceptRepo) Update(ctx context.Context, ac *entity.AppliedConcept) error {
	query := `
		UPDATE applied_concepts
		SET service_id = $2, quantity = $3, unit_price = $4, subtotal = $5, tax_applies = $6,
		    tax_percentage = $7, tax_amount = $8, total = $9, notes = $10, updated_at = $11
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		ac.ID, ac.ServiceID, ac.Quantity, ac.UnitPrice, ac.Subtotal, ac.TaxApplies,
		ac.TaxPercentage, ac.TaxAmount, ac.Total, ac.Notes, ac.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update applied concept: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete borrado físico.
func (r *AppliedConceptRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM applied_concepts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete applied concept: %w", err)
	}
	return nil
}

// GetByID obtiene una línea del tenant.
func (r *AppliedConceptRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.AppliedConcept, error) {
	return r.getOne(ctx, appliedSelect+` WHERE ac.tenant_id = $1 AND ac.id = $2`, tenantID, id)
}

// GetByKey busca por la clave natural (periodo, concepto, cuenta).
func (r *AppliedConceptRepo) GetByKey(ctx context.Context, periodID, conceptID, accountID string) (*entity.AppliedConcept, error) {
	return r.getOne(ctx, appliedSelect+` WHERE ac.period_id = $1 AND ac.concept_id = $2 AND ac.account_id = $3`,
		periodID, conceptID, accountID)
}

func (r *AppliedConceptRepo) getOne(ctx context.Context, query string, args ...any) (*entity.AppliedConcept, error) {
	ac, err := scanApplied(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get applied concept: %w", err)
	}
	return ac, nil
}

// List lista líneas ordenadas por cuenta y nombre de concepto (orden de agrupación para facturar).
func (r *AppliedConceptRepo) List(ctx context.Context, tenantID string, f repository.AppliedConceptFilter) ([]*entity.AppliedConcept, error) {
	var w whereBuilder
	w.add("ac.tenant_id = $%d", tenantID)
	if f.PeriodID != "" {
		w.add("ac.period_id = $%d", f.PeriodID)
	}
	if len(f.AccountIDs) > 0 {
		w.add("ac.account_id = ANY($%d::uuid[])", f.AccountIDs)
	}
	if f.ConceptID != "" {
		w.add("ac.concept_id = $%d", f.ConceptID)
	}
	if f.Billed != nil {
		w.add("ac.billed = $%d", *f.Billed)
	}
	query := appliedSelect + w.sql() + ` ORDER BY ac.account_id, c.name, ac.created_at`
	query += w.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list applied concepts: %w", err)
	}
	defer rows.Close()
	var list []*entity.AppliedConcept
	for rows.Next() {
		ac, err := scanApplied(rows)
		if err != nil {
			return nil, fmt.Errorf("scan applied concept: %w", err)
		}
		list = append(list, ac)
	}
	return list, rows.Err()
}

// CountByConcept cuántas líneas referencian el concepto (en cualquier periodo).
func (r *AppliedConceptRepo) CountByConcept(ctx context.Context, conceptID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM applied_concepts WHERE concept_id = $1`, conceptID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count applied concepts by concept: %w", err)
	}
	return n, nil
}

// CountByPeriod cuántas líneas tiene el periodo.
func (r *AppliedConceptRepo) CountByPeriod(ctx context.Context, periodID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM applied_concepts WHERE period_id = $1`, periodID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count applied concepts by period: %w", err)
	}
	return n, nil
}

// SetBilled marca o desmarca las líneas del periodo; accountID vacío = todas las cuentas.
func (r *AppliedConceptRepo) SetBilled(ctx context.Context, periodID, accountID string, billed bool) (int64, error) {
	query := `UPDATE applied_concepts SET billed = $2, updated_at = NOW() WHERE period_id = $1 AND billed <> $2`
	args := []any{periodID, billed}
	if accountID != "" {
		query += ` AND account_id = $3`
		args = append(args, accountID)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("set applied concepts billed: %w", err)
	}
	return tag.RowsAffected(), nil
}
