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

var _ repository.ConceptRepository = (*ConceptRepo)(nil)

// ConceptRepo implementación de ConceptRepository (usable con pool o tx).
type ConceptRepo struct {
	q Querier
}

// NewConceptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConceptRepository(q Querier) *ConceptRepo {
	return &ConceptRepo{q: q}
}

const conceptColumns = `id, tenant_id, code, name, kind, tax_applies, tax_percentage, current_price, lifecycle, created_by, created_at, updated_at`

func scanConcept(row pgx.Row) (*entity.BillableConcept, error) {
	var c entity.BillableConcept
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Code, &c.Name, &c.Kind, &c.TaxApplies, &c.TaxPercentage,
		&c.CurrentPrice, &c.Lifecycle, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persiste un nuevo concepto. Código duplicado en el tenant -> domain.ErrConflict.
func (r *ConceptRepo) Create(ctx context.Context, c *entity.BillableConcept) error {
	query := `
		INSERT INTO billable_concepts (` + conceptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.TenantID, c.Code, c.Name, c.Kind, c.TaxApplies, c.TaxPercentage,
		c.CurrentPrice, c.Lifecycle, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errConflict(err)
		}
		return fmt.Errorf("insert concept: %w", err)
	}
	return nil
}

// Update actualiza nombre, tipo, impuesto, caché de precio y ciclo de vida.
func (r *ConceptRepo) Update(ctx context.Context, c *entity.BillableConcept) error {
	query := `
		UPDATE billable_concepts
		SET name = $3, kind = $4, tax_applies = $5, tax_percentage = $6,
		    current_price = $7, lifecycle = $8, updated_at = $9
		WHERE id = $1 AND tenant_id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.TenantID, c.Name, c.Kind, c.TaxApplies, c.TaxPercentage,
		c.CurrentPrice, c.Lifecycle, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un concepto del tenant.
func (r *ConceptRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.BillableConcept, error) {
	return r.getOne(ctx, `SELECT `+conceptColumns+` FROM billable_concepts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// GetForUpdate obtiene el concepto bloqueando la fila (SELECT ... FOR UPDATE).
func (r *ConceptRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.BillableConcept, error) {
	return r.getOne(ctx, `SELECT `+conceptColumns+` FROM billable_concepts WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

// GetByCode obtiene un concepto por código.
func (r *ConceptRepo) GetByCode(ctx context.Context, tenantID, code string) (*entity.BillableConcept, error) {
	return r.getOne(ctx, `SELECT `+conceptColumns+` FROM billable_concepts WHERE tenant_id = $1 AND code = $2`, tenantID, code)
}

func (r *ConceptRepo) getOne(ctx context.Context, query string, args ...any) (*entity.BillableConcept, error) {
	c, err := scanConcept(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return c, nil
}

// List lista conceptos del tenant ordenados por código.
func (r *ConceptRepo) List(ctx context.Context, tenantID string, f repository.ConceptFilter) ([]*entity.BillableConcept, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", tenantID)
	if f.Kind != "" {
		w.add("kind = $%d", f.Kind)
	}
	if f.ActiveOnly {
		w.addRaw("lifecycle = 'ACTIVE'")
	}
	if f.Search != "" {
		w.add("(code ILIKE '%%' || $%[1]d || '%%' OR name ILIKE '%%' || $%[1]d || '%%')", f.Search)
	}
	query := `SELECT ` + conceptColumns + ` FROM billable_concepts` + w.sql() + ` ORDER BY code`
	query += w.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()
	var list []*entity.BillableConcept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
