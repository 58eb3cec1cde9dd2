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

var _ repository.BillingPeriodRepository = (*BillingPeriodRepo)(nil)

// BillingPeriodRepo implementación de BillingPeriodRepository.
type BillingPeriodRepo struct {
	q Querier
}

// NewBillingPeriodRepository construye el adaptador.
func NewBillingPeriodRepository(q Querier) *BillingPeriodRepo {
	return &BillingPeriodRepo{q: q}
}

const periodColumns = `id, tenant_id, month, year, label, start_date, end_date, state, created_by, closed_by, closed_at, notes, lifecycle, created_at, updated_at`

func scanPeriod(row pgx.Row) (*entity.BillingPeriod, error) {
	var (
		p        entity.BillingPeriod
		closedBy *string
	)
	if err := row.Scan(
		&p.ID, &p.TenantID, &p.Month, &p.Year, &p.Label, &p.StartDate, &p.EndDate, &p.State,
		&p.CreatedBy, &closedBy, &p.ClosedAt, &p.Notes, &p.Lifecycle, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.ClosedBy = emptyIfNull(closedBy)
	return &p, nil
}

// Create persiste el periodo. (tenant, mes, año) duplicado -> domain.ErrConflict.
func (r *BillingPeriodRepo) Create(ctx context.Context, p *entity.BillingPeriod) error {
	query := `
		INSERT INTO billing_periods (` + periodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.TenantID, p.Month, p.Year, p.Label, p.StartDate, p.EndDate, p.State,
		p.CreatedBy, nullIfEmpty(p.ClosedBy), p.ClosedAt, p.Notes, p.Lifecycle, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errConflict(err)
		}
		return fmt.Errorf("insert billing period: %w", err)
	}
	return nil
}

// Update persiste estado, cierre, notas y ciclo de vida.
func (r *BillingPeriodRepo) Update(ctx context.Context, p *entity.BillingPeriod) error {
	query := `
		UPDATE billing_periods
		SET state = $3, closed_by = $4, closed_at = $5, notes = $6, lifecycle = $7, updated_at = $8
		WHERE id = $1 AND tenant_id = $2`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.TenantID, p.State, nullIfEmpty(p.ClosedBy), p.ClosedAt, p.Notes, p.Lifecycle, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update billing period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un periodo del tenant.
func (r *BillingPeriodRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.BillingPeriod, error) {
	return r.getOne(ctx, `SELECT `+periodColumns+` FROM billing_periods WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// GetForUpdate obtiene el periodo bloqueando la fila.
func (r *BillingPeriodRepo) GetForUpdate(ctx context.Context, tenantID, id string) (*entity.BillingPeriod, error) {
	return r.getOne(ctx, `SELECT `+periodColumns+` FROM billing_periods WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

// GetByMonthYear obtiene el periodo (tenant, mes, año).
func (r *BillingPeriodRepo) GetByMonthYear(ctx context.Context, tenantID string, month, year int) (*entity.BillingPeriod, error) {
	return r.getOne(ctx, `SELECT `+periodColumns+` FROM billing_periods WHERE tenant_id = $1 AND month = $2 AND year = $3`, tenantID, month, year)
}

func (r *BillingPeriodRepo) getOne(ctx context.Context, query string, args ...any) (*entity.BillingPeriod, error) {
	p, err := scanPeriod(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get billing period: %w", err)
	}
	return p, nil
}

// List lista periodos del tenant, los más recientes primero.
func (r *BillingPeriodRepo) List(ctx context.Context, tenantID string, f repository.PeriodFilter) ([]*entity.BillingPeriod, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", tenantID)
	if f.Year > 0 {
		w.add("year = $%d", f.Year)
	}
	if f.State != "" {
		w.add("state = $%d", f.State)
	}
	if f.ActiveOnly {
		w.addRaw("lifecycle = 'ACTIVE'")
	}
	query := `SELECT ` + periodColumns + ` FROM billing_periods` + w.sql() + ` ORDER BY year DESC, month DESC`
	query += w.page(f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list billing periods: %w", err)
	}
	defer rows.Close()
	var list []*entity.BillingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing period: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
