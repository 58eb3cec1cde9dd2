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

var _ repository.PriceHistoryRepository = (*PriceHistoryRepo)(nil)

// PriceHistoryRepo historial de precios (concept_price_history).
type PriceHistoryRepo struct {
	q Querier
}

// NewPriceHistoryRepository construye el adaptador.
func NewPriceHistoryRepository(q Querier) *PriceHistoryRepo {
	return &PriceHistoryRepo{q: q}
}

const priceColumns = `id, concept_id, value, effective_from, effective_to, reason, created_by, lifecycle, created_at`

func scanPrice(row pgx.Row) (*entity.ConceptPrice, error) {
	var p entity.ConceptPrice
	if err := row.Scan(
		&p.ID, &p.ConceptID, &p.Value, &p.EffectiveFrom, &p.EffectiveTo,
		&p.Reason, &p.CreatedBy, &p.Lifecycle, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create agrega una vigencia al historial.
func (r *PriceHistoryRepo) Create(ctx context.Context, p *entity.ConceptPrice) error {
	query := `
		INSERT INTO concept_price_history (` + priceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.ConceptID, p.Value, p.EffectiveFrom, p.EffectiveTo,
		p.Reason, p.CreatedBy, p.Lifecycle, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert concept price: %w", err)
	}
	return nil
}

// Update persiste fin de vigencia y ciclo de vida (valor e inicio son inmutables).
func (r *PriceHistoryRepo) Update(ctx context.Context, p *entity.ConceptPrice) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE concept_price_history SET effective_to = $2, lifecycle = $3 WHERE id = $1`,
		p.ID, p.EffectiveTo, p.Lifecycle,
	)
	if err != nil {
		return fmt.Errorf("update concept price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una vigencia del concepto.
func (r *PriceHistoryRepo) GetByID(ctx context.Context, conceptID, id string) (*entity.ConceptPrice, error) {
	p, err := scanPrice(r.q.QueryRow(ctx,
		`SELECT `+priceColumns+` FROM concept_price_history WHERE concept_id = $1 AND id = $2`, conceptID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get concept price: %w", err)
	}
	return p, nil
}

// ListByConcept historial completo (activas y desactivadas) ordenado por inicio de vigencia.
func (r *PriceHistoryRepo) ListByConcept(ctx context.Context, conceptID string) ([]*entity.ConceptPrice, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+priceColumns+` FROM concept_price_history WHERE concept_id = $1 ORDER BY effective_from, created_at`, conceptID)
	if err != nil {
		return nil, fmt.Errorf("list concept prices: %w", err)
	}
	defer rows.Close()
	var list []*entity.ConceptPrice
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan concept price: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
