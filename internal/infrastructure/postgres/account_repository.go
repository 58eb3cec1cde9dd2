package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

var (
	_ repository.AccountRepository = (*AccountRepo)(nil)
	_ repository.PersonRepository  = (*PersonRepo)(nil)
)

// AccountRepo lectura de cuentas.
type AccountRepo struct {
	q Querier
}

// NewAccountRepository construye el adaptador.
func NewAccountRepository(q Querier) *AccountRepo {
	return &AccountRepo{q: q}
}

// GetByID obtiene una cuenta del tenant.
func (r *AccountRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Account, error) {
	var (
		a        entity.Account
		personID *string
	)
	err := r.q.QueryRow(ctx,
		`SELECT id, tenant_id, number, person_id, active FROM accounts WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&a.ID, &a.TenantID, &a.Number, &personID, &a.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.PersonID = emptyIfNull(personID)
	return &a, nil
}

// PersonRepo lectura de titulares.
type PersonRepo struct {
	q Querier
}

// NewPersonRepository construye el adaptador.
func NewPersonRepository(q Querier) *PersonRepo {
	return &PersonRepo{q: q}
}

// GetByID obtiene una persona del tenant.
func (r *PersonRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Person, error) {
	var p entity.Person
	err := r.q.QueryRow(ctx,
		`SELECT id, tenant_id, full_name, document FROM persons WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.FullName, &p.Document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &p, nil
}
