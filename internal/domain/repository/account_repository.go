package repository

import (
	"context"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// AccountRepository lectura de cuentas (módulo de cuentas, externo). (nil, nil) = no existe.
type AccountRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.Account, error)
}

// PersonRepository lectura de personas titulares (módulo de personas/KYC, externo).
type PersonRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entity.Person, error)
}
