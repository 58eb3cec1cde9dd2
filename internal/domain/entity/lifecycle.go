package entity

import (
	"fmt"

	"github.com/jhoicas/cooperativa-api/internal/domain"
)

// Lifecycle ciclo de vida lógico de una entidad (reemplaza los flags "active" sueltos).
type Lifecycle string

const (
	LifecycleActive      Lifecycle = "ACTIVE"
	LifecycleDeactivated Lifecycle = "DEACTIVATED"
)

// IsActive indica si la entidad sigue vigente.
func (l Lifecycle) IsActive() bool { return l == LifecycleActive }

// Deactivate es la única transición permitida: ACTIVE -> DEACTIVATED.
func (l *Lifecycle) Deactivate() error {
	if *l != LifecycleActive {
		return fmt.Errorf("%w: la entidad ya está desactivada", domain.ErrPreconditionFailed)
	}
	*l = LifecycleDeactivated
	return nil
}
