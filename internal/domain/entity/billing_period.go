package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/cooperativa-api/internal/domain"
)

// PeriodState estado del periodo de facturación.
type PeriodState string

const (
	PeriodStateOpen     PeriodState = "OPEN"     // Admite conceptos aplicados
	PeriodStateClosed   PeriodState = "CLOSED"   // Listo para generar facturas
	PeriodStateInvoiced PeriodState = "INVOICED" // Facturas generadas para todas las cuentas
)

// Transiciones legales. Cualquier otra se rechaza.
var periodTransitions = map[PeriodState][]PeriodState{
	PeriodStateOpen:     {PeriodStateClosed},
	PeriodStateClosed:   {PeriodStateInvoiced},
	PeriodStateInvoiced: {PeriodStateClosed},
}

// CanTransitionTo indica si la transición s -> target es legal.
func (s PeriodState) CanTransitionTo(target PeriodState) bool {
	for _, t := range periodTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// BillingPeriod ventana contable mensual de un tenant.
type BillingPeriod struct {
	ID        string
	TenantID  string
	Month     int
	Year      int
	Label     string
	StartDate time.Time
	EndDate   time.Time
	State     PeriodState
	CreatedBy string
	ClosedBy  string
	ClosedAt  *time.Time
	Notes     string
	Lifecycle Lifecycle
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PeriodLabel etiqueta de presentación, ej. "03/2025".
func PeriodLabel(month, year int) string {
	return fmt.Sprintf("%02d/%d", month, year)
}

// TransitionTo aplica una transición de estado. Es el único punto que modifica State.
// Al cerrar desde OPEN registra quién y cuándo cerró.
func (p *BillingPeriod) TransitionTo(target PeriodState, actorID string, at time.Time) error {
	if !p.State.CanTransitionTo(target) {
		return fmt.Errorf("%w: el periodo %s no puede pasar de %s a %s",
			domain.ErrPreconditionFailed, p.Label, p.State, target)
	}
	if p.State == PeriodStateOpen && target == PeriodStateClosed {
		closedAt := at
		p.ClosedAt = &closedAt
		p.ClosedBy = actorID
	}
	p.State = target
	p.UpdatedAt = at
	return nil
}
