package invoicing

import (
	"time"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// DateOnly normaliza una fecha al día (UTC, 00:00).
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FindOverlap devuelve la primera entrada activa cuyo intervalo se cruza con [from, to].
// to nil = abierto. Ambos intervalos son cerrados, así que compartir un día es cruce.
func FindOverlap(history []*entity.ConceptPrice, from time.Time, to *time.Time) *entity.ConceptPrice {
	for _, p := range history {
		if !p.Lifecycle.IsActive() {
			continue
		}
		startsBeforeNewEnds := to == nil || !p.EffectiveFrom.After(*to)
		endsAfterNewStarts := p.EffectiveTo == nil || !p.EffectiveTo.Before(from)
		if startsBeforeNewEnds && endsAfterNewStarts {
			return p
		}
	}
	return nil
}

// EffectiveAt devuelve la entrada activa vigente en la fecha; si hubiera varias gana la de inicio más reciente.
func EffectiveAt(history []*entity.ConceptPrice, at time.Time) *entity.ConceptPrice {
	var best *entity.ConceptPrice
	for _, p := range history {
		if !p.Lifecycle.IsActive() || !p.Covers(at) {
			continue
		}
		if best == nil || p.EffectiveFrom.After(best.EffectiveFrom) {
			best = p
		}
	}
	return best
}

// Latest devuelve la entrada activa con inicio más reciente (fuente de la caché CurrentPrice).
func Latest(history []*entity.ConceptPrice) *entity.ConceptPrice {
	var best *entity.ConceptPrice
	for _, p := range history {
		if !p.Lifecycle.IsActive() {
			continue
		}
		if best == nil || p.EffectiveFrom.After(best.EffectiveFrom) {
			best = p
		}
	}
	return best
}
