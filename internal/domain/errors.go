package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Los casos de uso los envuelven con contexto: fmt.Errorf("%w: ...", domain.ErrConflict).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrPreconditionFailed = errors.New("precondición no satisfecha")
	ErrBusinessRule       = errors.New("regla de negocio incumplida")
)
