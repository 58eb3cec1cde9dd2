package dto

import "time"

// CreatePeriodRequest body para POST /api/billing/periods.
// Si no se envían fechas se usa el mes calendario completo.
type CreatePeriodRequest struct {
	Month     int    `json:"month" validate:"required,min=1,max=12"`
	Year      int    `json:"year" validate:"required,min=2000,max=2100"`
	StartDate string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes     string `json:"notes,omitempty" validate:"max=1000"`
}

// PeriodResponse periodo en respuestas.
type PeriodResponse struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Month     int        `json:"month"`
	Year      int        `json:"year"`
	Label     string     `json:"label"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	State     string     `json:"state"`
	CreatedBy string     `json:"created_by,omitempty"`
	ClosedBy  string     `json:"closed_by,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Active    bool       `json:"active"`
}
