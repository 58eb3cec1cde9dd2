package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
)

var hundred = decimal.NewFromInt(100)

// parseDate interpreta "2006-01-02"; vacío devuelve el valor cero.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha inválida %q", domain.ErrInvalidInput, s)
	}
	return invoicing.DateOnly(t), nil
}

func formatDate(t time.Time) string { return t.Format(dto.DateLayout) }

// Escalas de las columnas NUMERIC: cantidades y precios (20,6), porcentajes (7,4).
// Un valor con más decimales se rechaza; Postgres lo redondearía al guardar.
const (
	amountScale  = 6
	percentScale = 4
)

// fitsScale indica si v se guarda tal cual con la escala dada.
func fitsScale(v decimal.Decimal, scale int32) bool {
	return v.Equal(v.Truncate(scale))
}

func validPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(hundred) && fitsScale(p, percentScale)
}

// validAmount precio o cantidad no negativo y con a lo sumo amountScale decimales.
func validAmount(v decimal.Decimal) bool {
	return !v.IsNegative() && fitsScale(v, amountScale)
}

func toConceptResponse(c *entity.BillableConcept) *dto.ConceptResponse {
	return &dto.ConceptResponse{
		ID:            c.ID,
		TenantID:      c.TenantID,
		Code:          c.Code,
		Name:          c.Name,
		Kind:          string(c.Kind),
		TaxApplies:    c.TaxApplies,
		TaxPercentage: c.TaxPercentage,
		CurrentPrice:  c.CurrentPrice,
		Active:        c.Lifecycle.IsActive(),
	}
}

func toPriceResponse(p *entity.ConceptPrice) *dto.PriceResponse {
	resp := &dto.PriceResponse{
		ID:            p.ID,
		ConceptID:     p.ConceptID,
		Value:         p.Value,
		EffectiveFrom: formatDate(p.EffectiveFrom),
		Reason:        p.Reason,
		CreatedBy:     p.CreatedBy,
		Active:        p.Lifecycle.IsActive(),
	}
	if p.EffectiveTo != nil {
		to := formatDate(*p.EffectiveTo)
		resp.EffectiveTo = &to
	}
	return resp
}

func toPeriodResponse(p *entity.BillingPeriod) *dto.PeriodResponse {
	return &dto.PeriodResponse{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Month:     p.Month,
		Year:      p.Year,
		Label:     p.Label,
		StartDate: formatDate(p.StartDate),
		EndDate:   formatDate(p.EndDate),
		State:     string(p.State),
		CreatedBy: p.CreatedBy,
		ClosedBy:  p.ClosedBy,
		ClosedAt:  p.ClosedAt,
		Notes:     p.Notes,
		Active:    p.Lifecycle.IsActive(),
	}
}

func toAppliedConceptResponse(ac *entity.AppliedConcept) *dto.AppliedConceptResponse {
	return &dto.AppliedConceptResponse{
		ID:            ac.ID,
		PeriodID:      ac.PeriodID,
		ConceptID:     ac.ConceptID,
		ConceptCode:   ac.ConceptCode,
		ConceptName:   ac.ConceptName,
		AccountID:     ac.AccountID,
		ServiceID:     ac.ServiceID,
		Quantity:      ac.Quantity,
		UnitPrice:     ac.UnitPrice,
		Subtotal:      ac.Subtotal,
		TaxApplies:    ac.TaxApplies,
		TaxPercentage: ac.TaxPercentage,
		TaxAmount:     ac.TaxAmount,
		Total:         ac.Total,
		Billed:        ac.Billed,
		Notes:         ac.Notes,
	}
}

func toInvoiceResponse(inv *entity.Invoice, lines []*entity.InvoiceLine) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:                 inv.ID,
		TenantID:           inv.TenantID,
		Number:             inv.Number,
		AccountID:          inv.AccountID,
		Month:              inv.Month,
		Year:               inv.Year,
		PeriodLabel:        inv.PeriodLabel,
		IssueDate:          formatDate(inv.IssueDate),
		DueDate:            formatDate(inv.DueDate),
		Subtotal:           inv.Subtotal,
		TaxTotal:           inv.TaxTotal,
		Total:              inv.Total,
		OutstandingBalance: inv.OutstandingBalance,
		Status:             string(inv.Status),
		Notes:              inv.Notes,
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.InvoiceLineResponse{
			ID:           l.ID,
			ConceptID:    l.ConceptID,
			Description:  l.Description,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			Subtotal:     l.Subtotal,
			TaxAmount:    l.TaxAmount,
			Total:        l.Total,
			DisplayOrder: l.DisplayOrder,
		})
	}
	return resp
}
