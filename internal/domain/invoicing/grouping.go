package invoicing

import "github.com/jhoicas/cooperativa-api/internal/domain/entity"

// AccountGroup conceptos aplicados de una cuenta: la unidad de trabajo de una factura.
type AccountGroup struct {
	AccountID string
	Entries   []*entity.AppliedConcept
}

// GroupByAccount particiona los conceptos por cuenta conservando el orden de entrada
// (el repositorio ya los entrega ordenados por cuenta y nombre de concepto).
func GroupByAccount(entries []*entity.AppliedConcept) []AccountGroup {
	index := make(map[string]int)
	var groups []AccountGroup
	for _, e := range entries {
		i, ok := index[e.AccountID]
		if !ok {
			i = len(groups)
			index[e.AccountID] = i
			groups = append(groups, AccountGroup{AccountID: e.AccountID})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// LinesFromEntries arma las líneas de factura copiando los importes tal cual, en el mismo orden.
func LinesFromEntries(invoiceID string, entries []*entity.AppliedConcept) []*entity.InvoiceLine {
	lines := make([]*entity.InvoiceLine, 0, len(entries))
	for i, e := range entries {
		description := e.ConceptName
		if description == "" {
			description = e.ConceptCode
		}
		if e.Notes != "" {
			description += " - " + e.Notes
		}
		lines = append(lines, &entity.InvoiceLine{
			InvoiceID:    invoiceID,
			ConceptID:    e.ConceptID,
			Description:  description,
			Quantity:     e.Quantity,
			UnitPrice:    e.UnitPrice,
			Subtotal:     e.Subtotal,
			TaxAmount:    e.TaxAmount,
			Total:        e.Total,
			DisplayOrder: i + 1,
		})
	}
	return lines
}
