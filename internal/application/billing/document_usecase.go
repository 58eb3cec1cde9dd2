package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/cooperativa-api/internal/domain"
)

// InvoiceDocumentUseCase arma los datos de la factura y delega el render en DocumentRenderer.
type InvoiceDocumentUseCase struct {
	repos    BillingRepos
	accounts AccountLookup
	persons  PersonLookup
	renderer DocumentRenderer
}

// NewInvoiceDocumentUseCase construye el caso de uso.
func NewInvoiceDocumentUseCase(repos BillingRepos, accounts AccountLookup, persons PersonLookup, renderer DocumentRenderer) *InvoiceDocumentUseCase {
	return &InvoiceDocumentUseCase{repos: repos, accounts: accounts, persons: persons, renderer: renderer}
}

// Render devuelve (bytes, nombre de archivo) del documento de la factura.
func (uc *InvoiceDocumentUseCase) Render(ctx context.Context, tenantID, invoiceID string) ([]byte, string, error) {
	inv, err := uc.repos.Invoices.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("documento: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	lines, err := uc.repos.Invoices.GetLines(ctx, inv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("documento: obtener líneas: %w", err)
	}

	doc := InvoiceDocument{Invoice: inv, Lines: lines}
	acc, err := uc.accounts.GetByID(ctx, tenantID, inv.AccountID)
	if err != nil {
		return nil, "", fmt.Errorf("documento: obtener cuenta: %w", err)
	}
	if acc != nil {
		doc.AccountNumber = acc.Number
		if acc.PersonID != "" {
			person, err := uc.persons.GetByID(ctx, tenantID, acc.PersonID)
			if err != nil {
				return nil, "", fmt.Errorf("documento: obtener titular: %w", err)
			}
			if person != nil {
				doc.HolderName = person.FullName
				doc.HolderDocument = person.Document
			}
		}
	}

	out, err := uc.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("factura_%s.pdf", inv.Number), nil
}
