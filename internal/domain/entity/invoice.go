package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado de cobro de la factura.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice cabecera de la factura de una cuenta para un periodo (mes/año).
type Invoice struct {
	ID                 string
	TenantID           string
	Number             string // FAC-YYYY-MM-NNNNNN
	AccountID          string
	Month              int
	Year               int
	PeriodLabel        string
	IssueDate          time.Time
	DueDate            time.Time
	Subtotal           decimal.Decimal
	TaxTotal           decimal.Decimal
	Total              decimal.Decimal
	OutstandingBalance decimal.Decimal
	Status             InvoiceStatus
	Notes              string
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// InvoiceLine línea de factura; copia literal de los importes del concepto aplicado.
type InvoiceLine struct {
	ID           string
	InvoiceID    string
	ConceptID    string
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
	TaxAmount    decimal.Decimal
	Total        decimal.Decimal
	DisplayOrder int
}
