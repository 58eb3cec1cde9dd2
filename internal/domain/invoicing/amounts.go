package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
)

// LineAmounts importes derivados de una línea (concepto aplicado).
type LineAmounts struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeLine calcula subtotal = cantidad × precio, impuesto = subtotal × % / 100 y total.
// Aritmética decimal exacta: no se redondea en ningún paso.
func ComputeLine(quantity, unitPrice decimal.Decimal, taxApplies bool, taxPercentage decimal.Decimal) LineAmounts {
	subtotal := quantity.Mul(unitPrice)
	tax := decimal.Zero
	if taxApplies {
		tax = subtotal.Mul(taxPercentage).Shift(-2)
	}
	return LineAmounts{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// Recalculate vuelve a derivar subtotal, impuesto y total del concepto aplicado.
func Recalculate(ac *entity.AppliedConcept) {
	a := ComputeLine(ac.Quantity, ac.UnitPrice, ac.TaxApplies, ac.TaxPercentage)
	ac.Subtotal = a.Subtotal
	ac.TaxAmount = a.TaxAmount
	ac.Total = a.Total
}

// Totals acumulado de una factura.
type Totals struct {
	Subtotal decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal
}

// Sum suma los importes persistidos de los conceptos aplicados (sin recalcularlos).
func Sum(entries []*entity.AppliedConcept) Totals {
	subtotal, tax := decimal.Zero, decimal.Zero
	for _, e := range entries {
		subtotal = subtotal.Add(e.Subtotal)
		tax = tax.Add(e.TaxAmount)
	}
	return Totals{Subtotal: subtotal, TaxTotal: tax, Total: subtotal.Add(tax)}
}
