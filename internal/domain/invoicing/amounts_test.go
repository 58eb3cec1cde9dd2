package invoicing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// El ejemplo de referencia: 3 × 125.5050 con IVA 21% no debe sufrir deriva de redondeo.
func TestComputeLine_AritmeticaExacta(t *testing.T) {
	a := invoicing.ComputeLine(dec("3"), dec("125.5050"), true, dec("21"))

	assert.True(t, a.Subtotal.Equal(dec("376.5150")), "subtotal: %s", a.Subtotal)
	assert.True(t, a.TaxAmount.Equal(dec("79.068150")), "impuesto: %s", a.TaxAmount)
	assert.True(t, a.Total.Equal(dec("455.583150")), "total: %s", a.Total)
}

func TestComputeLine_SinImpuesto(t *testing.T) {
	a := invoicing.ComputeLine(dec("2.5"), dec("40"), false, dec("21"))

	assert.True(t, a.Subtotal.Equal(dec("100")))
	assert.True(t, a.TaxAmount.IsZero(), "sin impuesto el porcentaje se ignora")
	assert.True(t, a.Total.Equal(dec("100")))
}

func TestRecalculate_ActualizaCamposDerivados(t *testing.T) {
	ac := &entity.AppliedConcept{
		Quantity:      dec("1"),
		UnitPrice:     dec("1000"),
		TaxApplies:    true,
		TaxPercentage: dec("21"),
	}
	invoicing.Recalculate(ac)
	assert.True(t, ac.Total.Equal(dec("1210")))

	ac.Quantity = dec("2")
	invoicing.Recalculate(ac)
	assert.True(t, ac.Subtotal.Equal(dec("2000")))
	assert.True(t, ac.TaxAmount.Equal(dec("420")))
	assert.True(t, ac.Total.Equal(dec("2420")))
}

func TestSum_UsaImportesPersistidos(t *testing.T) {
	entries := []*entity.AppliedConcept{
		{Subtotal: dec("376.5150"), TaxAmount: dec("79.068150")},
		{Subtotal: dec("0.1"), TaxAmount: dec("0.2")},
	}
	got := invoicing.Sum(entries)

	assert.True(t, got.Subtotal.Equal(dec("376.6150")))
	assert.True(t, got.TaxTotal.Equal(dec("79.268150")))
	assert.True(t, got.Total.Equal(dec("455.883150")))
}

func TestGroupByAccount_ConservaOrden(t *testing.T) {
	entries := []*entity.AppliedConcept{
		{AccountID: "A", ConceptName: "Cargo fijo"},
		{AccountID: "A", ConceptName: "Consumo"},
		{AccountID: "B", ConceptName: "Cargo fijo"},
	}
	groups := invoicing.GroupByAccount(entries)

	assert.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].AccountID)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, "Consumo", groups[0].Entries[1].ConceptName)
	assert.Equal(t, "B", groups[1].AccountID)
}

func TestLinesFromEntries_CopiaImportesLiterales(t *testing.T) {
	entries := []*entity.AppliedConcept{
		{ConceptID: "c1", ConceptName: "Cargo fijo", Quantity: dec("1"), UnitPrice: dec("1000"),
			Subtotal: dec("1000"), TaxAmount: dec("210"), Total: dec("1210")},
		{ConceptID: "c2", ConceptCode: "AGUA", Notes: "lectura 120", Quantity: dec("3"), UnitPrice: dec("1.5"),
			Subtotal: dec("4.5"), TaxAmount: decimal.Zero, Total: dec("4.5")},
	}
	lines := invoicing.LinesFromEntries("inv-1", entries)

	assert.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].DisplayOrder)
	assert.Equal(t, "Cargo fijo", lines[0].Description)
	assert.True(t, lines[0].Total.Equal(dec("1210")))
	assert.Equal(t, "AGUA - lectura 120", lines[1].Description)
	assert.Equal(t, "inv-1", lines[1].InvoiceID)
}
