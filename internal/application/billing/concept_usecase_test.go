package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

func createConcept(t *testing.T, e *testEnv, code, price, pct string) *dto.ConceptResponse {
	t.Helper()
	in := dto.CreateConceptRequest{Code: code, Name: "Concepto " + code, Kind: "FLAT_FEE"}
	if pct != "" {
		in.TaxApplies = true
		in.TaxPercentage = dec(pct)
	}
	if price != "" {
		in.InitialPrice = ptr(dec(price))
	}
	c, err := e.concepts.Create(context.Background(), testTenant, testActor, in)
	require.NoError(t, err)
	return c
}

func TestConcept_CreateNormalizaCodigoYRechazaDuplicado(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	c := createConcept(t, e, " agua ", "125.5050", "21")
	assert.Equal(t, "AGUA", c.Code)
	assert.True(t, c.Active)
	require.NotNil(t, c.CurrentPrice)
	assert.True(t, dec("125.5050").Equal(*c.CurrentPrice))

	_, err := e.concepts.Create(ctx, testTenant, testActor, dto.CreateConceptRequest{Code: "AGUA", Name: "Otro", Kind: "OTHER"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// mismo código en otro tenant es válido
	_, err = e.concepts.Create(ctx, "tenant-2", testActor, dto.CreateConceptRequest{Code: "AGUA", Name: "Agua", Kind: "METERED"})
	assert.NoError(t, err)
}

func TestConcept_CreateValidaEntrada(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()

	cases := map[string]dto.CreateConceptRequest{
		"sin código":           {Name: "x", Kind: "OTHER"},
		"tipo desconocido":     {Code: "X", Name: "x", Kind: "MENSUAL"},
		"impuesto > 100":       {Code: "X", Name: "x", Kind: "OTHER", TaxPercentage: dec("100.01")},
		"precio negativo":      {Code: "X", Name: "x", Kind: "OTHER", InitialPrice: ptr(dec("-1"))},
		"precio 7 decimales":   {Code: "X", Name: "x", Kind: "OTHER", InitialPrice: ptr(dec("0.1234567"))},
		"impuesto 5 decimales": {Code: "X", Name: "x", Kind: "OTHER", TaxPercentage: dec("21.00001")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.concepts.Create(ctx, testTenant, testActor, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestConcept_PrecioInicialAbreHistorial(t *testing.T) {
	e := newTestEnv()
	c := createConcept(t, e, "CUOTA", "10", "")

	history, err := e.concepts.PriceHistory(context.Background(), testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-02-05", history[0].EffectiveFrom)
	assert.Nil(t, history[0].EffectiveTo)
	assert.True(t, history[0].Active)
}

func TestConcept_RepriceRechazaCruce(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	c := createConcept(t, e, "CUOTA", "10", "")

	_, err := e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("12"), EffectiveFrom: "2024-03-01",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	history, err := e.concepts.PriceHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "el rechazo no deja rastro")
}

func TestConcept_RepriceCierraVigenciaAbierta(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	c := createConcept(t, e, "CUOTA", "10", "")

	p, err := e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("12"), EffectiveFrom: "2024-03-01", Reason: "ajuste anual", CloseOpenEnded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", p.EffectiveFrom)

	history, err := e.concepts.PriceHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[0].EffectiveTo)
	assert.Equal(t, "2024-02-29", *history[0].EffectiveTo)

	// la caché refleja el precio vigente hoy (5 de febrero), no el último creado
	got, err := e.concepts.Get(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(*got.CurrentPrice))

	march, err := e.concepts.CurrentPrice(ctx, testTenant, c.ID, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, march)
	assert.True(t, dec("12").Equal(march.Value))
}

func TestConcept_CloseOpenEndedNoAplicaSiLaVigenciaEmpiezaDespues(t *testing.T) {
	e := newTestEnv()
	c := createConcept(t, e, "CUOTA", "10", "")

	_, err := e.concepts.Reprice(context.Background(), testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("8"), EffectiveFrom: "2024-01-01", CloseOpenEnded: true,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestConcept_RepriceValidaFechas(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	c := createConcept(t, e, "CUOTA", "", "")

	_, err := e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("8"), EffectiveFrom: "2024-05-01", EffectiveTo: ptr("2024-04-30"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("8"), EffectiveFrom: "01/05/2024",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("0.1234567"), EffectiveFrom: "2024-05-01",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "la columna guarda 6 decimales")

	// ceros a la derecha no cuentan como decimales extra
	_, err = e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("8.12345600"), EffectiveFrom: "2024-05-01",
	})
	require.NoError(t, err)

	_, err = e.concepts.Reprice(ctx, testTenant, testActor, "no-existe", dto.RepriceRequest{
		Value: dec("8"), EffectiveFrom: "2024-05-01",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcept_CurrentPriceSinPrecio(t *testing.T) {
	e := newTestEnv()
	c := createConcept(t, e, "VARIOS", "", "")

	p, err := e.concepts.CurrentPrice(context.Background(), testTenant, c.ID, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestConcept_DeactivatePriceRecalculaCache(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	c := createConcept(t, e, "CUOTA", "", "")

	jan, err := e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("9"), EffectiveFrom: "2024-01-01", EffectiveTo: ptr("2024-01-31"),
	})
	require.NoError(t, err)
	feb, err := e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("11"), EffectiveFrom: "2024-02-01",
	})
	require.NoError(t, err)

	got, err := e.concepts.Get(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.True(t, dec("11").Equal(*got.CurrentPrice))

	require.NoError(t, e.concepts.DeactivatePrice(ctx, testTenant, c.ID, feb.ID))
	got, err = e.concepts.Get(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice, "sin vigencia hoy cae a la más reciente activa")
	assert.True(t, dec("9").Equal(*got.CurrentPrice))

	assert.ErrorIs(t, e.concepts.DeactivatePrice(ctx, testTenant, c.ID, feb.ID), domain.ErrPreconditionFailed)

	require.NoError(t, e.concepts.DeactivatePrice(ctx, testTenant, c.ID, jan.ID))
	got, err = e.concepts.Get(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentPrice)

	// una vigencia desactivada ya no bloquea el rango
	_, err = e.concepts.Reprice(ctx, testTenant, testActor, c.ID, dto.RepriceRequest{
		Value: dec("13"), EffectiveFrom: "2024-02-01",
	})
	assert.NoError(t, err)
}

func TestConcept_DeactivateReferenciado(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	used := createConcept(t, e, "AGUA", "100", "")
	unused := createConcept(t, e, "ASEO", "5", "")

	e.store.addAccount(testTenant, "acc-1", "0001", "Ana", true)
	period := createPeriod(t, e, 1, 2024)
	_, err := e.applied.Apply(ctx, testTenant, testActor, period.ID, dto.ApplyConceptRequest{
		ConceptID: used.ID, AccountID: "acc-1", Quantity: dec("1"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, e.concepts.Deactivate(ctx, testTenant, used.ID), domain.ErrPreconditionFailed)

	require.NoError(t, e.concepts.Deactivate(ctx, testTenant, unused.ID))
	got, err := e.concepts.Get(ctx, testTenant, unused.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = e.concepts.Update(ctx, testTenant, unused.ID, dto.UpdateConceptRequest{Name: ptr("Aseo")})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestConcept_UpdateYList(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	c := createConcept(t, e, "AGUA", "100", "")
	createConcept(t, e, "ALUMBRADO", "20", "")

	up, err := e.concepts.Update(ctx, testTenant, c.ID, dto.UpdateConceptRequest{
		Name: ptr("Agua potable"), Kind: ptr("METERED"), TaxApplies: ptr(true), TaxPercentage: ptr(dec("19")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Agua potable", up.Name)
	assert.Equal(t, "METERED", up.Kind)
	assert.True(t, up.TaxApplies)
	assert.True(t, dec("100").Equal(*up.CurrentPrice), "el precio no cambia por Update")

	_, err = e.concepts.Update(ctx, testTenant, c.ID, dto.UpdateConceptRequest{Kind: ptr("X")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	list, err := e.concepts.List(ctx, testTenant, repository.ConceptFilter{Search: "alum"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ALUMBRADO", list[0].Code)

	_, err = e.concepts.Get(ctx, "tenant-2", c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "otro tenant no ve el concepto")
}
