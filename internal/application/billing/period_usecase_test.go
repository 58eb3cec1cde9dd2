package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
)

func createPeriod(t *testing.T, e *testEnv, month, year int) *dto.PeriodResponse {
	t.Helper()
	p, err := e.periods.Create(context.Background(), testTenant, testActor, dto.CreatePeriodRequest{Month: month, Year: year})
	require.NoError(t, err)
	return p
}

func closePeriod(t *testing.T, e *testEnv, periodID string) {
	t.Helper()
	_, err := e.periods.Close(context.Background(), testTenant, testActor, periodID)
	require.NoError(t, err)
}

func TestPeriod_CreateCubreElMesCalendario(t *testing.T) {
	e := newTestEnv()
	p := createPeriod(t, e, 2, 2024)

	assert.Equal(t, "02/2024", p.Label)
	assert.Equal(t, "2024-02-01", p.StartDate)
	assert.Equal(t, "2024-02-29", p.EndDate)
	assert.Equal(t, string(entity.PeriodStateOpen), p.State)
	assert.True(t, p.Active)
	assert.Nil(t, p.ClosedAt)
}

func TestPeriod_CreateDuplicadoYValidaciones(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	createPeriod(t, e, 1, 2024)

	_, err := e.periods.Create(ctx, testTenant, testActor, dto.CreatePeriodRequest{Month: 1, Year: 2024})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.periods.Create(ctx, testTenant, testActor, dto.CreatePeriodRequest{Month: 13, Year: 2024})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.periods.Create(ctx, testTenant, testActor, dto.CreatePeriodRequest{
		Month: 3, Year: 2024, StartDate: "2024-03-10", EndDate: "2024-03-01",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p, err := e.periods.Create(ctx, testTenant, testActor, dto.CreatePeriodRequest{
		Month: 4, Year: 2024, StartDate: "2024-03-26", EndDate: "2024-04-25",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-26", p.StartDate)
	assert.Equal(t, "2024-04-25", p.EndDate)
}

func TestPeriod_CloseSoloDesdeOpen(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	p := createPeriod(t, e, 1, 2024)

	closed, err := e.periods.Close(ctx, testTenant, testActor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.PeriodStateClosed), closed.State)
	assert.Equal(t, testActor, closed.ClosedBy)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(fixedNow))

	_, err = e.periods.Close(ctx, testTenant, testActor, p.ID)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	_, err = e.periods.Close(ctx, testTenant, testActor, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPeriod_RemoveConConceptosAplicados(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	c := createConcept(t, e, "CUOTA", "10", "")
	e.store.addAccount(testTenant, "acc-1", "0001", "Ana", true)
	p := createPeriod(t, e, 1, 2024)
	applied, err := e.applied.Apply(ctx, testTenant, testActor, p.ID, dto.ApplyConceptRequest{
		ConceptID: c.ID, AccountID: "acc-1", Quantity: dec("1"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, e.periods.Remove(ctx, testTenant, testActor, p.ID), domain.ErrPreconditionFailed)

	require.NoError(t, e.applied.Remove(ctx, testTenant, applied.ID))
	require.NoError(t, e.periods.Remove(ctx, testTenant, testActor, p.ID))

	got, err := e.periods.Get(ctx, testTenant, p.ID)
	require.NoError(t, err, "la baja es lógica, el periodo sigue existiendo")
	assert.False(t, got.Active)
	assert.Equal(t, string(entity.PeriodStateClosed), got.State)

	assert.ErrorIs(t, e.periods.Remove(ctx, testTenant, testActor, p.ID), domain.ErrPreconditionFailed)
}

// Un periodo dado de baja queda fuera de la facturación.
func TestPeriod_DadoDeBajaNoSeFactura(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	createConcept(t, e, "CUOTA", "10", "")
	e.store.addAccount(testTenant, "acc-1", "0001", "Ana", true)
	p := createPeriod(t, e, 2, 2024)
	require.NoError(t, e.periods.Remove(ctx, testTenant, testActor, p.ID))

	_, err := e.invoices.GenerateForPeriod(ctx, testTenant, testActor, p.ID, dto.GenerateInvoicesRequest{})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	_, err = e.invoices.GenerateOne(ctx, testTenant, testActor, p.ID, "acc-1", dto.GenerateAccountInvoiceRequest{})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	_, err = e.invoices.Preview(ctx, testTenant, p.ID, nil)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	got, err := e.periods.Get(ctx, testTenant, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, string(entity.PeriodStateClosed), got.State)
}

func TestPeriod_ListFiltraYOrdena(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	jan := createPeriod(t, e, 1, 2024)
	createPeriod(t, e, 2, 2024)
	createPeriod(t, e, 12, 2023)
	closePeriod(t, e, jan.ID)

	all, err := e.periods.List(ctx, testTenant, repository.PeriodFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "02/2024", all[0].Label)
	assert.Equal(t, "12/2023", all[2].Label)

	closed, err := e.periods.List(ctx, testTenant, repository.PeriodFilter{State: entity.PeriodStateClosed})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, jan.ID, closed[0].ID)

	_, err = e.periods.Get(ctx, "tenant-2", jan.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
