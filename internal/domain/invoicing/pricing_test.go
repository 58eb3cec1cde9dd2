package invoicing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/invoicing"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

func price(id string, value string, from time.Time, to *time.Time) *entity.ConceptPrice {
	return &entity.ConceptPrice{
		ID: id, Value: dec(value), EffectiveFrom: from, EffectiveTo: to, Lifecycle: entity.LifecycleActive,
	}
}

func TestFindOverlap(t *testing.T) {
	history := []*entity.ConceptPrice{
		price("ene-feb", "100", day(2025, 1, 1), ptr(day(2025, 2, 28))),
		price("jun-", "150", day(2025, 6, 1), nil),
	}

	cases := []struct {
		name string
		from time.Time
		to   *time.Time
		want string
	}{
		{"entre intervalos", day(2025, 3, 1), ptr(day(2025, 5, 31)), ""},
		{"inicio dentro de ene-feb", day(2025, 2, 15), ptr(day(2025, 4, 1)), "ene-feb"},
		{"fin dentro de ene-feb", day(2024, 12, 1), ptr(day(2025, 1, 10)), "ene-feb"},
		{"mismo día de cierre", day(2025, 2, 28), ptr(day(2025, 3, 5)), "ene-feb"},
		{"contiene a ene-feb", day(2024, 12, 1), ptr(day(2025, 3, 31)), "ene-feb"},
		{"abierto choca con jun-", day(2025, 3, 1), nil, "jun-"},
		{"posterior dentro del abierto", day(2026, 1, 1), ptr(day(2026, 2, 1)), "jun-"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := invoicing.FindOverlap(history, tc.from, tc.to)
			if tc.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.ID)
		})
	}
}

func TestFindOverlap_IgnoraEntradasDesactivadas(t *testing.T) {
	p := price("x", "100", day(2025, 1, 1), nil)
	p.Lifecycle = entity.LifecycleDeactivated

	assert.Nil(t, invoicing.FindOverlap([]*entity.ConceptPrice{p}, day(2025, 3, 1), nil))
}

func TestEffectiveAt(t *testing.T) {
	history := []*entity.ConceptPrice{
		price("ene-feb", "100", day(2025, 1, 1), ptr(day(2025, 2, 28))),
		price("jun-", "150", day(2025, 6, 1), nil),
	}

	got := invoicing.EffectiveAt(history, day(2025, 2, 28))
	require.NotNil(t, got)
	assert.Equal(t, "ene-feb", got.ID, "el fin del intervalo es inclusivo")

	assert.Nil(t, invoicing.EffectiveAt(history, day(2025, 4, 1)), "sin precio entre intervalos")

	got = invoicing.EffectiveAt(history, day(2030, 1, 1))
	require.NotNil(t, got)
	assert.Equal(t, "jun-", got.ID)
}

func TestEffectiveAt_GanaInicioMasReciente(t *testing.T) {
	history := []*entity.ConceptPrice{
		price("viejo", "100", day(2025, 1, 1), nil),
		price("nuevo", "120", day(2025, 3, 1), nil),
	}
	got := invoicing.EffectiveAt(history, day(2025, 4, 1))
	require.NotNil(t, got)
	assert.Equal(t, "nuevo", got.ID)

	latest := invoicing.Latest(history)
	require.NotNil(t, latest)
	assert.Equal(t, "nuevo", latest.ID)
}
