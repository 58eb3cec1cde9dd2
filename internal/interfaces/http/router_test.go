package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cooperativa-api/internal/application/billing"
	"github.com/jhoicas/cooperativa-api/internal/application/dto"
	"github.com/jhoicas/cooperativa-api/internal/domain/entity"
	"github.com/jhoicas/cooperativa-api/internal/domain/repository"
	apphttp "github.com/jhoicas/cooperativa-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/cooperativa-api/pkg/jwt"
	"github.com/jhoicas/cooperativa-api/pkg/logger"
)

// stubConcepts implementa solo las lecturas; cualquier otro método entra en pánico.
type stubConcepts struct {
	repository.ConceptRepository
	byID map[string]*entity.BillableConcept
}

func (s stubConcepts) GetByID(_ context.Context, tenantID, id string) (*entity.BillableConcept, error) {
	if id == "explota" {
		return nil, errors.New("conexión perdida")
	}
	c, ok := s.byID[id]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	return c, nil
}

func (s stubConcepts) List(_ context.Context, tenantID string, _ repository.ConceptFilter) ([]*entity.BillableConcept, error) {
	var out []*entity.BillableConcept
	for _, c := range s.byID {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

type directRunner struct{ repos billing.BillingRepos }

func (r directRunner) RunBilling(_ context.Context, fn func(billing.BillingRepos) error) error {
	return fn(r.repos)
}

func buildRouterApp() *fiber.App {
	return buildRouterAppWithLogger(nil)
}

func buildRouterAppWithLogger(log *logger.Logger) *fiber.App {
	price := decimal.RequireFromString("1500")
	repos := billing.BillingRepos{Concepts: stubConcepts{byID: map[string]*entity.BillableConcept{
		"c-1": {
			ID: "c-1", TenantID: testTenantID, Code: "AGUA", Name: "Consumo de agua",
			Kind: entity.ConceptKindMetered, TaxApplies: true, TaxPercentage: decimal.NewFromInt(21),
			CurrentPrice: &price, Lifecycle: entity.LifecycleActive,
		},
	}}}
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ConceptUC: billing.NewConceptUseCase(directRunner{repos}, repos),
		JWTSecret: testJWTSecret,
		Logger:    log,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) (*http.Response, dto.ErrorResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var e dto.ErrorResponse
	if resp.StatusCode >= 400 {
		_ = json.NewDecoder(resp.Body).Decode(&e)
	}
	return resp, e
}

func TestRouter_ConsultaLeeConceptos(t *testing.T) {
	app := buildRouterApp()

	resp, _ := call(t, app, http.MethodGet, "/api/billing/concepts/c-1", "consulta", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got dto.ConceptResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "AGUA", got.Code)
	assert.Equal(t, "METERED", got.Kind)
	require.NotNil(t, got.CurrentPrice)
	assert.True(t, got.CurrentPrice.Equal(decimal.NewFromInt(1500)))
	assert.True(t, got.Active)

	resp, _ = call(t, app, http.MethodGet, "/api/billing/concepts", "consulta", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_MapeoDeErrores(t *testing.T) {
	app := buildRouterApp()

	resp, e := call(t, app, http.MethodGet, "/api/billing/concepts/no-existe", "admin", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", e.Code)

	resp, e = call(t, app, http.MethodGet, "/api/billing/concepts/explota", "admin", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL", e.Code)

	resp, e = call(t, app, http.MethodGet, "/api/billing/concepts/c-1/prices/current?as_of=05-02-2024", "admin", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", e.Code)
}

func TestRouter_ValidaElCuerpo(t *testing.T) {
	app := buildRouterApp()

	resp, e := call(t, app, http.MethodPost, "/api/billing/concepts", "facturador", `{"code":"X","name":"Y","kind":"CUALQUIERA"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", e.Code)
	assert.Contains(t, e.Message, "Kind")

	resp, e = call(t, app, http.MethodPost, "/api/billing/concepts", "facturador", `{"code":`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", e.Code)
}

func TestRouter_PermisosPorRol(t *testing.T) {
	app := buildRouterApp()

	cases := []struct {
		name   string
		method string
		path   string
		role   string
		status int
	}{
		{"consulta no crea conceptos", http.MethodPost, "/api/billing/concepts", "consulta", http.StatusForbidden},
		{"consulta no genera facturas", http.MethodPost, "/api/billing/periods/p-1/invoices/generate", "consulta", http.StatusForbidden},
		{"facturador no revierte facturas", http.MethodDelete, "/api/billing/periods/p-1/invoices", "facturador", http.StatusForbidden},
		{"facturador no da de baja periodos", http.MethodDelete, "/api/billing/periods/p-1", "facturador", http.StatusForbidden},
		{"facturador no desactiva conceptos", http.MethodDelete, "/api/billing/concepts/c-1", "facturador", http.StatusForbidden},
		{"sin token", http.MethodGet, "/api/billing/concepts", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := call(t, app, tc.method, tc.path, tc.role, "")
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func tokenForTenant(t *testing.T, tenantID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, tenantID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// Otro tenant no ve conceptos ajenos.
func TestRouter_AislamientoPorTenant(t *testing.T) {
	app := buildRouterApp()
	tok := tokenForTenant(t, "otra-cooperativa", "admin")

	req := httptest.NewRequest(http.MethodGet, "/api/billing/concepts/c-1", nil)
	req.Header.Set("Authorization", tok)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_LogDePeticionConTenantYActor(t *testing.T) {
	var buf bytes.Buffer
	app := buildRouterAppWithLogger(logger.NewWithWriter(&buf, "info"))

	resp, _ := call(t, app, http.MethodGet, "/api/billing/concepts/c-1", "consulta", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := buf.String()
	assert.Contains(t, out, `"tenant_id":"`+testTenantID+`"`)
	assert.Contains(t, out, `"actor_id":"`+testUserID+`"`)
	assert.Contains(t, out, `"role":"consulta"`)
	assert.Contains(t, out, `"path":"/api/billing/concepts/c-1"`)
	assert.Contains(t, out, `"status":200`)

	buf.Reset()
	resp, _ = call(t, app, http.MethodGet, "/api/billing/concepts/explota", "admin", "")
	defer resp.Body.Close()
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":500`)
}
