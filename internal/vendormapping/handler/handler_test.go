package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"templatehub/internal/audit"
	"templatehub/internal/cache"
	templatedao "templatehub/internal/template/dao"
	templatemodels "templatehub/internal/template/models"
	templateservice "templatehub/internal/template/service"
	templatestore "templatehub/internal/template/store"
	vendordao "templatehub/internal/vendormapping/dao"
	vendorservice "templatehub/internal/vendormapping/service"
	vendorstore "templatehub/internal/vendormapping/store"
	"templatehub/pkg/requestcontext"
)

type fixture struct {
	server    *httptest.Server
	templates *templateservice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(audit.NewInMemoryStore(), logger)

	tplDAO := templatedao.New(templatestore.NewInMemoryStore(),
		cache.Config{Name: "template", TTL: time.Minute, MaxEntries: 100}, nil)
	t.Cleanup(tplDAO.Stop)
	templates := templateservice.NewService(tplDAO, publisher, nil)

	vdrDAO := vendordao.New(vendorstore.NewInMemoryStore(),
		cache.Config{Name: "vendor", TTL: time.Minute, MaxEntries: 100}, nil)
	t.Cleanup(vdrDAO.Stop)
	vendors := vendorservice.NewService(vdrDAO, templates, publisher, nil, logger)

	r := chi.NewRouter()
	New(vendors, templates, logger, nil, nil, PageConfig{}).Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &fixture{server: server, templates: templates}
}

func (f *fixture) createTemplate(t *testing.T) templatemodels.MasterTemplate {
	t.Helper()
	ctx := requestcontext.WithActor(context.Background(), "alice")
	created, err := f.templates.Create(ctx, templatemodels.MasterTemplate{
		Name:         "Monthly Statement",
		TemplateType: "STATEMENT",
		ActiveFlag:   true,
	})
	require.NoError(t, err)
	return created
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-Id", "alice")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func mappingPayload(templateID string, vendor string) map[string]any {
	return map[string]any{
		"masterTemplateId": templateID,
		"templateVersion":  1,
		"vendor":           vendor,
		"vendorType":       "GENERATION",
	}
}

func TestCreateMapping(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)

	resp := f.do(t, http.MethodPost, "/templates/vendors",
		mappingPayload(template.TemplateID.String(), "acme"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.NotEmpty(t, body["templateVendorId"])
	assert.EqualValues(t, 1, body["vendorMappingVersion"])
	assert.Equal(t, true, body["activeFlag"])
	assert.EqualValues(t, 30000, body["timeoutMs"])
	assert.Equal(t, "ACTIVE", body["vendorStatus"])
}

func TestCreateMapping_UnknownTemplateIs404(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/templates/vendors",
		mappingPayload("7b68e9e0-1f9b-4f5c-b7a4-46575e4b6a61", "acme"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateMapping_DuplicateIs409(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)
	payload := mappingPayload(template.TemplateID.String(), "acme")

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates/vendors", payload).StatusCode)
	resp := f.do(t, http.MethodPost, "/templates/vendors", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPatchMapping_BumpsMappingVersion(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates/vendors",
		mappingPayload(template.TemplateID.String(), "acme")))
	vendorID := created["templateVendorId"].(string)

	resp := f.do(t, http.MethodPatch, "/templates/vendors/"+vendorID,
		map[string]any{"priorityOrder": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.EqualValues(t, 2, body["vendorMappingVersion"])
	assert.EqualValues(t, 7, body["priorityOrder"])
	assert.Equal(t, "acme", body["vendor"], "identity tuple survives a patch")
}

func TestUpdateHealth(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates/vendors",
		mappingPayload(template.TemplateID.String(), "acme")))
	vendorID := created["templateVendorId"].(string)

	resp := f.do(t, http.MethodPut, "/templates/vendors/"+vendorID+"/health",
		map[string]any{"vendorStatus": "DEGRADED", "healthStatus": "slow"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/templates/vendors/"+vendorID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "DEGRADED", body["vendorStatus"])
	assert.Equal(t, "slow", body["lastHealthStatus"])
	assert.EqualValues(t, 1, body["vendorMappingVersion"], "health update must not bump the version")

	resp = f.do(t, http.MethodPut, "/templates/vendors/"+vendorID+"/health",
		map[string]any{"vendorStatus": "BROKEN"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestArchiveMapping(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates/vendors",
		mappingPayload(template.TemplateID.String(), "acme")))
	vendorID := created["templateVendorId"].(string)

	require.Equal(t, http.StatusNoContent,
		f.do(t, http.MethodDelete, "/templates/vendors/"+vendorID, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodGet, "/templates/vendors/"+vendorID, nil).StatusCode)
	assert.Equal(t, http.StatusNoContent,
		f.do(t, http.MethodDelete, "/templates/vendors/"+vendorID, nil).StatusCode,
		"second archive is a no-op")
}

func TestRoutingEndpoint_OrdersByPriority(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)
	templateID := template.TemplateID.String()

	second := mappingPayload(templateID, "globex")
	second["priorityOrder"] = 2
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates/vendors", second).StatusCode)

	first := mappingPayload(templateID, "acme")
	first["priorityOrder"] = 1
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates/vendors", first).StatusCode)

	resp := f.do(t, http.MethodGet,
		"/templates/vendors/routing?templateId="+templateID+"&templateVersion=1&vendorType=GENERATION", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ordered := decode[[]map[string]any](t, resp)
	require.Len(t, ordered, 2)
	assert.Equal(t, "acme", ordered[0]["vendor"])
	assert.Equal(t, "globex", ordered[1]["vendor"])

	resp = f.do(t, http.MethodGet, "/templates/vendors/routing?templateId="+templateID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPrimaryEndpoint(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)
	templateID := template.TemplateID.String()

	payload := mappingPayload(templateID, "acme")
	payload["primaryFlag"] = true
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates/vendors", payload).StatusCode)

	resp := f.do(t, http.MethodGet,
		"/templates/vendors/primary?templateId="+templateID+"&templateVersion=1&vendorType=GENERATION", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "acme", body["vendor"])
	assert.Equal(t, true, body["primaryFlag"])

	resp = f.do(t, http.MethodGet,
		"/templates/vendors/primary?templateId="+templateID+"&templateVersion=1&vendorType=PRINT", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMapping_IncludeTemplateDetails(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates/vendors",
		mappingPayload(template.TemplateID.String(), "acme")))
	vendorID := created["templateVendorId"].(string)

	resp := f.do(t, http.MethodGet, "/templates/vendors/"+vendorID+"?includeTemplateDetails=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	details, ok := body["templateDetails"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Monthly Statement", details["templateName"])
	assert.Equal(t, "STATEMENT", details["templateType"])
}

func TestListMappings_FilterByTemplate(t *testing.T) {
	f := newFixture(t)
	template := f.createTemplate(t)
	templateID := template.TemplateID.String()

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates/vendors", mappingPayload(templateID, "acme")).StatusCode)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates/vendors", mappingPayload(templateID, "globex")).StatusCode)

	resp := f.do(t, http.MethodGet, "/templates/vendors?templateId="+templateID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.EqualValues(t, 2, body["totalCount"])

	resp = f.do(t, http.MethodGet, "/templates/vendors?vendor=acme", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, body["totalCount"])
}
