package handler

import (
	"bytes"
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
	templateservice "templatehub/internal/template/service"
	templatestore "templatehub/internal/template/store"
	vendordao "templatehub/internal/vendormapping/dao"
	vendormodels "templatehub/internal/vendormapping/models"
	vendorservice "templatehub/internal/vendormapping/service"
	vendorstore "templatehub/internal/vendormapping/store"
)

type fixture struct {
	server    *httptest.Server
	templates *templateservice.Service
	vendors   *vendorservice.Service
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
	New(templates, vendors, logger, nil, nil, PageConfig{}).Register(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &fixture{server: server, templates: templates, vendors: vendors}
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

func createPayload(templateType string) map[string]any {
	return map[string]any{
		"templateName":   "Monthly Statement",
		"templateType":   templateType,
		"lineOfBusiness": "BANKING",
		"activeFlag":     true,
	}
}

func TestCreateTemplate(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.NotEmpty(t, body["masterTemplateId"])
	assert.EqualValues(t, 1, body["templateVersion"])
	assert.Equal(t, "en", body["languageCode"])
	assert.Equal(t, "LETTER", body["communicationType"])
	assert.Equal(t, "alice", body["createdBy"])
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-Id"))
}

func TestCreateTemplate_BadBody(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/templates", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "BAD_REQUEST", body["code"])
}

func TestCreateTemplate_DuplicateTypeConflicts(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "CONFLICT", body["code"])
}

func TestGetVersion_RoundTrip(t *testing.T) {
	f := newFixture(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT")))
	templateID := created["masterTemplateId"].(string)

	resp := f.do(t, http.MethodGet, "/templates/"+templateID+"/versions/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "Monthly Statement", body["templateName"])
	assert.Nil(t, body["vendorMappings"])
}

func TestGetVersion_UnknownIs404(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/templates/7b68e9e0-1f9b-4f5c-b7a4-46575e4b6a61/versions/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetVersion_BadIDIs400(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/templates/not-a-uuid/versions/1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPatchVersion_InPlaceAndFork(t *testing.T) {
	f := newFixture(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT")))
	templateID := created["masterTemplateId"].(string)

	resp := f.do(t, http.MethodPatch, "/templates/"+templateID+"/versions/1",
		map[string]any{"displayName": "Statement (v1)"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, body["templateVersion"])
	assert.Equal(t, "Statement (v1)", body["displayName"])
	assert.Equal(t, "Monthly Statement", body["templateName"])

	resp = f.do(t, http.MethodPatch, "/templates/"+templateID+"/versions/1?newVersion=true",
		map[string]any{"displayName": "Statement (v2)"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[map[string]any](t, resp)
	assert.EqualValues(t, 2, body["templateVersion"])
	assert.Equal(t, "Statement (v2)", body["displayName"])

	resp = f.do(t, http.MethodGet, "/templates/"+templateID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	versions := decode[[]map[string]any](t, resp)
	require.Len(t, versions, 2)
	assert.EqualValues(t, 2, versions[0]["templateVersion"], "newest version first")
}

func TestArchiveVersion(t *testing.T) {
	f := newFixture(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT")))
	templateID := created["masterTemplateId"].(string)

	resp := f.do(t, http.MethodDelete, "/templates/"+templateID+"/versions/1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/templates/"+templateID+"/versions/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Repeat delete is a no-op success.
	resp = f.do(t, http.MethodDelete, "/templates/"+templateID+"/versions/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestListTemplates_FiltersAndPaging(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT")).StatusCode)
	other := createPayload("NOTICE")
	other["lineOfBusiness"] = "INSURANCE"
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates", other).StatusCode)

	resp := f.do(t, http.MethodGet, "/templates?lineOfBusiness=BANKING", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, body["totalCount"])

	resp = f.do(t, http.MethodGet, "/templates?size=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[map[string]any](t, resp)
	assert.EqualValues(t, 2, body["totalCount"])
	assert.Len(t, body["templates"], 1)

	resp = f.do(t, http.MethodGet, "/templates?activeFlag=banana", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVersion_IncludeVendors(t *testing.T) {
	f := newFixture(t)

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT")))
	templateID := created["masterTemplateId"].(string)

	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	parsed, err := f.templates.FindByTypeAndVersion(ctx, "STATEMENT", 1)
	require.NoError(t, err)
	_, err = f.vendors.Create(ctx, vendormodels.VendorMapping{
		TemplateID:      parsed.TemplateID,
		TemplateVersion: 1,
		Vendor:          "acme",
		VendorType:      vendormodels.VendorTypeGeneration,
	})
	require.NoError(t, err)

	resp := f.do(t, http.MethodGet, "/templates/"+templateID+"/versions/1?includeVendors=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	mappings, ok := body["vendorMappings"].([]any)
	require.True(t, ok)
	require.Len(t, mappings, 1)
	first := mappings[0].(map[string]any)
	assert.Equal(t, "acme", first["vendor"])
}

func TestSearchEndpoints(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/templates", createPayload("STATEMENT")).StatusCode)

	resp := f.do(t, http.MethodGet, "/templates/search/latest?templateType=STATEMENT", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "Monthly Statement", body["templateName"])

	resp = f.do(t, http.MethodGet, "/templates/search/by-type?templateType=STATEMENT&templateVersion=1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/templates/search/active?lineOfBusiness=BANKING", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	active := decode[[]map[string]any](t, resp)
	assert.Len(t, active, 1)

	resp = f.do(t, http.MethodGet, "/templates/search/latest", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
