package templates

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"templatehub/internal/audit"
	"templatehub/internal/cache"
	templatedao "templatehub/internal/template/dao"
	templatehandler "templatehub/internal/template/handler"
	templateservice "templatehub/internal/template/service"
	templatestore "templatehub/internal/template/store"
	httptransport "templatehub/internal/transport/http"
	vendordao "templatehub/internal/vendormapping/dao"
	vendorhandler "templatehub/internal/vendormapping/handler"
	vendorservice "templatehub/internal/vendormapping/service"
	vendorstore "templatehub/internal/vendormapping/store"
	"templatehub/pkg/testutil"
)

// newStack wires the full HTTP surface over the in-memory stores, the same
// assembly cmd/server performs minus PostgreSQL and Kafka.
func newStack(t *testing.T) http.Handler {
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

	ops := httptransport.NewOpsHandler(logger, nil, tplDAO, vdrDAO)
	return httptransport.NewRouter(ops,
		templatehandler.New(templates, vendors, logger, nil, nil, templatehandler.PageConfig{}),
		vendorhandler.New(vendors, templates, logger, nil, nil, vendorhandler.PageConfig{}),
	)
}

func TestTemplateVendorFlow(t *testing.T) {
	router := newStack(t)

	var templateID string
	var vendorID string

	testutil.Given(t, "a published statement template", func(t *testing.T) {
		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/templates", map[string]any{
			"templateName": "Monthly Statement",
			"templateType": "STATEMENT",
			"activeFlag":   true,
		}), "alice")
		req = testutil.WithCorrelationID(req, "e2e-corr-1")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		if got := rr.Header().Get("X-Correlation-Id"); got != "e2e-corr-1" {
			t.Fatalf("expected correlation id echoed, got %q", got)
		}
		created := testutil.UnmarshalResponse[map[string]any](t, rr)
		templateID = (*created)["masterTemplateId"].(string)

		testutil.When(t, "mapping a generation vendor to it", func(t *testing.T) {
			req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/templates/vendors", map[string]any{
				"masterTemplateId": templateID,
				"templateVersion":  1,
				"vendor":           "acme",
				"vendorType":       "GENERATION",
				"primaryFlag":      true,
			}), "alice")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusCreated)
			mapping := testutil.UnmarshalResponse[map[string]any](t, rr)
			vendorID = (*mapping)["templateVendorId"].(string)

			testutil.Then(t, "the routing endpoint resolves it", func(t *testing.T) {
				req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodGet,
					"/templates/vendors/routing?templateId="+templateID+"&templateVersion=1&vendorType=GENERATION", nil), "alice")
				rr := testutil.DoRequest(router, req)
				testutil.AssertStatus(t, rr, http.StatusOK)
				ordered := testutil.UnmarshalResponse[[]map[string]any](t, rr)
				if len(*ordered) != 1 || (*ordered)[0]["vendor"] != "acme" {
					t.Fatalf("expected acme as the only routing candidate, got %v", *ordered)
				}
			})

			testutil.Then(t, "the template read embeds the mapping", func(t *testing.T) {
				req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodGet,
					"/templates/"+templateID+"/versions/1?includeVendors=true", nil), "alice")
				rr := testutil.DoRequest(router, req)
				testutil.AssertStatus(t, rr, http.StatusOK)
				tpl := testutil.UnmarshalResponse[map[string]any](t, rr)
				vendorSummaries, ok := (*tpl)["vendorMappings"].([]any)
				if !ok || len(vendorSummaries) != 1 {
					t.Fatalf("expected one embedded vendor mapping, got %v", (*tpl)["vendorMappings"])
				}
			})
		})

		testutil.When(t, "the vendor goes down", func(t *testing.T) {
			req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPut,
				"/templates/vendors/"+vendorID+"/health",
				map[string]any{"vendorStatus": "DOWN", "healthStatus": "probe timeout"}), "monitor")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusNoContent)

			testutil.Then(t, "routing excludes it", func(t *testing.T) {
				req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodGet,
					"/templates/vendors/routing?templateId="+templateID+"&templateVersion=1&vendorType=GENERATION", nil), "alice")
				rr := testutil.DoRequest(router, req)
				testutil.AssertStatus(t, rr, http.StatusOK)
				ordered := testutil.UnmarshalResponse[[]map[string]any](t, rr)
				if len(*ordered) != 0 {
					t.Fatalf("expected no routing candidates, got %v", *ordered)
				}
			})
		})

		testutil.When(t, "archiving the template version", func(t *testing.T) {
			req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodDelete,
				"/templates/"+templateID+"/versions/1", nil), "alice")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusNoContent)

			testutil.Then(t, "reads return not found", func(t *testing.T) {
				req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodGet,
					"/templates/"+templateID+"/versions/1", nil), "alice")
				rr := testutil.DoRequest(router, req)
				testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "NOT_FOUND")
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	router := newStack(t)

	testutil.Given(t, "the assembled router", func(t *testing.T) {
		testutil.When(t, "probing liveness", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
			testutil.AssertStatus(t, rr, http.StatusOK)
		})
		testutil.When(t, "reading cache stats", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/internal/cache/stats", nil))
			testutil.AssertStatus(t, rr, http.StatusOK)
			stats := testutil.UnmarshalResponse[[]map[string]any](t, rr)
			if len(*stats) == 0 {
				t.Fatal("expected cache stats from both daos")
			}
		})
		testutil.When(t, "scraping metrics", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
			testutil.AssertStatus(t, rr, http.StatusOK)
		})
	})
}
