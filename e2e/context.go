package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// TestContext drives a running templatehub instance over HTTP and captures
// the last response for step assertions.
type TestContext struct {
	baseURL string
	client  *http.Client
	user    string

	lastStatus int
	lastBody   map[string]any
	lastList   []map[string]any

	templateID string
	vendorID   string
}

// NewTestContext reads the target base URL from TEMPLATEHUB_E2E_BASE_URL,
// defaulting to a local instance.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("TEMPLATEHUB_E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		user:    "e2e-runner",
	}
}

// Do sends a request and captures status and decoded body. A JSON array
// response lands in the list capture, an object in the body capture.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-Id", tc.user)

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	tc.lastList = nil

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, &tc.lastList)
	}
	return json.Unmarshal(raw, &tc.lastBody)
}

// LastStatus returns the status code of the last response.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// ResponseField returns a top-level field of the last object response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no object response captured")
	}
	value, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q", field)
	}
	return value, nil
}

// ResponseList returns the last array response.
func (tc *TestContext) ResponseList() ([]map[string]any, error) {
	if tc.lastList == nil {
		return nil, fmt.Errorf("no array response captured")
	}
	return tc.lastList, nil
}

// TemplateID and VendorID carry identifiers between steps.
func (tc *TestContext) TemplateID() string      { return tc.templateID }
func (tc *TestContext) SetTemplateID(id string) { tc.templateID = id }
func (tc *TestContext) VendorID() string        { return tc.vendorID }
func (tc *TestContext) SetVendorID(id string)   { tc.vendorID = id }
