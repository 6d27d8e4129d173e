package testutil

import "net/http"

// AsUser stamps the dev-mode identity header on the request, simulating what
// an authenticated caller looks like when JWT auth is disabled.
func AsUser(req *http.Request, user string) *http.Request {
	req.Header.Set("X-User-Id", user)
	return req
}

// WithCorrelationID sets a caller-supplied correlation id, which the request
// id middleware honors instead of generating one.
func WithCorrelationID(req *http.Request, id string) *http.Request {
	req.Header.Set("X-Correlation-Id", id)
	return req
}
