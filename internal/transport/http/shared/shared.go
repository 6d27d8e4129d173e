// Package shared holds the response helpers every handler uses, so the
// mapping from domain error codes to HTTP statuses lives in one place.
package shared

import (
	"context"
	"encoding/json"
	"net/http"

	dErrors "templatehub/pkg/domain-errors"
	"templatehub/pkg/requestcontext"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into an HTTP response. Internal
// failures get a generic message so store details never reach clients. The
// correlation id rides along so clients can quote it in support requests.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal {
		message = "internal error"
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorBody{
		Code:      string(code),
		Message:   message,
		RequestID: requestcontext.RequestID(ctx),
	})
}
