package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "templatehub/pkg/domain-errors"
	"templatehub/pkg/requestcontext"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "not found",
			err:         dErrors.New(dErrors.CodeNotFound, "template not found"),
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "template not found",
		},
		{
			name:        "conflict",
			err:         dErrors.New(dErrors.CodeConflict, "duplicate mapping"),
			wantStatus:  http.StatusConflict,
			wantCode:    "CONFLICT",
			wantMessage: "duplicate mapping",
		},
		{
			name:        "internal error hides detail",
			err:         dErrors.New(dErrors.CodeInternal, "pq: connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL",
			wantMessage: "internal error",
		},
		{
			name:        "uncoded error maps to internal",
			err:         errors.New("pq: connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL",
			wantMessage: "internal error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), w, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.wantCode, body["code"])
			assert.Equal(t, tc.wantMessage, body["message"])
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]int{"templateVersion": 2})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"templateVersion": 2}`, w.Body.String())
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	w := httptest.NewRecorder()
	WriteError(ctx, w, dErrors.New(dErrors.CodeNotFound, "template not found"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "req-42", body["requestId"])
}
