package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeNotFound, "template not found")
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	inner := New(CodeConflict, "duplicate mapping")
	outer := fmt.Errorf("create vendor mapping: %w", inner)
	assert.True(t, HasCode(outer, CodeConflict))
}

func TestWrap(t *testing.T) {
	require.Nil(t, Wrap(nil, CodeInternal, "ignored"))

	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unavailable")
	assert.True(t, HasCode(err, CodeUnavailable))
	assert.ErrorIs(t, err, cause)
}

func TestMessageOf_NeverLeaksInternals(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("pq: password authentication failed")))
	assert.Equal(t, "store unavailable", MessageOf(Wrap(errors.New("pq: timeout"), CodeUnavailable, "store unavailable")))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), string(tt.code))
	}
}
