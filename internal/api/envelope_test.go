package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/inkwell/tagstore/internal/errors"
)

func TestEnvelopeTransformer(t *testing.T) {
	t.Run("wraps success bodies", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "200", map[string]string{"k": "v"})
		require.NoError(t, err)

		env, ok := out.(APIEnvelope)
		require.True(t, ok)
		assert.Equal(t, EnvelopeVersion, env.Version)
		assert.True(t, env.Success)
		assert.Equal(t, map[string]string{"k": "v"}, env.Data)
	})

	t.Run("marks 4xx bodies unsuccessful", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "404", "gone")
		require.NoError(t, err)
		assert.False(t, out.(APIEnvelope).Success)
	})

	t.Run("coded errors use the error envelope", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "409", &APIError{
			status:  http.StatusConflict,
			Code:    "CONFLICT",
			Message: "taken",
		})
		require.NoError(t, err)

		env, ok := out.(APIErrorEnvelope)
		require.True(t, ok)
		assert.False(t, env.Success)
		assert.Equal(t, "CONFLICT", env.Code)
		assert.Equal(t, "taken", env.Message)
	})

	t.Run("uncoded errors carry the message", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "500", &APIError{status: 500, Message: "boom"})
		require.NoError(t, err)
		assert.Equal(t, APIEnvelope{Version: EnvelopeVersion, Error: "boom"}, out)
	})

	t.Run("envelopes pass through", func(t *testing.T) {
		in := APIEnvelope{Version: EnvelopeVersion, Success: true, Data: 1}
		out, err := EnvelopeTransformer(nil, "200", in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestNewAPIError(t *testing.T) {
	t.Run("domain error keeps its code", func(t *testing.T) {
		wrapped := fmt.Errorf("lookup: %w", domainerrors.NotFound("tag not found"))
		se := newAPIError(http.StatusInternalServerError, "unexpected", wrapped)

		apiErr, ok := se.(*APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.GetStatus())
		assert.Equal(t, "NOT_FOUND", apiErr.Code)
		assert.Equal(t, "tag not found", apiErr.Message)
	})

	t.Run("plain errors map from status", func(t *testing.T) {
		tests := []struct {
			status int
			code   string
		}{
			{http.StatusBadRequest, "VALIDATION"},
			{http.StatusUnprocessableEntity, "VALIDATION"},
			{http.StatusNotFound, "NOT_FOUND"},
			{http.StatusConflict, "CONFLICT"},
			{http.StatusTooManyRequests, "RATE_LIMITED"},
			{http.StatusServiceUnavailable, "UNAVAILABLE"},
			{http.StatusTeapot, "INTERNAL"},
		}
		for _, tt := range tests {
			se := newAPIError(tt.status, "msg")
			assert.Equal(t, tt.status, se.GetStatus())
			assert.Equal(t, tt.code, se.(*APIError).Code)
		}
	})

	t.Run("client errors list details", func(t *testing.T) {
		se := newAPIError(http.StatusUnprocessableEntity, "validation failed",
			&huma.ErrorDetail{Message: "expected string", Location: "body.name"})
		details, ok := se.(*APIError).Details.([]string)
		require.True(t, ok)
		require.Len(t, details, 1)
		assert.Contains(t, details[0], "expected string")
	})

	t.Run("server errors hide details", func(t *testing.T) {
		se := newAPIError(http.StatusInternalServerError, "unexpected", fmt.Errorf("disk on fire"))
		assert.Nil(t, se.(*APIError).Details)
	})
}

func TestRequestValidationEnvelope(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/workspaces/ws-1/tags", map[string]any{"name": 42})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())

	env := decodeError(t, resp)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.NotEmpty(t, env.Details)
}
