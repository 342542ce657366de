package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("refresh: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error no snapshot",
			err:        ErrNoSnapshot,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeNoSnapshot,
		},
		{
			name:       "api validation error",
			err:        ErrValidation("from", "bad date"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "transport failure",
			err:        NewTransportError("GET failed", fmt.Errorf("connection refused")),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeUpstreamUnavailable,
		},
		{
			name:       "wrapped storage failure",
			err:        fmt.Errorf("upsert: %w", NewStorageError("write history", nil)),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeStorage,
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			rec := httptest.NewRecorder()
			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/dashboard", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_NilErrorWritesNothing(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, rec.Body.Len())
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	rec := httptest.NewRecorder()
	h.HandlePanic(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/refresh", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "nil map")
	testutil.AssertLogContains(t, logs, "panic recovered")
}

func TestProblemDetails_MarshalJSONKeepsStandardFields(t *testing.T) {
	p := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "missing", "/x").
		WithExtension("status", "overridden?").
		WithExtension("trace_id", "abc")

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.Equal(t, "abc", body["trace_id"])
}
