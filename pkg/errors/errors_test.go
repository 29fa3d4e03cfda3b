package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidation("bad", nil), http.StatusBadRequest},
		{NewNotFound("order", "o-1"), http.StatusNotFound},
		{NewConflict("stale"), http.StatusConflict},
		{NewInvalidState("terminal"), http.StatusConflict},
		{NewCurrencyMismatch("USD", "EUR"), http.StatusUnprocessableEntity},
		{NewBusinessRule("EMPTY_ORDER", "empty"), http.StatusUnprocessableEntity},
		{NewForbidden("not yours"), http.StatusForbidden},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestToJSON_HidesInternalMessages(t *testing.T) {
	code, body := ToJSON(NewInternal("db password leaked", fmt.Errorf("boom")), "trace-1")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, CodeInternal, resp.Error.Code)
	assert.Equal(t, "An internal error occurred", resp.Error.Message)
	assert.Equal(t, "trace-1", resp.TraceID)
}

func TestToJSON_CarriesReasonAndDetails(t *testing.T) {
	err := NewValidation("bad quantity", map[string]interface{}{"quantity": 0}).WithReason("INVALID_QUANTITY")

	code, body := ToJSON(fmt.Errorf("wrapped: %w", err), "")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_QUANTITY", resp.Error.Reason)
	assert.NotNil(t, resp.Error.Details)
}

func TestGRPCRoundTrip(t *testing.T) {
	tests := []struct {
		err      *AppError
		grpcCode codes.Code
		back     string
	}{
		{NewValidation("bad", nil), codes.InvalidArgument, CodeValidation},
		{NewNotFound("order", "o-1"), codes.NotFound, CodeNotFound},
		{NewConflict("stale"), codes.Aborted, CodeConflict},
		{NewBusinessRule("DUPLICATE_REVIEW", "dup"), codes.FailedPrecondition, CodeInvalidState},
		{NewForbidden("no"), codes.PermissionDenied, CodeForbidden},
	}

	for _, tt := range tests {
		st := GRPCStatus(tt.err)
		assert.Equal(t, tt.grpcCode, status.Code(st))
		assert.True(t, Is(FromGRPCStatus(st), tt.back))
	}
}

func TestWrap_KeepsCodeAndReason(t *testing.T) {
	base := NewConflict("stale").WithReason("VERSION_CONFLICT")

	wrapped := Wrap(base, "failed to save order")

	assert.True(t, Is(wrapped, CodeConflict))
	assert.True(t, HasReason(wrapped, "VERSION_CONFLICT"))
	assert.Contains(t, wrapped.Message, "failed to save order")
}
