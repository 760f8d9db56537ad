package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/account-auth/internal/service"
	"github.com/pribylovaa/account-auth/internal/token"
)

func TestToHTTP_Mapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"invalid_credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"missing_token", service.ErrMissingToken, http.StatusUnauthorized, "missing_token"},
		{"invalid_token", service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"wrong_current", ErrWrongCurrentPassword, http.StatusBadRequest, "invalid_current_password"},
		{"mismatch", service.ErrPasswordMismatch, http.StatusBadRequest, "password_mismatch"},
		{"email", service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
		{"weak", service.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{"invalid_input", service.ErrInvalidInput, http.StatusBadRequest, "invalid_argument"},
		{"bad_request", ErrBadRequest, http.StatusBadRequest, "invalid_argument"},
		{"login_taken", service.ErrLoginTaken, http.StatusConflict, "login_taken"},
		{"email_taken", service.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(fmt.Errorf("service.op: %w", tc.in))
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

// TestToHTTP_TokenCauseDoesNotLeak — причина отказа токена остаётся во
// внутренней ошибке, клиент видит только invalid_token.
func TestToHTTP_TokenCauseDoesNotLeak(t *testing.T) {
	err := fmt.Errorf("service.auth.Refresh: %w: %w", service.ErrInvalidToken, token.ErrTokenExpired)

	gotStatus, resp := ToHTTP(err)
	require.Equal(t, http.StatusUnauthorized, gotStatus)
	require.Equal(t, "invalid_token", resp.Error.Code)
	require.NotContains(t, resp.Error.Message, "expired")
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, req, service.ErrInvalidCredentials)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "invalid_credentials", resp.Error.Code)
	require.Equal(t, "rid-1", resp.Error.RequestID)
}
