package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"charity/internal/domain"
)

func TestFailMapsDomainKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validationf("amount must be positive"), http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("%w: donation d1", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{domain.InvalidStatef("donation is completed"), http.StatusConflict, "invalid_state"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{domain.ErrTokenMismatch, http.StatusConflict, "token_mismatch"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrGateway, http.StatusBadGateway, "gateway_error"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	a := &App{Logger: zerolog.Nop()}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		a.fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		require.Equal(t, tc.status, rr.Code, tc.err.Error())

		var body errorBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.code, body.Error.Code)
	}
}

func TestFailHidesInternalDetails(t *testing.T) {
	a := &App{Logger: zerolog.Nop()}
	rr := httptest.NewRecorder()
	a.fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), domain.Internal("load donation", errors.New("pq: password authentication failed")))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	a := &App{Logger: zerolog.Nop()}
	var v struct{ Amount int64 }

	rr := httptest.NewRecorder()
	ok := a.decode(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Amount":`)), &v)
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	require.True(t, a.decode(rr, httptest.NewRequest(http.MethodPost, "/", http.NoBody), &v), "empty body is allowed")
}

func TestReadinessReportsDependencyFailure(t *testing.T) {
	a := &App{Logger: zerolog.Nop(), Ready: func(*http.Request) error { return errors.New("db down") }}
	rr := httptest.NewRecorder()
	a.Readiness(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NotContains(t, rr.Body.String(), "db down")
}
