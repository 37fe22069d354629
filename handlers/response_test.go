package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkingreserve/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRespondError(t *testing.T, err error) (int, APIResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, err)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInvalidInterval, http.StatusBadRequest, "ERR_INVALID_INTERVAL"},
		{services.ErrLocationNotFound, http.StatusNotFound, "ERR_LOCATION_NOT_FOUND"},
		{services.ErrReservationNotFound, http.StatusNotFound, "ERR_NOT_FOUND"},
		{services.ErrCapacityExceeded, http.StatusConflict, "ERR_CAPACITY_EXCEEDED"},
		{services.ErrNoCapacity, http.StatusConflict, "ERR_NO_CAPACITY"},
		{services.ErrCheckInWindow, http.StatusUnprocessableEntity, "ERR_CHECK_IN_WINDOW"},
		{services.ErrInsufficientFunds, http.StatusPaymentRequired, "ERR_INSUFFICIENT_FUNDS"},
		{services.ErrForbidden, http.StatusForbidden, "ERR_FORBIDDEN"},
		{services.ErrTransactionConflict, http.StatusServiceUnavailable, "ERR_TRANSACTION_CONFLICT"},
		{fmt.Errorf("wrapped: %w", services.ErrStoreUnavailable), http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, resp := runRespondError(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
			assert.False(t, resp.Status)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestRespondErrorKeepsReason(t *testing.T) {
	_, resp := runRespondError(t, services.ErrInvalidTransition)
	assert.Equal(t, "invalid reservation status transition", resp.Error)

	// 非業務錯誤不外洩內部訊息
	_, resp = runRespondError(t, errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	assert.Equal(t, "internal server error", resp.Error)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2026-03-01T10:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = parseTime("2026-03-01T18:00:00+08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	_, err = parseTime("2026/03/01 10:00")
	assert.Error(t, err)
	_, err = parseTime("")
	assert.Error(t, err)
}
