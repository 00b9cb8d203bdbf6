package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"crm-orders/internal/constants"
	"crm-orders/internal/storage"
)

type MockOrderUpdater struct {
	mock.Mock
}

func (m *MockOrderUpdater) UpdateDeadline(ctx context.Context, req storage.DeadlineUpdate) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockOrderUpdater) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpdateDeadline_Success(t *testing.T) {
	updater := new(MockOrderUpdater)
	updater.On("UpdateDeadline", mock.Anything, storage.DeadlineUpdate{ID: 3, Start: "2025-01-01", End: "2025-01-31"}).Return(nil).Once()

	body := `{"id": 3, "start": "2025-01-01", "end": "2025-01-31"}`
	req := httptest.NewRequest(http.MethodPut, "/api/operation/updateDeadline?id=3", strings.NewReader(body))
	rr := httptest.NewRecorder()
	UpdateDeadline(testLogger(), updater).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	updater.AssertExpectations(t)
}

func TestUpdateDeadline_BodyWithoutID(t *testing.T) {
	updater := new(MockOrderUpdater)
	updater.On("UpdateDeadline", mock.Anything, storage.DeadlineUpdate{ID: 3, Start: "2025-01-01", End: "2025-01-31"}).Return(nil).Once()

	body := `{"start": "2025-01-01", "end": "2025-01-31"}`
	req := httptest.NewRequest(http.MethodPut, "/api/operation/updateDeadline?id=3", strings.NewReader(body))
	rr := httptest.NewRecorder()
	UpdateDeadline(testLogger(), updater).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUpdateDeadline_Rejected(t *testing.T) {
	cases := []struct {
		name string
		url  string
		body string
	}{
		{"no id", "/updateDeadline", `{"start": "2025-01-01", "end": "2025-01-31"}`},
		{"bad json", "/updateDeadline?id=3", `{`},
		{"id mismatch", "/updateDeadline?id=3", `{"id": 4, "start": "2025-01-01", "end": "2025-01-31"}`},
		{"end before start", "/updateDeadline?id=3", `{"start": "2025-01-31", "end": "2025-01-01"}`},
		{"missing end", "/updateDeadline?id=3", `{"start": "2025-01-01"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updater := new(MockOrderUpdater)

			req := httptest.NewRequest(http.MethodPut, tc.url, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			UpdateDeadline(testLogger(), updater).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			updater.AssertNotCalled(t, "UpdateDeadline", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateDeadline_NotFound(t *testing.T) {
	updater := new(MockOrderUpdater)
	updater.On("UpdateDeadline", mock.Anything, mock.Anything).Return(fmt.Errorf("op: %w", storage.ErrOrderNotFound)).Once()

	req := httptest.NewRequest(http.MethodPut, "/updateDeadline?id=3", strings.NewReader(`{"start": "2025-01-01", "end": "2025-01-31"}`))
	rr := httptest.NewRecorder()
	UpdateDeadline(testLogger(), updater).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	cases := []struct {
		name     string
		storeErr error
		want     int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", fmt.Errorf("op: %w", storage.ErrOrderNotFound), http.StatusNotFound},
		{"no raw materials", fmt.Errorf("op: %w", storage.ErrNoRawMaterials), http.StatusConflict},
		{"storage failure", errors.New("deadlock"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updater := new(MockOrderUpdater)
			updater.On("UpdateOrderStatus", mock.Anything, int64(5), constants.OrderStatusWaitingForRawMaterial).Return(tc.storeErr).Once()

			req := httptest.NewRequest(http.MethodPut, "/updateOrderStatus?id=5&status=1", nil)
			rr := httptest.NewRecorder()
			UpdateOrderStatus(testLogger(), updater).ServeHTTP(rr, req)

			assert.Equal(t, tc.want, rr.Code)
			updater.AssertExpectations(t)
		})
	}
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	updater := new(MockOrderUpdater)

	req := httptest.NewRequest(http.MethodPut, "/updateOrderStatus?id=5&status=9", nil)
	rr := httptest.NewRecorder()
	UpdateOrderStatus(testLogger(), updater).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	updater.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
}
