package save

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

	"crm-orders/internal/storage"
)

type MockRawMaterialsSaver struct {
	mock.Mock
}

func (m *MockRawMaterialsSaver) ReplaceRawMaterials(ctx context.Context, req storage.RawMaterialsPayload) error {
	return m.Called(ctx, req).Error(0)
}

func serve(saver RawMaterialsSaver, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/operation/createRawMaterialsByOrder", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	CreateRawMaterialsByOrder(slog.New(slog.NewTextHandler(io.Discard, nil)), saver).ServeHTTP(rr, req)
	return rr
}

func TestCreateRawMaterialsByOrder_DropsIncompleteRows(t *testing.T) {
	saver := new(MockRawMaterialsSaver)
	saver.On("ReplaceRawMaterials", mock.Anything, storage.RawMaterialsPayload{
		OrderID: 4,
		Items:   []storage.RawMaterialItem{{RawMaterial: "Steel", Qty: "5"}},
	}).Return(nil).Once()

	rr := serve(saver, `{"orderId": 4, "items": [{"rawMaterial": " Steel ", "qty": "5"}, {"rawMaterial": "", "qty": "2"}]}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	saver.AssertExpectations(t)
}

func TestCreateRawMaterialsByOrder_Rejected(t *testing.T) {
	cases := map[string]string{
		"bad json":    `{`,
		"no order id": `{"items": [{"rawMaterial": "Steel", "qty": "5"}]}`,
		"no items":    `{"orderId": 4, "items": []}`,
		"blank items": `{"orderId": 4, "items": [{"rawMaterial": "Steel", "qty": ""}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			saver := new(MockRawMaterialsSaver)

			rr := serve(saver, body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			saver.AssertNotCalled(t, "ReplaceRawMaterials", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateRawMaterialsByOrder_StorageErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("op: %w", storage.ErrOrderNotFound), http.StatusNotFound},
		{"failure", errors.New("tx aborted"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			saver := new(MockRawMaterialsSaver)
			saver.On("ReplaceRawMaterials", mock.Anything, mock.Anything).Return(tc.err).Once()

			rr := serve(saver, `{"orderId": 4, "items": [{"rawMaterial": "Steel", "qty": "5"}]}`)

			assert.Equal(t, tc.want, rr.Code)
		})
	}
}
