package get

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-orders/internal/storage"
)

type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) GetRawMaterials(ctx context.Context) ([]storage.CatalogMaterial, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.CatalogMaterial), args.Error(1)
}

func TestGetRawMaterials(t *testing.T) {
	provider := new(MockCatalogProvider)
	provider.On("GetRawMaterials", mock.Anything).Return([]storage.CatalogMaterial{{ID: 1, Name: "Steel"}}, nil).Once()

	rr := httptest.NewRecorder()
	GetRawMaterials(slog.New(slog.NewTextHandler(io.Discard, nil)), provider).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/warehouse/getRawMaterials", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status string                    `json:"status"`
		Data   []storage.CatalogMaterial `json:"data"`
	}
	require.NoError(t, render.DecodeJSON(rr.Body, &resp))
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, []storage.CatalogMaterial{{ID: 1, Name: "Steel"}}, resp.Data)
}

func TestGetRawMaterials_StorageError(t *testing.T) {
	provider := new(MockCatalogProvider)
	provider.On("GetRawMaterials", mock.Anything).Return(nil, errors.New("boom")).Once()

	rr := httptest.NewRecorder()
	GetRawMaterials(slog.New(slog.NewTextHandler(io.Discard, nil)), provider).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/warehouse/getRawMaterials", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
