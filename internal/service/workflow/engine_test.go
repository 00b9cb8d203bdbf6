package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-orders/internal/constants"
	"crm-orders/internal/notify"
	"crm-orders/internal/storage"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) UpdateDeadline(ctx context.Context, req storage.DeadlineUpdate) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockGateway) CreateRawMaterialsByOrder(ctx context.Context, req storage.RawMaterialsPayload) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockGateway) CreateDeadlineByOrder(ctx context.Context, req storage.DeadlinesPayload) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockGateway) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(gw Gateway) (*Engine, *notify.Queue) {
	q := notify.NewQueue(time.Hour, notify.DefaultVisibleLimit)
	return NewEngine(gw, q, testLogger(), nil), q
}

func TestEngine_UpdateMainDeadline_ResubmitIsNotDeduplicated(t *testing.T) {
	gw := new(MockGateway)
	engine, q := newTestEngine(gw)

	want := storage.DeadlineUpdate{ID: 5, Start: "2025-01-01", End: "2025-01-31"}
	gw.On("UpdateDeadline", mock.Anything, want).Return(nil).Twice()

	require.NoError(t, engine.UpdateMainDeadline(context.Background(), 5, "2025-01-01", "2025-01-31"))
	require.NoError(t, engine.UpdateMainDeadline(context.Background(), 5, "2025-01-01", "2025-01-31"))

	gw.AssertNumberOfCalls(t, "UpdateDeadline", 2)

	visible := q.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, notify.KindSuccess, visible[0].Kind)
	assert.Equal(t, notify.KindSuccess, visible[1].Kind)
}

func TestEngine_UpdateMainDeadline_InvalidSendsNothing(t *testing.T) {
	gw := new(MockGateway)
	engine, q := newTestEngine(gw)

	err := engine.UpdateMainDeadline(context.Background(), 5, "2025-01-31", "2025-01-01")
	assert.ErrorIs(t, err, ErrValidation)

	gw.AssertNotCalled(t, "UpdateDeadline", mock.Anything, mock.Anything)
	require.Len(t, q.Visible(), 1)
	assert.Equal(t, notify.KindWarning, q.Visible()[0].Kind)
}

func TestEngine_UpdateMainDeadline_RemoteFailure(t *testing.T) {
	gw := new(MockGateway)
	engine, q := newTestEngine(gw)

	gw.On("UpdateDeadline", mock.Anything, mock.Anything).Return(errors.New("502 bad gateway")).Once()

	err := engine.UpdateMainDeadline(context.Background(), 5, "2025-01-01", "2025-01-31")
	assert.ErrorIs(t, err, ErrRemote)
	assert.NotErrorIs(t, err, ErrValidation)

	visible := q.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, notify.KindError, visible[0].Kind)
	assert.Equal(t, msgGenericFailure, visible[0].Message)
}

func TestEngine_SaveRawMaterials_SendsOnlyCompleteRows(t *testing.T) {
	gw := new(MockGateway)
	engine, _ := newTestEngine(gw)

	want := storage.RawMaterialsPayload{
		OrderID: 11,
		Items:   []storage.RawMaterialItem{{RawMaterial: "Steel", Qty: "5"}},
	}
	gw.On("CreateRawMaterialsByOrder", mock.Anything, want).Return(nil).Once()

	saved, err := engine.SaveRawMaterials(context.Background(), 11, []storage.RawMaterial{
		{MaterialName: "Steel", Quantity: "5"},
		{MaterialName: "", Quantity: "3"},
	})
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	gw.AssertExpectations(t)
}

func TestEngine_SaveRawMaterials_AllEmptyZeroCalls(t *testing.T) {
	gw := new(MockGateway)
	engine, _ := newTestEngine(gw)

	_, err := engine.SaveRawMaterials(context.Background(), 11, []storage.RawMaterial{{}, {}})
	assert.ErrorIs(t, err, ErrValidation)

	gw.AssertNotCalled(t, "CreateRawMaterialsByOrder", mock.Anything, mock.Anything)
}

func TestEngine_SaveInternalDeadlines_Payload(t *testing.T) {
	gw := new(MockGateway)
	engine, _ := newTestEngine(gw)

	want := storage.DeadlinesPayload{
		OrderID: 3,
		Items: []storage.DeadlineItem{
			{Name: "Cutting", StartAt: "2025-01-02", EndAt: "2025-01-04", Status: constants.DeadlineCompleted},
			{Name: "Welding", StartAt: "2025-01-05", EndAt: "2025-01-09", Status: constants.DeadlineDelayed, DelayReason: "no argon"},
		},
	}
	gw.On("CreateDeadlineByOrder", mock.Anything, want).Return(nil).Once()

	_, err := engine.SaveInternalDeadlines(context.Background(), 3, january, []storage.InternalDeadline{
		{ID: "a", Name: "Cutting", StartAt: "2025-01-02", EndAt: "2025-01-04", Status: constants.DeadlineCompleted, DelayReason: "ignored"},
		{ID: "b", Name: "Welding", StartAt: "2025-01-05", EndAt: "2025-01-09", Status: constants.DeadlineDelayed, DelayReason: "no argon"},
	})
	require.NoError(t, err)

	gw.AssertExpectations(t)
}

func TestEngine_SendToWarehouse(t *testing.T) {
	gw := new(MockGateway)
	engine, q := newTestEngine(gw)

	gw.On("UpdateOrderStatus", mock.Anything, int64(8), constants.OrderStatusWaitingForRawMaterial).Return(nil).Once()

	require.NoError(t, engine.SendToWarehouse(context.Background(), 8))
	assert.Equal(t, msgSentToWarehouse, q.Visible()[0].Message)
}
