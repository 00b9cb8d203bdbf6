package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crm-orders/internal/constants"
	"crm-orders/internal/service/loader"
	"crm-orders/internal/storage"
)

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, orderID int64) (*loader.Aggregate, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loader.Aggregate), args.Error(1)
}

func testAggregate(rawMaterials ...storage.RawMaterial) *loader.Aggregate {
	order := &storage.Order{
		ID:           42,
		OrderStatus:  constants.OrderStatusNew,
		Deadline:     january,
		RawMaterials: rawMaterials,
	}

	return &loader.Aggregate{
		Order:        order,
		MainDeadline: order.Deadline,
		RawMaterials: rawMaterials,
		Catalog:      []storage.CatalogMaterial{{ID: 1, Name: "Steel"}, {ID: 2, Name: "Plywood"}},
	}
}

func openSession(t *testing.T, gw *MockGateway, agg *loader.Aggregate) *Session {
	t.Helper()

	ld := new(MockLoader)
	ld.On("Load", mock.Anything, int64(42)).Return(agg, nil).Once()

	engine, _ := newTestEngine(gw)
	s := Open(context.Background(), engine, ld, 42, Options{})
	require.Equal(t, StateReady, s.State())

	return s
}

func TestSession_InputModeFollowsName(t *testing.T) {
	s := openSession(t, new(MockGateway), testAggregate(storage.RawMaterial{ID: "rm-1", MaterialName: "Steel", Quantity: "5"}))

	rows := s.RawMaterials()
	require.Len(t, rows, 1)
	assert.Equal(t, ModeSelect, rows[0].Mode)

	require.NoError(t, s.SetRawMaterial("rm-1", "Oak veneer", "5"))
	assert.Equal(t, ModeManual, s.RawMaterials()[0].Mode)

	require.NoError(t, s.SetRawMaterial("rm-1", "Plywood", "5"))
	assert.Equal(t, ModeSelect, s.RawMaterials()[0].Mode)

	assert.ErrorIs(t, s.SetRawMaterial("missing", "x", "1"), ErrUnknownItem)
}

func TestSession_WarehouseGating(t *testing.T) {
	gw := new(MockGateway)
	s := openSession(t, gw, testAggregate())

	assert.False(t, s.CanSendToWarehouse())
	assert.ErrorIs(t, s.RequestWarehouseHandoff(), ErrHandoffUnavailable)

	// несохранённые строки не включают кнопку
	id := s.AddRawMaterial()
	require.NoError(t, s.SetRawMaterial(id, "Steel", "5"))
	assert.False(t, s.CanSendToWarehouse())

	gw.On("CreateRawMaterialsByOrder", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, s.SaveRawMaterials(context.Background()))
	assert.True(t, s.CanSendToWarehouse())

	assert.ErrorIs(t, s.ConfirmWarehouseHandoff(context.Background()), ErrNoPendingHandoff)

	require.NoError(t, s.RequestWarehouseHandoff())
	assert.True(t, s.HandoffPending())

	gw.On("UpdateOrderStatus", mock.Anything, int64(42), constants.OrderStatusWaitingForRawMaterial).Return(nil).Once()
	require.NoError(t, s.ConfirmWarehouseHandoff(context.Background()))

	assert.Equal(t, constants.OrderStatusWaitingForRawMaterial, s.OrderStatus())
	assert.True(t, s.Closed())
	assert.False(t, s.CanSendToWarehouse())
}

func TestSession_HandoffFailureKeepsViewOpen(t *testing.T) {
	gw := new(MockGateway)
	s := openSession(t, gw, testAggregate(storage.RawMaterial{ID: "rm-1", MaterialName: "Steel", Quantity: "5"}))

	require.True(t, s.CanSendToWarehouse())
	require.NoError(t, s.RequestWarehouseHandoff())

	gw.On("UpdateOrderStatus", mock.Anything, int64(42), constants.OrderStatusWaitingForRawMaterial).Return(errors.New("timeout")).Once()
	err := s.ConfirmWarehouseHandoff(context.Background())

	assert.ErrorIs(t, err, ErrRemote)
	assert.False(t, s.Closed())
	assert.Equal(t, constants.OrderStatusNew, s.OrderStatus())
	assert.NotEmpty(t, s.LastError(OpSendToWarehouse))
	assert.True(t, s.CanSendToWarehouse())
}

func TestSession_MainDeadlineKeptOnFailure(t *testing.T) {
	gw := new(MockGateway)
	s := openSession(t, gw, testAggregate())

	gw.On("UpdateDeadline", mock.Anything, mock.Anything).Return(errors.New("500")).Once()
	require.Error(t, s.UpdateMainDeadline(context.Background(), "2025-03-01", "2025-03-31"))
	assert.Equal(t, january, s.MainDeadline())

	gw.On("UpdateDeadline", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, s.UpdateMainDeadline(context.Background(), "2025-03-01", "2025-03-31"))
	assert.Equal(t, storage.MainDeadline{Start: "2025-03-01", End: "2025-03-31"}, s.MainDeadline())
	assert.Empty(t, s.LastError(OpMainDeadline))
}

func TestSession_LastErrorIsOverwritten(t *testing.T) {
	gw := new(MockGateway)
	s := openSession(t, gw, testAggregate())

	id := s.AddInternalDeadline()
	require.Error(t, s.SaveInternalDeadlines(context.Background()))
	assert.Contains(t, s.LastError(OpInternalDeadlines), "internal deadline #1")

	require.NoError(t, s.SetInternalDeadline(storage.InternalDeadline{
		ID: id, Name: "Cutting", StartAt: "2025-01-02", EndAt: "2025-01-03", Status: constants.DeadlineOngoing,
	}))
	gw.On("CreateDeadlineByOrder", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, s.SaveInternalDeadlines(context.Background()))
	assert.Empty(t, s.LastError(OpInternalDeadlines))
}

func TestSession_SameOperationIsBusy(t *testing.T) {
	gw := new(MockGateway)
	s := openSession(t, gw, testAggregate())

	release := make(chan struct{})
	started := make(chan struct{})
	gw.On("UpdateDeadline", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- s.UpdateMainDeadline(context.Background(), "2025-01-01", "2025-01-31")
	}()

	<-started
	assert.True(t, s.Busy(OpMainDeadline))
	assert.ErrorIs(t, s.UpdateMainDeadline(context.Background(), "2025-01-01", "2025-01-31"), ErrBusy)

	// другая операция не блокируется
	gw.On("CreateRawMaterialsByOrder", mock.Anything, mock.Anything).Return(nil).Once()
	id := s.AddRawMaterial()
	require.NoError(t, s.SetRawMaterial(id, "Steel", "1"))
	require.NoError(t, s.SaveRawMaterials(context.Background()))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Busy(OpMainDeadline))
}

func TestSession_ResultAfterCloseIsDiscarded(t *testing.T) {
	gw := new(MockGateway)
	s := openSession(t, gw, testAggregate())

	release := make(chan struct{})
	started := make(chan struct{})
	gw.On("UpdateDeadline", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil).Once()

	done := make(chan error, 1)
	go func() {
		done <- s.UpdateMainDeadline(context.Background(), "2025-05-01", "2025-05-31")
	}()

	<-started
	s.Close()
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, january, s.MainDeadline())
	assert.ErrorIs(t, s.SaveRawMaterials(context.Background()), ErrClosed)
}

func TestOpen_EmptyRetriedOnceThenEmptyState(t *testing.T) {
	ld := new(MockLoader)
	ld.On("Load", mock.Anything, int64(42)).Return(nil, loader.ErrEmptyAggregate).Twice()

	engine, _ := newTestEngine(new(MockGateway))
	s := Open(context.Background(), engine, ld, 42, Options{EmptyRetryDelay: 5 * time.Millisecond})

	assert.Equal(t, StateEmpty, s.State())
	ld.AssertNumberOfCalls(t, "Load", 2)
	assert.ErrorIs(t, s.SaveRawMaterials(context.Background()), ErrNotReady)
}

func TestOpen_EmptyThenReady(t *testing.T) {
	ld := new(MockLoader)
	ld.On("Load", mock.Anything, int64(42)).Return(nil, loader.ErrEmptyAggregate).Once()
	ld.On("Load", mock.Anything, int64(42)).Return(testAggregate(), nil).Once()

	engine, _ := newTestEngine(new(MockGateway))
	s := Open(context.Background(), engine, ld, 42, Options{EmptyRetryDelay: time.Millisecond})

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, int64(42), s.Order().ID)
}

func TestOpen_NoRetryWhenDelayDisabled(t *testing.T) {
	ld := new(MockLoader)
	ld.On("Load", mock.Anything, int64(42)).Return(nil, loader.ErrEmptyAggregate).Once()

	engine, _ := newTestEngine(new(MockGateway))
	s := Open(context.Background(), engine, ld, 42, Options{})

	assert.Equal(t, StateEmpty, s.State())
	ld.AssertNumberOfCalls(t, "Load", 1)
}

func TestOpen_TransportFailure(t *testing.T) {
	ld := new(MockLoader)
	ld.On("Load", mock.Anything, int64(42)).Return(nil, errors.New("dial tcp: refused")).Once()

	engine, q := newTestEngine(new(MockGateway))
	s := Open(context.Background(), engine, ld, 42, Options{EmptyRetryDelay: time.Millisecond})

	assert.Equal(t, StateFailed, s.State())
	ld.AssertNumberOfCalls(t, "Load", 1)
	require.Len(t, q.Visible(), 1)
	assert.Equal(t, msgGenericFailure, q.Visible()[0].Message)
}
