package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"crm-orders/internal/constants"
	"crm-orders/internal/service/loader"
	"crm-orders/internal/storage"
)

var (
	ErrBusy               = errors.New("operation already in progress")
	ErrClosed             = errors.New("session closed")
	ErrNotReady           = errors.New("order is not loaded")
	ErrUnknownItem        = errors.New("unknown item")
	ErrHandoffUnavailable = errors.New("send to warehouse is not available")
	ErrNoPendingHandoff   = errors.New("send to warehouse was not requested")
)

type State int

const (
	StateLoading State = iota
	StateReady
	StateEmpty
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type AggregateLoader interface {
	Load(ctx context.Context, orderID int64) (*loader.Aggregate, error)
}

type Options struct {
	// EmptyRetryDelay: пауза перед единственным повтором, если заказ пришёл пустым.
	// 0: не повторять.
	EmptyRetryDelay time.Duration
}

// RawMaterialRow: строка сырья с режимом ввода, вычисленным при чтении.
type RawMaterialRow struct {
	storage.RawMaterial
	Mode Mode `json:"inputMode"`
}

// Session: состояние одного открытого окна заказа. Разные операции могут идти
// параллельно, одна и та же: нет (ErrBusy). После Close результаты запросов,
// вернувшихся позже, отбрасываются.
type Session struct {
	engine  *Engine
	loader  AggregateLoader
	orderID int64
	opts    Options

	mu                    sync.Mutex
	state                 State
	order                 *storage.Order
	mainDeadline          storage.MainDeadline
	rawMaterials          []storage.RawMaterial
	deadlines             []storage.InternalDeadline
	catalog               []storage.CatalogMaterial
	persistedRawMaterials int
	orderStatus           string
	busy                  map[string]bool
	errs                  map[string]string
	handoffPending        bool
	closed                bool
}

func NewSession(engine *Engine, ld AggregateLoader, orderID int64, opts Options) *Session {
	return &Session{
		engine:  engine,
		loader:  ld,
		orderID: orderID,
		opts:    opts,
		state:   StateLoading,
		busy:    make(map[string]bool),
		errs:    make(map[string]string),
	}
}

// Open создаёт сессию и сразу загружает заказ. Итог загрузки: в State().
func Open(ctx context.Context, engine *Engine, ld AggregateLoader, orderID int64, opts Options) *Session {
	s := NewSession(engine, ld, orderID, opts)
	_ = s.Reload(ctx)
	return s
}

// Reload загружает агрегат заново. Пустой ответ повторяется один раз через
// EmptyRetryDelay, после чего сессия переходит в StateEmpty.
func (s *Session) Reload(ctx context.Context) error {
	const op = "workflow.Session.Reload"

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = StateLoading
	s.mu.Unlock()

	agg, err := s.loader.Load(ctx, s.orderID)
	if errors.Is(err, loader.ErrEmptyAggregate) && s.opts.EmptyRetryDelay > 0 {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(s.opts.EmptyRetryDelay):
			agg, err = s.loader.Load(ctx, s.orderID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	switch {
	case err == nil:
		s.apply(agg)
		s.state = StateReady
		return nil
	case errors.Is(err, loader.ErrEmptyAggregate):
		s.state = StateEmpty
		return err
	default:
		s.state = StateFailed
		s.engine.failed(op, "loadOrder", s.orderID, err)
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *Session) apply(agg *loader.Aggregate) {
	s.order = agg.Order
	s.mainDeadline = agg.MainDeadline
	s.rawMaterials = agg.RawMaterials
	s.deadlines = agg.InternalDeadlines
	s.catalog = agg.Catalog
	s.persistedRawMaterials = len(agg.RawMaterials)
	s.orderStatus = agg.Order.OrderStatus
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) OrderID() int64 { return s.orderID }

// Order: снимок заказа (лид, смета) только для чтения.
func (s *Session) Order() *storage.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order
}

func (s *Session) OrderStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderStatus
}

func (s *Session) MainDeadline() storage.MainDeadline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mainDeadline
}

func (s *Session) Busy(operation string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[operation]
}

// LastError: текст ошибки последнего запуска операции; перезаписывается каждым запуском.
func (s *Session) LastError(operation string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[operation]
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.handoffPending = false
	s.mu.Unlock()
}

// --- сырьё ---

func (s *Session) RawMaterials() []RawMaterialRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]RawMaterialRow, 0, len(s.rawMaterials))
	for _, rm := range s.rawMaterials {
		rows = append(rows, RawMaterialRow{RawMaterial: rm, Mode: DeriveMode(rm.MaterialName, s.catalog)})
	}
	return rows
}

func (s *Session) Catalog() []storage.CatalogMaterial {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.CatalogMaterial(nil), s.catalog...)
}

func (s *Session) AddRawMaterial() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rm := storage.RawMaterial{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	s.rawMaterials = append(s.rawMaterials, rm)
	return rm.ID
}

func (s *Session) SetRawMaterial(id, name, quantity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rawMaterials {
		if s.rawMaterials[i].ID == id {
			s.rawMaterials[i].MaterialName = name
			s.rawMaterials[i].Quantity = quantity
			s.rawMaterials[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("raw material %s: %w", id, ErrUnknownItem)
}

func (s *Session) RemoveRawMaterial(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rawMaterials {
		if s.rawMaterials[i].ID == id {
			s.rawMaterials = append(s.rawMaterials[:i], s.rawMaterials[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("raw material %s: %w", id, ErrUnknownItem)
}

// --- внутренние сроки ---

func (s *Session) InternalDeadlines() []storage.InternalDeadline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.InternalDeadline(nil), s.deadlines...)
}

func (s *Session) AddInternalDeadline() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	d := storage.InternalDeadline{ID: uuid.NewString(), Status: constants.DeadlinePending, CreatedAt: now, UpdatedAt: now}
	s.deadlines = append(s.deadlines, d)
	return d.ID
}

// SetInternalDeadline заменяет строку с тем же ID.
func (s *Session) SetInternalDeadline(d storage.InternalDeadline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.deadlines {
		if s.deadlines[i].ID == d.ID {
			d.CreatedAt = s.deadlines[i].CreatedAt
			d.UpdatedAt = time.Now()
			s.deadlines[i] = d
			return nil
		}
	}
	return fmt.Errorf("internal deadline %s: %w", d.ID, ErrUnknownItem)
}

func (s *Session) RemoveInternalDeadline(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.deadlines {
		if s.deadlines[i].ID == id {
			s.deadlines = append(s.deadlines[:i], s.deadlines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("internal deadline %s: %w", id, ErrUnknownItem)
}

// --- операции ---

// begin помечает операцию занятой. Вызывается под мьютексом.
func (s *Session) begin(operation string) error {
	if s.closed {
		return ErrClosed
	}
	if s.state != StateReady {
		return ErrNotReady
	}
	if s.busy[operation] {
		return ErrBusy
	}
	s.busy[operation] = true
	return nil
}

// finish снимает флаг и сохраняет текст ошибки. Возвращает false, если окно уже
// закрыто и результат нужно выбросить. Вызывается под мьютексом.
func (s *Session) finish(operation string, err error) bool {
	delete(s.busy, operation)
	if s.closed {
		return false
	}
	if err != nil {
		s.errs[operation] = err.Error()
	} else {
		s.errs[operation] = ""
	}
	return true
}

func (s *Session) UpdateMainDeadline(ctx context.Context, start, end string) error {
	s.mu.Lock()
	if err := s.begin(OpMainDeadline); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	err := s.engine.UpdateMainDeadline(ctx, s.orderID, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finish(OpMainDeadline, err) && err == nil {
		s.mainDeadline = storage.MainDeadline{Start: start, End: end}
	}
	return err
}

func (s *Session) SaveRawMaterials(ctx context.Context) error {
	s.mu.Lock()
	if err := s.begin(OpRawMaterials); err != nil {
		s.mu.Unlock()
		return err
	}
	items := append([]storage.RawMaterial(nil), s.rawMaterials...)
	s.mu.Unlock()

	saved, err := s.engine.SaveRawMaterials(ctx, s.orderID, items)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finish(OpRawMaterials, err) && err == nil {
		s.persistedRawMaterials = len(saved)
	}
	return err
}

func (s *Session) SaveInternalDeadlines(ctx context.Context) error {
	s.mu.Lock()
	if err := s.begin(OpInternalDeadlines); err != nil {
		s.mu.Unlock()
		return err
	}
	items := append([]storage.InternalDeadline(nil), s.deadlines...)
	main := s.mainDeadline
	s.mu.Unlock()

	_, err := s.engine.SaveInternalDeadlines(ctx, s.orderID, main, items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish(OpInternalDeadlines, err)
	return err
}

func (s *Session) CanSendToWarehouse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSendToWarehouse()
}

func (s *Session) canSendToWarehouse() bool {
	return !s.closed && s.state == StateReady && CanSendToWarehouse(s.persistedRawMaterials, s.orderStatus)
}

func (s *Session) HandoffPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handoffPending
}

// RequestWarehouseHandoff: первый шаг: открыть подтверждение.
func (s *Session) RequestWarehouseHandoff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.canSendToWarehouse() {
		return ErrHandoffUnavailable
	}
	s.handoffPending = true
	return nil
}

func (s *Session) CancelWarehouseHandoff() {
	s.mu.Lock()
	s.handoffPending = false
	s.mu.Unlock()
}

// ConfirmWarehouseHandoff: второй шаг. Успех ставит статус "1" и закрывает окно,
// ошибка оставляет окно открытым и статус прежним.
func (s *Session) ConfirmWarehouseHandoff(ctx context.Context) error {
	s.mu.Lock()
	if !s.handoffPending {
		s.mu.Unlock()
		return ErrNoPendingHandoff
	}
	if !s.canSendToWarehouse() {
		s.handoffPending = false
		s.mu.Unlock()
		return ErrHandoffUnavailable
	}
	if err := s.begin(OpSendToWarehouse); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	err := s.engine.SendToWarehouse(ctx, s.orderID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handoffPending = false
	if s.finish(OpSendToWarehouse, err) && err == nil {
		s.orderStatus = constants.OrderStatusWaitingForRawMaterial
		s.closed = true
	}
	return err
}
