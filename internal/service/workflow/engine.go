package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"crm-orders/internal/constants"
	"crm-orders/internal/metrics"
	"crm-orders/internal/storage"
)

// ErrRemote помечает сбой на стороне сети/бэкенда (в отличие от ErrValidation).
var ErrRemote = errors.New("remote request failed")

const (
	OpMainDeadline      = "updateMainDeadline"
	OpRawMaterials      = "saveRawMaterials"
	OpInternalDeadlines = "saveInternalDeadlines"
	OpSendToWarehouse   = "sendToWarehouse"
)

const (
	msgGenericFailure    = "Something went wrong. Please try again."
	msgDeadlineUpdated   = "Deadline updated successfully"
	msgRawMaterialsSaved = "Raw materials saved successfully"
	msgDeadlinesSaved    = "Internal deadlines saved successfully"
	msgSentToWarehouse   = "Order sent to warehouse"
)

type Gateway interface {
	UpdateDeadline(ctx context.Context, req storage.DeadlineUpdate) error
	CreateRawMaterialsByOrder(ctx context.Context, req storage.RawMaterialsPayload) error
	CreateDeadlineByOrder(ctx context.Context, req storage.DeadlinesPayload) error
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
}

type Notifier interface {
	Success(message string) string
	Warning(message string) string
	Error(message string) string
}

// Engine не хранит состояния: проверяет ввод, зовёт шлюз и сообщает итог в Notifier.
// Повторная отправка тех же данных: новый такой же запрос, без дедупликации и ретраев.
type Engine struct {
	gateway  Gateway
	notifier Notifier
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func NewEngine(gateway Gateway, notifier Notifier, log *slog.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		gateway:  gateway,
		notifier: notifier,
		log:      log,
		metrics:  m,
	}
}

func (e *Engine) UpdateMainDeadline(ctx context.Context, orderID int64, start, end string) error {
	const op = "workflow.UpdateMainDeadline"

	if err := ValidateMainDeadline(start, end); err != nil {
		return e.invalid(OpMainDeadline, err)
	}

	err := e.gateway.UpdateDeadline(ctx, storage.DeadlineUpdate{ID: orderID, Start: start, End: end})
	if err != nil {
		return e.failed(op, OpMainDeadline, orderID, err)
	}

	e.succeeded(OpMainDeadline, msgDeadlineUpdated)
	return nil
}

// SaveRawMaterials отправляет весь текущий валидный набор: бэкенд заменяет список целиком.
func (e *Engine) SaveRawMaterials(ctx context.Context, orderID int64, items []storage.RawMaterial) ([]storage.RawMaterialItem, error) {
	const op = "workflow.SaveRawMaterials"

	payload, err := FilterRawMaterials(items)
	if err != nil {
		return nil, e.invalid(OpRawMaterials, err)
	}

	err = e.gateway.CreateRawMaterialsByOrder(ctx, storage.RawMaterialsPayload{OrderID: orderID, Items: payload})
	if err != nil {
		return nil, e.failed(op, OpRawMaterials, orderID, err)
	}

	e.succeeded(OpRawMaterials, msgRawMaterialsSaved)
	return payload, nil
}

func (e *Engine) SaveInternalDeadlines(ctx context.Context, orderID int64, main storage.MainDeadline, items []storage.InternalDeadline) ([]storage.DeadlineItem, error) {
	const op = "workflow.SaveInternalDeadlines"

	payload, err := ValidateInternalDeadlines(main, items)
	if err != nil {
		return nil, e.invalid(OpInternalDeadlines, err)
	}

	err = e.gateway.CreateDeadlineByOrder(ctx, storage.DeadlinesPayload{OrderID: orderID, Items: payload})
	if err != nil {
		return nil, e.failed(op, OpInternalDeadlines, orderID, err)
	}

	e.succeeded(OpInternalDeadlines, msgDeadlinesSaved)
	return payload, nil
}

// SendToWarehouse переводит заказ в "1" (ожидание сырья). Доступность кнопки
// проверяет вызывающий (см. CanSendToWarehouse и Session).
func (e *Engine) SendToWarehouse(ctx context.Context, orderID int64) error {
	const op = "workflow.SendToWarehouse"

	err := e.gateway.UpdateOrderStatus(ctx, orderID, constants.OrderStatusWaitingForRawMaterial)
	if err != nil {
		return e.failed(op, OpSendToWarehouse, orderID, err)
	}

	e.succeeded(OpSendToWarehouse, msgSentToWarehouse)
	return nil
}

func (e *Engine) invalid(operation string, err error) error {
	e.metrics.RecordOperation(operation, "invalid")
	if e.notifier != nil {
		e.notifier.Warning(err.Error())
	}
	return err
}

// failed пишет причину в лог, а пользователю показывает общее сообщение.
func (e *Engine) failed(op, operation string, orderID int64, err error) error {
	e.metrics.RecordOperation(operation, "failed")
	e.log.Error("workflow operation failed",
		slog.String("op", op),
		slog.Int64("order_id", orderID),
		slog.String("error", err.Error()),
	)
	if e.notifier != nil {
		e.notifier.Error(msgGenericFailure)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemote, err)
}

func (e *Engine) succeeded(operation, message string) {
	e.metrics.RecordOperation(operation, "success")
	if e.notifier != nil {
		e.notifier.Success(message)
	}
}
