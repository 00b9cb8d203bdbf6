package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"crm-orders/internal/constants"
	"crm-orders/internal/storage"
)

func (s *Storage) getOrderDeadlines(ctx context.Context, orderID int64) ([]storage.InternalDeadline, error) {
	const op = "storage.mysql.getOrderDeadlines"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_at, end_at, status, delay_reason, created_at, updated_at
		FROM order_deadlines
		WHERE order_id = ?
		ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения внутренних сроков: %w", op, err)
	}
	defer rows.Close()

	deadlines := []storage.InternalDeadline{}
	for rows.Next() {
		var (
			d      storage.InternalDeadline
			reason sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.StartAt, &d.EndAt, &d.Status, &reason, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк сроков: %w", op, err)
		}
		d.DelayReason = reason.String
		deadlines = append(deadlines, d)
	}

	return deadlines, rows.Err()
}

// ReplaceDeadlines заменяет весь список внутренних сроков заказа одной транзакцией.
func (s *Storage) ReplaceDeadlines(ctx context.Context, req storage.DeadlinesPayload) error {
	const op = "storage.mysql.ReplaceDeadlines"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	exists, err := orderExists(ctx, tx, req.OrderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: id=%d: %w", op, req.OrderID, storage.ErrOrderNotFound)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_deadlines WHERE order_id = ?`, req.OrderID); err != nil {
		return fmt.Errorf("%s: ошибка удаления старых сроков заказа id=%d: %w", op, req.OrderID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_deadlines (id, order_id, name, start_at, end_at, status, delay_reason, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: ошибка подготовки запроса: %w", op, err)
	}
	defer stmt.Close()

	for i, item := range req.Items {
		var reason sql.NullString
		if item.Status == constants.DeadlineDelayed && item.DelayReason != "" {
			reason = sql.NullString{String: item.DelayReason, Valid: true}
		}

		_, err := stmt.ExecContext(ctx, uuid.NewString(), req.OrderID, item.Name, item.StartAt, item.EndAt, item.Status, reason, i)
		if err != nil {
			return fmt.Errorf("%s: ошибка вставки срока %q для заказа id=%d: %w", op, item.Name, req.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}
