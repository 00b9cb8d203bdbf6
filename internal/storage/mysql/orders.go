package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crm-orders/internal/constants"
	"crm-orders/internal/storage"
)

const selectOrder = `
	SELECT o.id, o.order_status, o.deadline_start, o.deadline_end, o.created_at, o.updated_at,
	       l.id, l.name, l.email, l.phone, l.source
	FROM orders o
	LEFT JOIN leads l ON l.id = o.lead_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*storage.Order, error) {
	var (
		order                                      storage.Order
		leadID                                     sql.NullInt64
		leadName, leadEmail, leadPhone, leadSource sql.NullString
	)

	err := row.Scan(
		&order.ID, &order.OrderStatus, &order.Deadline.Start, &order.Deadline.End, &order.CreatedAt, &order.UpdatedAt,
		&leadID, &leadName, &leadEmail, &leadPhone, &leadSource,
	)
	if err != nil {
		return nil, err
	}

	if leadID.Valid {
		order.Lead = &storage.Lead{
			ID:     leadID.Int64,
			Name:   leadName.String,
			Email:  leadEmail.String,
			Phone:  leadPhone.String,
			Source: leadSource.String,
		}
	}

	return &order, nil
}

// GetOrderByID собирает полный агрегат: заказ, лид, смету с продуктами и допами, сырьё и внутренние сроки.
func (s *Storage) GetOrderByID(ctx context.Context, id int64) (*storage.Order, error) {
	const op = "storage.mysql.GetOrderByID"

	order, err := scanOrder(s.db.QueryRowContext(ctx, selectOrder+` WHERE o.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: id=%d: %w", op, id, storage.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: ошибка получения заказа id=%d: %w", op, id, err)
	}

	if order.Estimation, err = s.getEstimation(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.RawMaterials, err = s.getOrderRawMaterials(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order.InternalDeadlines, err = s.getOrderDeadlines(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

func (s *Storage) GetAllOrders(ctx context.Context) ([]storage.Order, error) {
	const op = "storage.mysql.GetAllOrders"

	rows, err := s.db.QueryContext(ctx, selectOrder+` ORDER BY o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения заказов: %w", op, err)
	}
	defer rows.Close()

	orders := []storage.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		orders = append(orders, *order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
	}

	return orders, nil
}

func (s *Storage) getEstimation(ctx context.Context, orderID int64) (*storage.Estimation, error) {
	const op = "storage.mysql.getEstimation"

	var est storage.Estimation
	err := s.db.QueryRowContext(ctx, `SELECT id, customer_name FROM estimations WHERE order_id = ?`, orderID).
		Scan(&est.ID, &est.CustomerName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: ошибка получения сметы: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, quantity, price
		FROM estimation_products
		WHERE estimation_id = ?
		ORDER BY id`, est.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения продуктов сметы: %w", op, err)
	}
	defer rows.Close()

	index := map[int64]int{}
	est.Products = []storage.Product{}
	for rows.Next() {
		p := storage.Product{Addons: []storage.Addon{}}
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Quantity, &p.Price); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования продуктов: %w", op, err)
		}
		index[p.ID] = len(est.Products)
		est.Products = append(est.Products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: ошибка сканирования продуктов: %w", op, err)
	}

	addonRows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.product_id, a.name, a.quantity, a.price
		FROM product_addons a
		JOIN estimation_products p ON p.id = a.product_id
		WHERE p.estimation_id = ?
		ORDER BY a.id`, est.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения допов: %w", op, err)
	}
	defer addonRows.Close()

	for addonRows.Next() {
		var (
			a         storage.Addon
			productID int64
		)
		if err := addonRows.Scan(&a.ID, &productID, &a.Name, &a.Quantity, &a.Price); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования допов: %w", op, err)
		}
		if i, ok := index[productID]; ok {
			est.Products[i].Addons = append(est.Products[i].Addons, a)
		}
	}

	return &est, addonRows.Err()
}

// GetDeadline отдаёт только главный срок, без сборки агрегата.
func (s *Storage) GetDeadline(ctx context.Context, id int64) (storage.MainDeadline, error) {
	const op = "storage.mysql.GetDeadline"

	var d storage.MainDeadline
	err := s.db.QueryRowContext(ctx, `SELECT deadline_start, deadline_end FROM orders WHERE id = ?`, id).Scan(&d.Start, &d.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, fmt.Errorf("%s: id=%d: %w", op, id, storage.ErrOrderNotFound)
		}
		return d, fmt.Errorf("%s: ошибка получения срока заказа id=%d: %w", op, id, err)
	}

	return d, nil
}

// UpdateDeadline перезаписывает главный срок заказа.
func (s *Storage) UpdateDeadline(ctx context.Context, req storage.DeadlineUpdate) error {
	const op = "storage.mysql.UpdateDeadline"

	exists, err := orderExists(ctx, s.db, req.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: id=%d: %w", op, req.ID, storage.ErrOrderNotFound)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE orders SET deadline_start = ?, deadline_end = ? WHERE id = ?`,
		req.Start, req.End, req.ID)
	if err != nil {
		return fmt.Errorf("%s: ошибка обновления срока заказа id=%d: %w", op, req.ID, err)
	}

	return nil
}

// UpdateOrderStatus меняет статус заказа. Передача на склад ("1") возможна только при сохранённом сырье.
func (s *Storage) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	const op = "storage.mysql.UpdateOrderStatus"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT order_status FROM orders WHERE id = ? FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: id=%d: %w", op, id, storage.ErrOrderNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if status == constants.OrderStatusWaitingForRawMaterial {
		var count int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_raw_materials WHERE order_id = ?`, id).Scan(&count)
		if err != nil {
			return fmt.Errorf("%s: ошибка подсчёта сырья: %w", op, err)
		}
		if count == 0 {
			return fmt.Errorf("%s: id=%d: %w", op, id, storage.ErrNoRawMaterials)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE orders SET order_status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("%s: ошибка обновления статуса заказа id=%d: %w", op, id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}
