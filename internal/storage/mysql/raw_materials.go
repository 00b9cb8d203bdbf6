package mysql

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crm-orders/internal/storage"
)

func (s *Storage) getOrderRawMaterials(ctx context.Context, orderID int64) ([]storage.RawMaterial, error) {
	const op = "storage.mysql.getOrderRawMaterials"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, material_name, quantity, status, created_at, updated_at
		FROM order_raw_materials
		WHERE order_id = ?
		ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения сырья заказа: %w", op, err)
	}
	defer rows.Close()

	materials := []storage.RawMaterial{}
	for rows.Next() {
		var m storage.RawMaterial
		if err := rows.Scan(&m.ID, &m.MaterialName, &m.Quantity, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк сырья: %w", op, err)
		}
		materials = append(materials, m)
	}

	return materials, rows.Err()
}

// ReplaceRawMaterials заменяет весь список сырья заказа: удаление старого и вставка нового в одной транзакции.
func (s *Storage) ReplaceRawMaterials(ctx context.Context, req storage.RawMaterialsPayload) error {
	const op = "storage.mysql.ReplaceRawMaterials"

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

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_raw_materials WHERE order_id = ?`, req.OrderID); err != nil {
		return fmt.Errorf("%s: ошибка удаления старого сырья заказа id=%d: %w", op, req.OrderID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_raw_materials (id, order_id, material_name, quantity, position)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: ошибка подготовки запроса: %w", op, err)
	}
	defer stmt.Close()

	// position хранит порядок строк из запроса
	for i, item := range req.Items {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), req.OrderID, item.RawMaterial, item.Qty, i); err != nil {
			return fmt.Errorf("%s: ошибка вставки сырья %q для заказа id=%d: %w", op, item.RawMaterial, req.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}

// GetRawMaterials отдаёт справочник сырья.
func (s *Storage) GetRawMaterials(ctx context.Context) ([]storage.CatalogMaterial, error) {
	const op = "storage.mysql.GetRawMaterials"

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM raw_materials_catalog ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s: ошибка получения справочника сырья: %w", op, err)
	}
	defer rows.Close()

	catalog := []storage.CatalogMaterial{}
	for rows.Next() {
		var m storage.CatalogMaterial
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("%s: ошибка сканирования строк: %w", op, err)
		}
		catalog = append(catalog, m)
	}

	return catalog, rows.Err()
}
