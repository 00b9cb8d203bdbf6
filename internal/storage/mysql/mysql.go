package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"crm-orders/internal/config"
	"crm-orders/internal/constants"
)

//go:embed schema.sql
var schema string

type Storage struct {
	db *sql.DB
}

// querier: общее у *sql.DB и *sql.Tx для чтений внутри транзакции и вне её.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(cfg config.DB) (*Storage, error) {
	const op = "storage.mysql.New"

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open db: %w", op, err)
	}

	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Migrate создаёт таблицы (CREATE TABLE IF NOT EXISTS) и засевает справочник сырья.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.mysql.Migrate"

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: ошибка применения схемы: %w", op, err)
		}
	}

	stmt, err := s.db.PrepareContext(ctx, `INSERT IGNORE INTO raw_materials_catalog (name) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("%s: ошибка подготовки запроса: %w", op, err)
	}
	defer stmt.Close()

	for _, name := range constants.DefaultRawMaterials {
		if _, err := stmt.ExecContext(ctx, name); err != nil {
			return fmt.Errorf("%s: ошибка заполнения справочника сырья %q: %w", op, name, err)
		}
	}

	return nil
}

func orderExists(ctx context.Context, q querier, id int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}
