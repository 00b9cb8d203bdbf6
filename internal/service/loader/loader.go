package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"crm-orders/internal/storage"
)

// ErrEmptyAggregate: запрос прошёл, но заказ пришёл пустым (например, бэкенд ещё
// не успел его записать). Отличается от сетевой ошибки: решение о повторе за вызывающим.
var ErrEmptyAggregate = errors.New("order aggregate is empty")

type Gateway interface {
	GetOrderByID(ctx context.Context, id int64) (*storage.Order, error)
	GetRawMaterials(ctx context.Context) ([]storage.CatalogMaterial, error)
}

// Aggregate: редактируемое локальное состояние заказа после загрузки.
type Aggregate struct {
	Order             *storage.Order
	MainDeadline      storage.MainDeadline
	RawMaterials      []storage.RawMaterial
	InternalDeadlines []storage.InternalDeadline
	Catalog           []storage.CatalogMaterial
}

type Loader struct {
	gateway Gateway
}

func New(gateway Gateway) *Loader {
	return &Loader{gateway: gateway}
}

// Load тянет заказ и справочник сырья параллельно.
func (l *Loader) Load(ctx context.Context, orderID int64) (*Aggregate, error) {
	const op = "loader.Load"

	var (
		order   *storage.Order
		catalog []storage.CatalogMaterial
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = l.gateway.GetOrderByID(gCtx, orderID)
		if err != nil {
			return fmt.Errorf("order: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		catalog, err = l.gateway.GetRawMaterials(gCtx)
		if err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if order == nil || order.ID == 0 {
		return nil, fmt.Errorf("%s: id=%d: %w", op, orderID, ErrEmptyAggregate)
	}

	return normalize(order, catalog), nil
}

func normalize(order *storage.Order, catalog []storage.CatalogMaterial) *Aggregate {
	agg := &Aggregate{
		Order:             order,
		MainDeadline:      order.Deadline,
		RawMaterials:      make([]storage.RawMaterial, 0, len(order.RawMaterials)),
		InternalDeadlines: make([]storage.InternalDeadline, 0, len(order.InternalDeadlines)),
		Catalog:           catalog,
	}

	for _, rm := range order.RawMaterials {
		if rm.ID == "" {
			rm.ID = uuid.NewString()
		}
		agg.RawMaterials = append(agg.RawMaterials, rm)
	}

	for _, d := range order.InternalDeadlines {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		agg.InternalDeadlines = append(agg.InternalDeadlines, d)
	}

	return agg
}
