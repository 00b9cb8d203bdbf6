package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"crm-orders/http-server/response"
	"crm-orders/internal/storage"
)

type OrderProvider interface {
	GetOrderByID(ctx context.Context, id int64) (*storage.Order, error)
	GetAllOrders(ctx context.Context) ([]storage.Order, error)
}

// GetOrderByID: GET /getOrderById?id=, полный агрегат заказа.
func GetOrderByID(log *slog.Logger, orders OrderProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.order.GetOrderByID"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			log.Warn("invalid 'id' in query parameters", slog.String("id", r.URL.Query().Get("id")))
			response.Error(w, r, http.StatusBadRequest, "query parameter 'id' must be a positive integer")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		order, err := orders.GetOrderByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				log.Warn("order not found", slog.Int64("id", id))
				response.Error(w, r, http.StatusNotFound, "order not found")
				return
			}

			log.Error("failed to fetch order", slog.Int64("id", id), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		response.OK(w, r, order)
	}
}

func GetAllOrders(log *slog.Logger, orders OrderProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.order.GetAllOrders"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		list, err := orders.GetAllOrders(ctx)
		if err != nil {
			log.Error("failed to fetch orders",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("error", err.Error()),
			)
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		response.OK(w, r, list)
	}
}
