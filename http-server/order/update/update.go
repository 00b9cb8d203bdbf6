package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"crm-orders/http-server/response"
	"crm-orders/internal/constants"
	"crm-orders/internal/service/workflow"
	"crm-orders/internal/storage"
)

type DeadlineUpdater interface {
	UpdateDeadline(ctx context.Context, req storage.DeadlineUpdate) error
}

type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
}

func queryID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	return id, err == nil && id > 0
}

// UpdateDeadline: PUT /updateDeadline?id=, тело {id, start, end}.
func UpdateDeadline(log *slog.Logger, orders DeadlineUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.order.UpdateDeadline"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, ok := queryID(r)
		if !ok {
			response.Error(w, r, http.StatusBadRequest, "query parameter 'id' must be a positive integer")
			return
		}

		var req storage.DeadlineUpdate
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Warn("invalid JSON", slog.String("error", err.Error()))
			response.Error(w, r, http.StatusBadRequest, "invalid JSON")
			return
		}

		if req.ID != 0 && req.ID != id {
			response.Error(w, r, http.StatusBadRequest, "body id does not match query id")
			return
		}
		req.ID = id

		if err := workflow.ValidateMainDeadline(req.Start, req.End); err != nil {
			log.Warn("invalid deadline", slog.Int64("id", id), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := orders.UpdateDeadline(ctx, req); err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				response.Error(w, r, http.StatusNotFound, "order not found")
				return
			}

			log.Error("failed to update deadline", slog.Int64("id", id), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info("deadline updated", slog.Int64("id", id))

		response.OK(w, r, req)
	}
}

// UpdateOrderStatus: PUT /updateOrderStatus?id=&status=.
func UpdateOrderStatus(log *slog.Logger, orders StatusUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.order.UpdateOrderStatus"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, ok := queryID(r)
		if !ok {
			response.Error(w, r, http.StatusBadRequest, "query parameter 'id' must be a positive integer")
			return
		}

		status := r.URL.Query().Get("status")
		if _, known := constants.OrderStatuses[status]; !known {
			log.Warn("unknown order status", slog.String("status", status))
			response.Error(w, r, http.StatusBadRequest, "unknown order status")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err := orders.UpdateOrderStatus(ctx, id, status)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrOrderNotFound):
			response.Error(w, r, http.StatusNotFound, "order not found")
			return
		case errors.Is(err, storage.ErrNoRawMaterials):
			log.Warn("hand-off without raw materials", slog.Int64("id", id))
			response.Error(w, r, http.StatusConflict, "order has no raw materials")
			return
		default:
			log.Error("failed to update order status", slog.Int64("id", id), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info("order status updated", slog.Int64("id", id), slog.String("status", status))

		response.OK(w, r, map[string]any{"id": id, "orderStatus": status})
	}
}
