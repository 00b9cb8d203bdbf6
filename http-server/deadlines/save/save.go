package save

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"crm-orders/http-server/response"
	"crm-orders/internal/service/workflow"
	"crm-orders/internal/storage"
)

type DeadlinesSaver interface {
	GetDeadline(ctx context.Context, id int64) (storage.MainDeadline, error)
	ReplaceDeadlines(ctx context.Context, req storage.DeadlinesPayload) error
}

// CreateDeadlineByOrder: POST /createDeadlineByOrder, полная замена внутренних сроков.
// Сроки проверяются против главного срока из БД, а не из запроса.
func CreateDeadlineByOrder(log *slog.Logger, saver DeadlinesSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.deadlines.CreateDeadlineByOrder"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req storage.DeadlinesPayload
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Warn("invalid JSON", slog.String("error", err.Error()))
			response.Error(w, r, http.StatusBadRequest, "invalid JSON")
			return
		}

		if req.OrderID <= 0 {
			response.Error(w, r, http.StatusBadRequest, "orderId is required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		main, err := saver.GetDeadline(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				response.Error(w, r, http.StatusNotFound, "order not found")
				return
			}

			log.Error("failed to fetch main deadline", slog.Int64("order_id", req.OrderID), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		rows := make([]storage.InternalDeadline, 0, len(req.Items))
		for _, it := range req.Items {
			rows = append(rows, storage.InternalDeadline{
				Name:        it.Name,
				StartAt:     it.StartAt,
				EndAt:       it.EndAt,
				Status:      it.Status,
				DelayReason: it.DelayReason,
			})
		}

		items, err := workflow.ValidateInternalDeadlines(main, rows)
		if err != nil {
			log.Warn("invalid internal deadlines", slog.Int64("order_id", req.OrderID), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Items = items

		if err := saver.ReplaceDeadlines(ctx, req); err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				response.Error(w, r, http.StatusNotFound, "order not found")
				return
			}

			log.Error("failed to save internal deadlines", slog.Int64("order_id", req.OrderID), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info("internal deadlines saved", slog.Int64("order_id", req.OrderID), slog.Int("saved_count", len(req.Items)))

		response.OK(w, r, req)
	}
}
