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

type RawMaterialsSaver interface {
	ReplaceRawMaterials(ctx context.Context, req storage.RawMaterialsPayload) error
}

// CreateRawMaterialsByOrder: POST /createRawMaterialsByOrder, полная замена списка сырья заказа.
func CreateRawMaterialsByOrder(log *slog.Logger, saver RawMaterialsSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.raw-materials.CreateRawMaterialsByOrder"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req storage.RawMaterialsPayload
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Warn("invalid JSON", slog.String("error", err.Error()))
			response.Error(w, r, http.StatusBadRequest, "invalid JSON")
			return
		}

		if req.OrderID <= 0 {
			response.Error(w, r, http.StatusBadRequest, "orderId is required")
			return
		}

		rows := make([]storage.RawMaterial, 0, len(req.Items))
		for _, it := range req.Items {
			rows = append(rows, storage.RawMaterial{MaterialName: it.RawMaterial, Quantity: it.Qty})
		}

		items, err := workflow.FilterRawMaterials(rows)
		if err != nil {
			log.Warn("invalid raw materials", slog.Int64("order_id", req.OrderID), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Items = items

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := saver.ReplaceRawMaterials(ctx, req); err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				response.Error(w, r, http.StatusNotFound, "order not found")
				return
			}

			log.Error("failed to save raw materials", slog.Int64("order_id", req.OrderID), slog.String("error", err.Error()))
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Info("raw materials saved", slog.Int64("order_id", req.OrderID), slog.Int("saved_count", len(req.Items)))

		response.OK(w, r, req)
	}
}
