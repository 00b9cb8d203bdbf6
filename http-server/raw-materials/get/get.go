package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"crm-orders/http-server/response"
	"crm-orders/internal/storage"
)

type CatalogProvider interface {
	GetRawMaterials(ctx context.Context) ([]storage.CatalogMaterial, error)
}

// GetRawMaterials: справочник сырья для выпадающего списка.
func GetRawMaterials(log *slog.Logger, catalog CatalogProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.raw-materials.GetRawMaterials"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		materials, err := catalog.GetRawMaterials(ctx)
		if err != nil {
			log.Error("failed to fetch raw materials catalog",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("error", err.Error()),
			)
			response.Error(w, r, http.StatusInternalServerError, "internal server error")
			return
		}

		response.OK(w, r, materials)
	}
}
