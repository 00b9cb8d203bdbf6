package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	savedeadlines "crm-orders/http-server/deadlines/save"
	getorder "crm-orders/http-server/order/get"
	updateorder "crm-orders/http-server/order/update"
	getmaterials "crm-orders/http-server/raw-materials/get"
	savematerials "crm-orders/http-server/raw-materials/save"
	"crm-orders/internal/config"
	"crm-orders/internal/constants"
	"crm-orders/internal/metrics"
	"crm-orders/internal/middleware/auth"
)

type Storage interface {
	getorder.OrderProvider
	updateorder.DeadlineUpdater
	updateorder.StatusUpdater
	getmaterials.CatalogProvider
	savematerials.RawMaterialsSaver
	savedeadlines.DeadlinesSaver
}

func routes(cfg config.Config, log *slog.Logger, storage Storage, m *metrics.Metrics) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)

	router.Handle("/metrics", m.Handler())

	// у каждой роли свой базовый путь /api/{role}; admin допускается на любой
	for _, role := range constants.Roles {
		router.Route("/api/"+role, func(r chi.Router) {
			r.Use(auth.Authenticate(log, cfg.JWTSecret))
			r.Use(auth.RequireRole(role))

			r.Get("/getOrderById", getorder.GetOrderByID(log, storage))
			r.Get("/getAllOrders", getorder.GetAllOrders(log, storage))
			r.Get("/getRawMaterials", getmaterials.GetRawMaterials(log, storage))

			r.With(auth.Permit(constants.RoleOperation)).
				Put("/updateDeadline", updateorder.UpdateDeadline(log, storage))
			r.With(auth.Permit(constants.RoleOperation)).
				Post("/createRawMaterialsByOrder", savematerials.CreateRawMaterialsByOrder(log, storage))
			r.With(auth.Permit(constants.RoleOperation)).
				Post("/createDeadlineByOrder", savedeadlines.CreateDeadlineByOrder(log, storage))
			r.With(auth.Permit(constants.RoleOperation, constants.RoleWarehouse)).
				Put("/updateOrderStatus", updateorder.UpdateOrderStatus(log, storage))
		})
	}

	if cfg.FrontendDir == "" {
		router.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Not found", http.StatusNotFound)
		})
		return router
	}

	if info, err := os.Stat(cfg.FrontendDir); err != nil || !info.IsDir() {
		log.Error("Папка фронтенда не найдена", slog.String("path", cfg.FrontendDir))
	}

	// Статика: assets/, js/, css/, img/
	fileServer := http.FileServer(http.Dir(cfg.FrontendDir))
	router.Handle("/assets/*", fileServer)
	router.Handle("/js/*", fileServer)
	router.Handle("/css/*", fileServer)
	router.Handle("/img/*", fileServer)

	// SPA fallback: существующий файл отдаём как есть, остальное → index.html
	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(cfg.FrontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.FrontendDir, "index.html"))
	})

	return router
}
