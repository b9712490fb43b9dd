package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/sentichat/internal/config"
	"github.com/zhouzirui/sentichat/internal/handler/dashboard"
	"github.com/zhouzirui/sentichat/internal/handler/view"
	middlewarePkg "github.com/zhouzirui/sentichat/internal/middleware"
	viewservice "github.com/zhouzirui/sentichat/internal/service/view"
	"github.com/zhouzirui/sentichat/pkg/utils"
)

// NewRouter wires HTTP routes to the view registry and classification backend.
func NewRouter(cfg *config.Config, registry *viewservice.Registry, backend view.Backend, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins))

	viewHandler := view.NewWebSocketHandler(registry, backend, view.Options{
		HistoryLimit:     cfg.Chat.HistoryLimit,
		RefreshInterval:  cfg.Dashboard.RefreshInterval,
		DistributionKind: cfg.Dashboard.DistributionKind,
		Theme:            cfg.Dashboard.Theme,
	}, logger)
	dashboardHandler := dashboard.New(backend, cfg.Dashboard.RefreshInterval, logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"views":  registry.Count(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		viewHandler.RegisterRoutes(api)
		dashboardHandler.RegisterRoutes(api)
	})

	return r
}
