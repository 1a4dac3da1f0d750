package http

import (
	"net/http"

	_ "github.com/DRSN-tech/lookalike/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/lookalike/internal/cfg"
	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(uc usecase.RecommendUC, datasetRoot string, httpCfg *cfg.HTTPConfig) {
	r.router.Use(RequestID, AccessLog(r.logger), middleware.Recoverer)

	r.router.Get("/healthz", healthz)
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.router.Handle(domain.DatasetURLPrefix+"*", http.StripPrefix(domain.DatasetURLPrefix, http.FileServer(http.Dir(datasetRoot))))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		h := NewRecommendationHandler(uc, datasetRoot, httpCfg.RequestTimeout, httpCfg.MaxUploadSize, r.logger)
		registerRecommendationRoutes(v1, h)
	})
}

func registerRecommendationRoutes(router chi.Router, h *RecommendationHandler) {
	router.Post("/recommendations", h.recommend)
	router.Get("/categories", h.categories)
}
