package http

import (
	"context"
	"net/http"
	"time"

	"github.com/DRSN-tech/lookalike/internal/usecase"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
)

type RecommendationHandler struct {
	recommendUsecase usecase.RecommendUC
	datasetRoot      string
	requestTimeout   time.Duration
	maxUploadSize    int64
	logger           logger.Logger
}

func NewRecommendationHandler(uc usecase.RecommendUC, datasetRoot string, requestTimeout time.Duration, maxUploadSize int64, logger logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendUsecase: uc,
		datasetRoot:      datasetRoot,
		requestTimeout:   requestTimeout,
		maxUploadSize:    maxUploadSize,
		logger:           logger,
	}
}

// recommend
//
//	@Summary		Поиск похожих изображений
//	@Description	Возвращает изображения датасета, ранжированные по евклидову расстоянию до загруженного
//	@Tags			recommendations
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file					true	"Изображение"
//	@Param			top_n	formData	int						false	"Количество рекомендаций"
//	@Success		200		{object}	RecommendationResponse	"Рекомендации"
//	@Failure		400		{object}	ErrorResponse			"Ошибка валидации"
//	@Failure		422		{object}	ErrorResponse			"Изображение не удалось обработать"
//	@Failure		503		{object}	ErrorResponse			"Индекс категорий пуст"
//	@Router			/recommendations [post]
func (h *RecommendationHandler) recommend(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20

	// запас на служебные части multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		h.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, err)
		return
	}

	topN, err := parseTopN(r.FormValue("top_n"))
	if err != nil {
		h.logger.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, err)
		return
	}

	_, fh, err := r.FormFile("file")
	if err != nil {
		WriteError(w, e.Wrap(err.Error(), e.ErrNoImage))
		return
	}

	data, mimeType, err := readFile(fh, h.maxUploadSize)
	if err != nil {
		h.logger.Warnf("upload %q rejected: %v", fh.Filename, err)
		WriteError(w, err)
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	res, err := h.recommendUsecase.Recommend(ctx, &usecase.RecommendReq{
		Image:    data,
		MimeType: mimeType,
		Filename: fh.Filename,
		TopN:     topN,
	})
	if err != nil {
		code, _ := ToHTTPResponse(err)
		if code >= http.StatusInternalServerError {
			h.logger.Errorf(err, "recommendation failed for %q", fh.Filename)
		} else {
			h.logger.Warnf("recommendation rejected for %q: %v", fh.Filename, err)
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendationResponse(res, h.datasetRoot))
}

// categories
//
//	@Summary		Список категорий
//	@Description	Категории датасета в порядке обхода с количеством изображений
//	@Tags			recommendations
//	@Produce		json
//	@Success		200	{array}	CategoryResponse
//	@Router			/categories [get]
func (h *RecommendationHandler) categories(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, toCategoryResponses(h.recommendUsecase.Categories()))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
