package http

import (
	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/usecase"
)

// RecommendationResponse — ответ на запрос рекомендаций.
type RecommendationResponse struct {
	Label           string               `json:"label,omitempty"`
	Category        string               `json:"category,omitempty"`
	Style           string               `json:"style,omitempty"`
	UploadKey       string               `json:"upload_key,omitempty"`
	Recommendations []RecommendationItem `json:"recommendations"`
}

// RecommendationItem — одно изображение из датасета. Score — евклидово расстояние, меньше значит ближе.
type RecommendationItem struct {
	Path  string  `json:"path"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

type CategoryResponse struct {
	Label    string `json:"label"`
	Category string `json:"category"`
	Style    string `json:"style"`
	Count    int    `json:"count"`
}

func toRecommendationResponse(res *usecase.RecommendRes, root string) *RecommendationResponse {
	out := &RecommendationResponse{
		UploadKey:       res.UploadKey,
		Recommendations: make([]RecommendationItem, 0, len(res.Recommendations)),
	}
	if res.Label != nil {
		out.Label = res.Label.String()
		out.Category = res.Label.Category
		out.Style = res.Label.Style
	}

	for _, rec := range res.Recommendations {
		rel := domain.RelativePath(root, rec.Path)
		out.Recommendations = append(out.Recommendations, RecommendationItem{
			Path:  rel,
			URL:   domain.DatasetURL(rel),
			Score: rec.Distance,
		})
	}

	return out
}

func toCategoryResponses(cats []usecase.CategoryInfo) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryResponse{
			Label:    c.Label.String(),
			Category: c.Label.Category,
			Style:    c.Label.Style,
			Count:    c.Count,
		})
	}

	return out
}
