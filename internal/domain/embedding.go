package domain

import (
	"fmt"
	"math"

	"github.com/DRSN-tech/lookalike/pkg/e"
)

// Embedding — L2-нормированный вектор признаков изображения. После создания не изменяется.
type Embedding []float32

// NewEmbedding нормирует сырой выход модели к единичной длине.
// Нулевая (или не конечная) норма даёт e.ErrDegenerateEmbedding, вход не изменяется.
func NewEmbedding(raw []float32) (Embedding, error) {
	if len(raw) == 0 {
		return nil, e.ErrEmptyModelOutput
	}

	norm := Norm(raw)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, e.ErrDegenerateEmbedding
	}

	out := make(Embedding, len(raw))
	for i, v := range raw {
		out[i] = float32(float64(v) / norm)
	}

	return out, nil
}

// Dim возвращает размерность вектора.
func (emb Embedding) Dim() int {
	return len(emb)
}

// Norm — евклидова норма, считается в float64.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// L2Distance — евклидово расстояние между векторами одинаковой размерности.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, e.Wrap(fmt.Sprintf("%d vs %d", len(a), len(b)), e.ErrDimensionMismatch)
	}

	return l2(a, b), nil
}

// l2 не проверяет размерность: вызывающий гарантирует len(a) == len(b).
func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// MustL2Distance паникует при несовпадении размерностей. Только для заранее проверенных данных.
func MustL2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("domain: L2 distance dimension mismatch: %d vs %d", len(a), len(b)))
	}
	return l2(a, b)
}
