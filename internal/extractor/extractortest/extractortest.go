// Package extractortest содержит детерминированные заглушки модели и генераторы
// изображений для тестов пакетов, зависящих от извлечения эмбеддингов.
package extractortest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"

	"github.com/DRSN-tech/lookalike/internal/extractor"
)

// QuadrantModel возвращает средние значения каналов по четырём квадрантам изображения
// плюс постоянную компоненту, так что выход никогда не нулевой. Размерность 13.
type QuadrantModel struct {
	Calls atomic.Int64
}

func (m *QuadrantModel) Infer(_ context.Context, tensor []float32, shape extractor.Shape, _ extractor.Mode) ([]float32, error) {
	m.Calls.Add(1)

	out := make([]float32, 13)
	counts := make([]float32, 4)
	for y := 0; y < shape.Height; y++ {
		for x := 0; x < shape.Width; x++ {
			q := 0
			if x >= shape.Width/2 {
				q++
			}
			if y >= shape.Height/2 {
				q += 2
			}
			base := (y*shape.Width + x) * shape.Channels
			for c := 0; c < 3; c++ {
				out[q*3+c] += tensor[base+c]
			}
			counts[q]++
		}
	}
	for q := 0; q < 4; q++ {
		for c := 0; c < 3; c++ {
			if counts[q] > 0 {
				out[q*3+c] /= counts[q]
			}
		}
	}
	out[12] = 1

	return out, nil
}

// ModelFunc адаптирует функцию к интерфейсу extractor.Model.
type ModelFunc func(ctx context.Context, tensor []float32, shape extractor.Shape, mode extractor.Mode) ([]float32, error)

func (f ModelFunc) Infer(ctx context.Context, tensor []float32, shape extractor.Shape, mode extractor.Mode) ([]float32, error) {
	return f(ctx, tensor, shape, mode)
}

// SolidPNG кодирует однотонное изображение w×h.
func SolidPNG(c color.Color, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return encode(img)
}

// SplitPNG кодирует изображение, левая половина которого окрашена в left, правая — в right.
func SplitPNG(left, right color.Color, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return encode(img)
}

func encode(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
