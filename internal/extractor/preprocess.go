package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// Декодеры форматов из allowlist датасета и загрузок
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/DRSN-tech/lookalike/pkg/e"
)

// Mode — режим нормализации каналов перед подачей в сеть.
type Mode string

const (
	// ModeRaw оставляет значения 0..255: сети семейства EfficientNet нормализуют вход сами.
	ModeRaw Mode = "raw"
	// ModeTF масштабирует значения в [-1, 1].
	ModeTF Mode = "tf"
	// ModeTorch вычитает среднее и делит на std ImageNet после масштабирования в [0, 1].
	ModeTorch Mode = "torch"
)

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ParseMode проверяет строковое значение режима.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRaw, ModeTF, ModeTorch:
		return m, nil
	case "":
		return ModeRaw, nil
	default:
		return "", fmt.Errorf("unknown preprocessing mode %q", s)
	}
}

// Shape — форма входного тензора (NHWC, батч из одного изображения).
type Shape struct {
	Height   int
	Width    int
	Channels int
}

// Len — количество элементов тензора.
func (s Shape) Len() int {
	return s.Height * s.Width * s.Channels
}

// Decode декодирует изображение любого зарегистрированного формата.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: %w", e.ErrImageDecode, e.ErrEmptyImage)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", e.Wrap(err.Error(), e.ErrImageDecode)
	}

	return img, format, nil
}

// Resize масштабирует изображение до size×size без сохранения пропорций
// (как load_img(target_size=...)), результат всегда RGBA.
func Resize(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ToTensor переводит RGB-значения в тензор HWC float32 с нормализацией mode.
// Альфа-канал отбрасывается.
func ToTensor(img *image.RGBA, mode Mode) ([]float32, Shape) {
	b := img.Bounds()
	shape := Shape{Height: b.Dy(), Width: b.Dx(), Channels: 3}
	tensor := make([]float32, 0, shape.Len())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			tensor = append(tensor, normalizePixel(c, mode)...)
		}
	}

	return tensor, shape
}

func normalizePixel(c color.RGBA, mode Mode) []float32 {
	rgb := [3]float32{float32(c.R), float32(c.G), float32(c.B)}

	switch mode {
	case ModeTF:
		for i := range rgb {
			rgb[i] = rgb[i]/127.5 - 1
		}
	case ModeTorch:
		for i := range rgb {
			rgb[i] = (rgb[i]/255 - imagenetMean[i]) / imagenetStd[i]
		}
	}

	return rgb[:]
}
