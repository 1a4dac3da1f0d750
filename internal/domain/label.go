package domain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/lookalike/pkg/e"
)

// labelSeparator соединяет категорию и стиль в строковом представлении метки.
const labelSeparator = "_"

// Label — метка категории изображения: две ближайшие к файлу директории датасета
// <root>/.../<Category>/<Style>/<image>.
type Label struct {
	Category string
	Style    string
}

func NewLabel(category, style string) Label {
	return Label{
		Category: category,
		Style:    style,
	}
}

// String возвращает "<category>_<style>".
func (l Label) String() string {
	return l.Category + labelSeparator + l.Style
}

// IsZero сообщает, что метка не заполнена.
func (l Label) IsZero() bool {
	return l.Category == "" && l.Style == ""
}

// LabelFromPath выводит метку файла по его положению относительно root.
// Файл должен лежать минимум на два уровня ниже root, иначе e.ErrInvalidDatasetLayout.
func LabelFromPath(root, path string) (Label, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Label{}, e.Wrap(path, err)
	}

	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return Label{}, e.Wrap(fmt.Sprintf("%s is outside of %s", path, root), e.ErrInvalidDatasetLayout)
	}

	parts := strings.Split(rel, "/")
	// parts = [dir..., category, style, file]
	if len(parts) < 3 {
		return Label{}, e.Wrap(rel, e.ErrInvalidDatasetLayout)
	}

	category, style := parts[len(parts)-3], parts[len(parts)-2]
	if category == "" || style == "" {
		return Label{}, e.Wrap(rel, e.ErrInvalidDatasetLayout)
	}

	return NewLabel(category, style), nil
}
