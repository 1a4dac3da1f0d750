package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryAverages(t *testing.T) {
	a := NewLabel("A", "x")
	b := NewLabel("B", "y")

	t.Run("keeps insertion order", func(t *testing.T) {
		avgs := NewCategoryAverages(2)
		avgs.Put(*NewCategoryAverage(b, []float32{0, 1}, 2))
		avgs.Put(*NewCategoryAverage(a, []float32{1, 0}, 3))

		assert.Equal(t, []Label{b, a}, avgs.Labels())
		assert.Equal(t, 2, avgs.Len())
		assert.Equal(t, 2, avgs.Dim())
	})

	t.Run("replace keeps position", func(t *testing.T) {
		avgs := NewCategoryAverages(2)
		avgs.Put(*NewCategoryAverage(a, []float32{1, 0}, 3))
		avgs.Put(*NewCategoryAverage(b, []float32{0, 1}, 2))
		avgs.Put(*NewCategoryAverage(a, []float32{0.5, 0.5}, 4))

		got, ok := avgs.Get(a)
		assert.True(t, ok)
		assert.Equal(t, 4, got.Count)
		assert.Equal(t, []Label{a, b}, avgs.Labels())
	})

	t.Run("nil is empty", func(t *testing.T) {
		var avgs *CategoryAverages

		assert.Zero(t, avgs.Len())
		assert.Nil(t, avgs.All())
		_, ok := avgs.Get(a)
		assert.False(t, ok)
	})
}

func TestFilterByLabel(t *testing.T) {
	a := NewLabel("A", "x")
	b := NewLabel("B", "y")
	records := []ImageRecord{
		*NewImageRecord("1", a, nil),
		*NewImageRecord("2", b, nil),
		*NewImageRecord("3", a, nil),
	}

	got := FilterByLabel(records, a)

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Path)
	assert.Equal(t, "3", got[1].Path)
	assert.Empty(t, FilterByLabel(records, NewLabel("C", "z")))
}
