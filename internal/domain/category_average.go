package domain

// CategoryAverage — усреднённый эмбеддинг категории.
// Mean не нормируется повторно: это среднее арифметическое единичных векторов.
type CategoryAverage struct {
	Label Label
	Mean  []float32
	Count int
}

func NewCategoryAverage(label Label, mean []float32, count int) *CategoryAverage {
	return &CategoryAverage{
		Label: label,
		Mean:  mean,
		Count: count,
	}
}

// CategoryAverages — упорядоченное отображение Label → CategoryAverage.
// Порядок итерации совпадает с порядком добавления и определяет tie-break при классификации.
type CategoryAverages struct {
	items []CategoryAverage
	index map[Label]int
}

func NewCategoryAverages(capacity int) *CategoryAverages {
	return &CategoryAverages{
		items: make([]CategoryAverage, 0, capacity),
		index: make(map[Label]int, capacity),
	}
}

// Put добавляет категорию или заменяет существующую, сохраняя её исходную позицию.
func (c *CategoryAverages) Put(avg CategoryAverage) {
	if i, ok := c.index[avg.Label]; ok {
		c.items[i] = avg
		return
	}
	c.index[avg.Label] = len(c.items)
	c.items = append(c.items, avg)
}

// Get возвращает среднее по метке.
func (c *CategoryAverages) Get(label Label) (CategoryAverage, bool) {
	if c == nil {
		return CategoryAverage{}, false
	}
	i, ok := c.index[label]
	if !ok {
		return CategoryAverage{}, false
	}
	return c.items[i], true
}

// Len — количество категорий. Безопасен для nil.
func (c *CategoryAverages) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// All возвращает копию списка категорий в порядке итерации.
func (c *CategoryAverages) All() []CategoryAverage {
	if c == nil {
		return nil
	}
	out := make([]CategoryAverage, len(c.items))
	copy(out, c.items)
	return out
}

// Labels возвращает метки в порядке итерации.
func (c *CategoryAverages) Labels() []Label {
	if c == nil {
		return nil
	}
	out := make([]Label, len(c.items))
	for i, item := range c.items {
		out[i] = item.Label
	}
	return out
}

// Dim — размерность средних векторов (0 для пустого набора).
func (c *CategoryAverages) Dim() int {
	if c.Len() == 0 {
		return 0
	}
	return len(c.items[0].Mean)
}
