package domain

// ImageRecord — изображение датасета вместе с его эмбеддингом.
type ImageRecord struct {
	Path      string
	Label     Label
	Embedding Embedding
}

func NewImageRecord(path string, label Label, embedding Embedding) *ImageRecord {
	return &ImageRecord{
		Path:      path,
		Label:     label,
		Embedding: embedding,
	}
}

// FilterByLabel возвращает записи с указанной меткой в исходном порядке.
func FilterByLabel(records []ImageRecord, label Label) []ImageRecord {
	out := make([]ImageRecord, 0)
	for _, rec := range records {
		if rec.Label == label {
			out = append(out, rec)
		}
	}
	return out
}
