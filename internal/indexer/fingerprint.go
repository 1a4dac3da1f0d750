package indexer

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"

	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/cespare/xxhash/v2"
	"github.com/jimlawless/whereami"
)

// Fingerprint возвращает хэш состава датасета: относительные пути, размеры и время
// изменения всех изображений в порядке обхода. Используется как ключ инвалидации кэша.
func Fingerprint(root string) (string, error) {
	entries, err := scan(root)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	h := xxhash.New()
	buf := make([]byte, 8)
	for _, en := range entries {
		info, err := os.Stat(en.path)
		if err != nil {
			return "", e.Wrap(whereami.WhereAmI(), err)
		}

		rel, err := filepath.Rel(root, en.path)
		if err != nil {
			return "", e.Wrap(whereami.WhereAmI(), err)
		}

		_, _ = h.WriteString(filepath.ToSlash(rel))
		_, _ = h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf, uint64(info.Size()))
		_, _ = h.Write(buf)
		binary.LittleEndian.PutUint64(buf, uint64(info.ModTime().UnixNano()))
		_, _ = h.Write(buf)
	}

	return strconv.FormatUint(h.Sum64(), 16), nil
}
