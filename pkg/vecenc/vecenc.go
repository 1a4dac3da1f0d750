// Package vecenc кодирует float32-векторы в компактный little-endian BLOB
// (IEEE 754, без префикса длины) и обратно.
package vecenc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode кодирует вектор. Пустой вектор даёт nil.
func Encode(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// Decode восстанавливает вектор. Длина b должна быть кратна 4.
func Decode(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vecenc: invalid blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
