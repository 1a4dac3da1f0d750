package vecenc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("round trip is bit exact", func(t *testing.T) {
		orig := []float32{0, 1.5, -2.25, 3.75, math.SmallestNonzeroFloat32, math.MaxFloat32}

		got, err := Decode(Encode(orig))

		require.NoError(t, err)
		assert.Equal(t, orig, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Encode(nil))

		got, err := Decode(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid length", func(t *testing.T) {
		_, err := Decode([]byte{1, 2, 3})
		assert.Error(t, err)
	})
}
