package closer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloser_Close(t *testing.T) {
	t.Run("closes in reverse order", func(t *testing.T) {
		c := NewCloser(0)
		var order []string
		for _, name := range []string{"redis", "grpc", "http"} {
			c.AddSimple(name, func() error {
				order = append(order, name)
				return nil
			})
		}

		require.NoError(t, c.Close(context.Background()))
		assert.Equal(t, []string{"http", "grpc", "redis"}, order)
	})

	t.Run("collects errors with resource names", func(t *testing.T) {
		c := NewCloser(0)
		c.AddSimple("redis", func() error { return errors.New("conn reset") })
		c.AddSimple("http", func() error { return nil })

		err := c.Close(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis: conn reset")
	})

	t.Run("second close is a no-op", func(t *testing.T) {
		c := NewCloser(0)
		calls := 0
		c.AddSimple("x", func() error { calls++; return nil })

		require.NoError(t, c.Close(context.Background()))
		require.NoError(t, c.Close(context.Background()))
		assert.Equal(t, 1, calls)
	})

	t.Run("forces remaining resources when context expires", func(t *testing.T) {
		c := NewCloser(100 * time.Millisecond)
		var mu sync.Mutex
		forced := false

		c.Add("fast", func(ctx context.Context) error {
			mu.Lock()
			forced = true
			mu.Unlock()
			return nil
		})
		c.Add("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := c.Close(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "shutdown interrupted")
		mu.Lock()
		assert.True(t, forced)
		mu.Unlock()
	})
}
