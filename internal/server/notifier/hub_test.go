package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/civicsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyThatIssue(t *testing.T) {
	h := NewHub(logging.NewNop())

	var got []string
	h.Subscribe("i1", func(id string) { got = append(got, "a:"+id) })
	h.Subscribe("i1", func(id string) { got = append(got, "b:"+id) })
	h.Subscribe("i2", func(id string) { got = append(got, "c:"+id) })

	require.NoError(t, h.Publish(context.Background(), "i1"))
	assert.Equal(t, []string{"a:i1", "b:i1"}, got)
}

func TestHub_CancelIsIdempotentAndIsolated(t *testing.T) {
	h := NewHub(logging.NewNop())

	var a, b int
	cancelA := h.Subscribe("i1", func(string) { a++ })
	h.Subscribe("i1", func(string) { b++ })

	cancelA()
	cancelA()
	assert.Equal(t, 1, h.Subscribers("i1"))

	require.NoError(t, h.Publish(context.Background(), "i1"))
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestHub_CancelLastRemovesTopic(t *testing.T) {
	h := NewHub(logging.NewNop())
	cancel := h.Subscribe("i1", func(string) {})
	cancel()
	assert.Equal(t, 0, h.Subscribers("i1"))
	assert.NotContains(t, h.subs, "i1")
}

func TestHub_CancelDuringDispatchKeepsSnapshot(t *testing.T) {
	h := NewHub(logging.NewNop())

	var second int
	var cancelSecond CancelFunc
	h.Subscribe("i1", func(string) { cancelSecond() })
	cancelSecond = h.Subscribe("i1", func(string) { second++ })

	require.NoError(t, h.Publish(context.Background(), "i1"))
	assert.Equal(t, 1, second, "in-flight dispatch is not interrupted")

	require.NoError(t, h.Publish(context.Background(), "i1"))
	assert.Equal(t, 1, second)
}

func TestHub_PanickingHandlerIsContained(t *testing.T) {
	h := NewHub(logging.NewNop())

	var after int
	h.Subscribe("i1", func(string) { panic("boom") })
	h.Subscribe("i1", func(string) { after++ })

	require.NotPanics(t, func() { _ = h.Publish(context.Background(), "i1") })
	assert.Equal(t, 1, after)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := NewHub(logging.NewNop())
	assert.NoError(t, h.Publish(context.Background(), "nobody-listens"))
}

func TestHub_CanceledContext(t *testing.T) {
	h := NewHub(logging.NewNop())
	var called bool
	h.Subscribe("i1", func(string) { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Publish(ctx, "i1"), context.Canceled)
	assert.False(t, called)
}

func TestHub_ConcurrentSubscribePublish(t *testing.T) {
	h := NewHub(logging.NewNop())
	var calls atomic.Int64

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancel := h.Subscribe("i1", func(string) { calls.Add(1) })
			defer cancel()
			_ = h.Publish(context.Background(), "i1")
		}()
		go func() {
			defer wg.Done()
			_ = h.Publish(context.Background(), "i1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.Subscribers("i1"))
	assert.Positive(t, calls.Load())
}
