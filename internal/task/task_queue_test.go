package task

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue(t *testing.T) {
	t.Parallel()

	t.Run("enqueue and read", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(2, setupTestLogger())
		task := CreateMockTaskWithPayload("a")

		require.NoError(t, q.Enqueue(task))
		assert.Equal(t, 1, q.Len())
		assert.Same(t, task, <-q.GetChannel())
	})

	t.Run("full queue", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(1, setupTestLogger())
		require.NoError(t, q.Enqueue(CreateMockTaskWithPayload("a")))

		err := q.Enqueue(CreateMockTaskWithPayload("b"))
		assert.ErrorIs(t, err, ErrQueueFull)
	})

	t.Run("closed queue", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(2, setupTestLogger())
		require.NoError(t, q.Enqueue(CreateMockTaskWithPayload("a")))
		q.Close()
		q.Close()

		assert.ErrorIs(t, q.Enqueue(CreateMockTaskWithPayload("b")), ErrQueueClosed)

		// buffered tasks drain before the channel reports closed
		_, ok := <-q.GetChannel()
		assert.True(t, ok)
		_, ok = <-q.GetChannel()
		assert.False(t, ok)
	})

	t.Run("close races with enqueue", func(t *testing.T) {
		t.Parallel()
		q := NewTaskQueue(100, setupTestLogger())

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = q.Enqueue(CreateMockTaskWithPayload("x"))
			}()
		}
		q.Close()
		wg.Wait()
	})
}
