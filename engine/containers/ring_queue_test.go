package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contents[T any](rq *RingQueue[T]) []T {
	var out []T
	rq.Each(func(v T) { out = append(out, v) })
	return out
}

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	assert.True(t, rq.IsEmpty())

	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	require.NoError(t, rq.Enqueue(3))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue(4), ErrQueueFull)

	for want := 1; want <= 3; want++ {
		got, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueueWraparound(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 0; i < 10; i++ {
		require.NoError(t, rq.Enqueue(i))
		require.NoError(t, rq.Enqueue(i+100))
		v, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, v)
		v, err = rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i+100, v)
	}
	assert.True(t, rq.IsEmpty())

	require.NoError(t, rq.Enqueue(7))
	require.NoError(t, rq.Enqueue(8))
	assert.Equal(t, []int{7, 8}, contents(rq))
}

func TestRingQueuePushEvictsOldest(t *testing.T) {
	rq := NewRingQueue[string](3)
	rq.Push("a")
	rq.Push("b")
	rq.Push("c")
	assert.Equal(t, []string{"a", "b", "c"}, contents(rq))

	rq.Push("d")
	assert.Equal(t, 3, rq.Len())
	assert.Equal(t, []string{"b", "c", "d"}, contents(rq))

	rq.Push("e")
	rq.Push("f")
	assert.Equal(t, []string{"d", "e", "f"}, contents(rq))

	oldest, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "d", oldest)
}

func TestNewRingQueueMinimumSize(t *testing.T) {
	rq := NewRingQueue[int](0)
	rq.Push(1)
	rq.Push(2)
	assert.True(t, rq.IsFull())
	assert.Equal(t, []int{2}, contents(rq))
}
