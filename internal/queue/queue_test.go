package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type elm struct {
	id string
}

func (e *elm) Key() string { return e.id }

func newElm(id string) *elm { return &elm{id: id} }

func TestPutAndLen(t *testing.T) {
	q := New[elm](4)
	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Put(newElm("a")))
	require.NoError(t, q.Put(newElm("b")))
	assert.Equal(t, 2, q.Len())
}

func TestPutFullReturnsErrFull(t *testing.T) {
	q := New[elm](2)
	require.NoError(t, q.Put(newElm("a")))
	require.NoError(t, q.Put(newElm("b")))
	err := q.Put(newElm("c"))
	assert.ErrorIs(t, err, ErrFull)
}

func TestNextFIFOOrder(t *testing.T) {
	q := New[elm](4)
	require.NoError(t, q.Put(newElm("a")))
	require.NoError(t, q.Put(newElm("b")))

	got, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, "a", (*got).Key())

	got, ok = q.Next()
	require.True(t, ok)
	assert.Equal(t, "b", (*got).Key())

	_, ok = q.Next()
	assert.False(t, ok)
}

func TestPositionAccountsForCurrent(t *testing.T) {
	q := New[elm](4)
	require.NoError(t, q.Put(newElm("a")))
	require.NoError(t, q.Put(newElm("b")))
	require.NoError(t, q.Put(newElm("c")))

	pos, ok := q.Position("a")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok = q.Position("b")
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = q.Next() // dequeues "a", becomes current
	require.True(t, ok)

	pos, ok = q.Position("a")
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	pos, ok = q.Position("b")
	require.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestPositionUnknownKey(t *testing.T) {
	q := New[elm](4)
	require.NoError(t, q.Put(newElm("a")))
	_, ok := q.Position("nonexistent")
	assert.False(t, ok)
}

func TestWrapAroundAfterDrain(t *testing.T) {
	q := New[elm](3)
	require.NoError(t, q.Put(newElm("a")))
	require.NoError(t, q.Put(newElm("b")))
	require.NoError(t, q.Put(newElm("c")))

	_, _ = q.Next() // drop "a"
	_, _ = q.Next() // drop "b", current = b

	require.NoError(t, q.Put(newElm("d")))
	require.NoError(t, q.Put(newElm("e")))

	pos, ok := q.Position("c")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok = q.Position("e")
	require.True(t, ok)
	assert.Equal(t, 3, pos)
}

func TestSnapshotIncludesCurrentAtZero(t *testing.T) {
	q := New[elm](4)
	require.NoError(t, q.Put(newElm("a")))
	require.NoError(t, q.Put(newElm("b")))
	_, _ = q.Next()

	snap := q.Snapshot()
	require.Contains(t, snap, 0)
	assert.Equal(t, "a", (*snap[0]).Key())
	require.Contains(t, snap, 1)
	assert.Equal(t, "b", (*snap[1]).Key())
}

func TestClearCurrentRemovesZeroEntry(t *testing.T) {
	q := New[elm](4)
	require.NoError(t, q.Put(newElm("a")))
	_, _ = q.Next()
	q.ClearCurrent()

	_, ok := q.Position("a")
	assert.False(t, ok)
}

func TestNextWaitUnblocksOnPut(t *testing.T) {
	q := New[elm](4)
	done := make(chan struct{})
	defer close(done)

	var wg sync.WaitGroup
	wg.Add(1)
	var got *elm
	var ok bool
	go func() {
		defer wg.Done()
		got, ok = q.NextWait(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Put(newElm("a")))
	wg.Wait()

	require.True(t, ok)
	assert.Equal(t, "a", got.Key())
}

func TestNextWaitUnblocksOnDone(t *testing.T) {
	q := New[elm](4)
	done := make(chan struct{})

	resultCh := make(chan bool, 1)
	go func() {
		_, ok := q.NextWait(done)
		resultCh <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	close(done)

	select {
	case ok := <-resultCh:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("NextWait did not unblock on done")
	}
}
