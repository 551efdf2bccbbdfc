package pagecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitIndexRegisterOrJoin(t *testing.T) {
	w := newWaitIndex()
	key := pageKey{hash: "h", pageID: 0}

	dst1 := make([]byte, 4)
	_, first1 := w.registerOrJoin(key, dst1, 0)
	require.True(t, first1)

	dst2 := make([]byte, 4)
	_, first2 := w.registerOrJoin(key, dst2, 0)
	require.False(t, first2)

	require.True(t, w.isAwaited(key))
}

func TestWaitIndexCompleteFillsWaiters(t *testing.T) {
	w := newWaitIndex()
	key := pageKey{hash: "h", pageID: 0}

	dstA := make([]byte, 4)
	entry, _ := w.registerOrJoin(key, dstA, 0)
	dstB := make([]byte, 2)
	w.registerOrJoin(key, dstB, 2)

	data := []byte("WXYZ")
	w.complete(key, data, len(data), nil)

	select {
	case <-entry.done:
	case <-time.After(time.Second):
		t.Fatal("wait entry never completed")
	}
	require.Equal(t, "WXYZ", string(dstA))
	require.Equal(t, "YZ", string(dstB))
	require.False(t, w.isAwaited(key))
}

func TestWaitIndexCompletePropagatesError(t *testing.T) {
	w := newWaitIndex()
	key := pageKey{hash: "h", pageID: 0}
	dst := make([]byte, 4)
	entry, _ := w.registerOrJoin(key, dst, 0)

	sentinel := errSentinel{}
	w.complete(key, nil, 0, sentinel)
	<-entry.done
	require.Equal(t, sentinel, entry.err)
}

type errSentinel struct{}

func (errSentinel) Error() string { return "sentinel" }
