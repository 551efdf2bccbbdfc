package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryTierAcquirePublishLookup(t *testing.T) {
	m := newMemoryTier(2, 16)
	require.Equal(t, 2, m.freeCount())

	p, ok := m.acquireFree()
	require.True(t, ok)
	require.Equal(t, 1, m.freeCount())

	key := pageKey{hash: "abc", pageID: 0}
	copy(p.data, []byte("hello world"))
	m.publish(key, p, 11)

	got, ok := m.lookup(key)
	require.True(t, ok)
	require.Equal(t, "hello world", string(got.data[:got.validLen]))
	require.EqualValues(t, 1, got.useCount)
}

func TestMemoryTierExhaustion(t *testing.T) {
	m := newMemoryTier(1, 8)
	_, ok := m.acquireFree()
	require.True(t, ok)
	_, ok = m.acquireFree()
	require.False(t, ok)
}

func TestMemoryTierReleaseReturnsToFreeList(t *testing.T) {
	m := newMemoryTier(1, 8)
	p, _ := m.acquireFree()
	key := pageKey{hash: "x", pageID: 1}
	m.publish(key, p, 4)
	require.Equal(t, 0, m.freeCount())

	m.release(key)
	require.Equal(t, 1, m.freeCount())
	_, ok := m.lookup(key)
	require.False(t, ok)
}

func TestMemoryTierSnapshotResident(t *testing.T) {
	m := newMemoryTier(3, 8)
	for i := int64(0); i < 3; i++ {
		p, _ := m.acquireFree()
		m.publish(pageKey{hash: "h", pageID: i}, p, 1)
	}
	snap := m.snapshotResident()
	require.Len(t, snap, 3)
}
