package cachemanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIsSingleHolderAndRemoves(t *testing.T) {
	m := NewManager(time.Hour)
	m.Add("FKEY:42", "folder-key-material", time.Minute, nil, PriorityNormal)

	v, ok := m.Get("FKEY:42")
	require.True(t, ok)
	assert.Equal(t, "folder-key-material", v)

	_, ok = m.Get("FKEY:42")
	assert.False(t, ok, "Get must remove the entry")
}

func TestGetExpiredEntryReleasesAndMisses(t *testing.T) {
	m := NewManager(time.Hour)
	released := false
	m.Add("DKEY:1", "v", time.Nanosecond, func(interface{}) { released = true }, PriorityNormal)
	time.Sleep(2 * time.Millisecond)

	_, ok := m.Get("DKEY:1")
	assert.False(t, ok)
	assert.True(t, released)
}

func TestAddOverwriteReleasesOldValue(t *testing.T) {
	m := NewManager(time.Hour)
	var releasedVal interface{}
	m.Add("SEEN:1", "old", time.Minute, func(v interface{}) { releasedVal = v }, PriorityNormal)
	m.Add("SEEN:1", "new", time.Minute, nil, PriorityNormal)

	assert.Equal(t, "old", releasedVal)
	v, ok := m.Get("SEEN:1")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCleanAllReleasesEverything(t *testing.T) {
	m := NewManager(time.Hour)
	count := 0
	for i := 0; i < 5; i++ {
		m.Add(string(rune('a'+i)), i, time.Minute, func(interface{}) { count++ }, PriorityNormal)
	}
	m.CleanAll()
	assert.Equal(t, 5, count)
	assert.Equal(t, 0, m.Len())
}

func TestJanitorSweepsExpiredEntriesWithoutGet(t *testing.T) {
	m := NewManager(5 * time.Millisecond)
	released := make(chan struct{}, 1)
	m.Add("FLDE:1", "v", time.Millisecond, func(interface{}) { released <- struct{}{} }, PriorityNormal)
	m.Start()
	defer m.Stop()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("janitor did not sweep expired entry in time")
	}
}
