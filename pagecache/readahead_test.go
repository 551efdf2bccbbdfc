package pagecache

import (
	"testing"

	"github.com/cloudvault/enginecore/framework/config"
	"github.com/stretchr/testify/require"
)

func TestStreamTrackerExtendsMatchingStream(t *testing.T) {
	tr := newStreamTracker()
	s1 := tr.matchOrCreate(0, 3)
	require.EqualValues(t, 0, s1.fromPage)
	require.EqualValues(t, 3, s1.toPage)

	s2 := tr.matchOrCreate(4, 5)
	require.Same(t, s1, s2)
	require.EqualValues(t, 5, s2.toPage)
}

func TestStreamTrackerEvictsColdestWhenFull(t *testing.T) {
	tr := newStreamTracker()
	var streams []*stream
	for i := int64(0); i < fileStreamsCount; i++ {
		streams = append(streams, tr.matchOrCreate(i*100, i*100))
	}
	require.Len(t, tr.streams, fileStreamsCount)

	// A far-away read doesn't match any existing stream's window, so the
	// coldest (first-created, lowest monotonicID) one is evicted.
	newStream := tr.matchOrCreate(10000, 10001)
	require.Same(t, streams[0], newStream)
	require.EqualValues(t, 10000, newStream.fromPage)
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, 64*1024, alignUp(1000))
	require.Equal(t, 256*1024, alignUp(200*1024))
	require.Equal(t, 12*1024*1024, alignUp(10*1024*1024))
}

func TestComputeReadaheadSizeRespectsCeilings(t *testing.T) {
	cfg := config.DefaultPageCacheConfig()
	size := computeReadaheadSize(cfg, 0, 100, false, 0)
	require.GreaterOrEqual(t, size, cfg.MinReadaheadStart)
	require.LessOrEqual(t, size, cfg.MaxReadahead)

	speedCapped := computeReadaheadSize(cfg, 0, 100, false, 1000)
	require.LessOrEqual(t, speedCapped, cfg.MaxReadahead)
}
