package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlap(t *testing.T) {
	lo, hi := overlap(0, 10, 3, 7)
	require.EqualValues(t, 3, lo)
	require.EqualValues(t, 7, hi)

	lo, hi = overlap(10, 10, 0, 5)
	require.EqualValues(t, 10, lo)
	require.EqualValues(t, 10, hi)

	lo, hi = overlap(0, 10, 5, 100)
	require.EqualValues(t, 5, lo)
	require.EqualValues(t, 10, hi)
}

func TestRangesOverlap(t *testing.T) {
	ranges := []OverwrittenRange{{Start: 100, End: 200}}
	require.True(t, rangesOverlap(ranges, 150, 250))
	require.False(t, rangesOverlap(ranges, 200, 300))
	require.True(t, rangesOverlap(ranges, 0, 101))
}
