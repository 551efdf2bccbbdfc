package pagecache

import "time"

func secondsDuration(secs int) time.Duration {
	if secs <= 0 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// ceilDiv computes ceil(a/b) for positive a, b.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
