package pagecache

import (
	"sync"
	"time"

	"github.com/cloudvault/enginecore/framework/conn"
	"github.com/cloudvault/enginecore/util"
)

// urlBundle is spec.md §3's "URL record": the content-host addresses for
// one file version, expiring per the API's response. Bundles are not
// refcounted: an entry stays in the map until it is invalidated or
// replaced after expiry (spec.md §4.3.4: "URL bundles are cached by hash ... guarded by a
// condition variable: two threads racing on the same hash cooperate").
type urlBundle struct {
	hosts   []string
	path    string
	expires time.Time

	ready chan struct{} // closed once hosts/path/err are populated
	err   error
}

func (b *urlBundle) expired() bool {
	return !b.expires.IsZero() && time.Now().After(b.expires)
}

// urlCache is the per-hash tree of in-flight and cached URL bundles,
// guarded by mu (spec.md §5's url_cache_mutex). A Go map
// stands in for the "balanced tree" wording — both give the same
// amortized O(1)/O(log n) lookup and the spec does not rely on ordered
// traversal of the tree.
type urlCache struct {
	mu      sync.Mutex
	bundles map[string]*urlBundle
	api     conn.APIClient
}

func newURLCache(api conn.APIClient) *urlCache {
	return &urlCache{bundles: make(map[string]*urlBundle), api: api}
}

// get returns the URL bundle for (fileID, hash), fetching it via
// getfilelink if absent or expired. The first caller for a given hash
// fetches; concurrent callers wait on the same bundle's ready channel
// (spec.md §4.3.4's first-fetcher/follower cooperation).
func (u *urlCache) get(c util.Context, fileID int64, hash string) (*urlBundle, error) {
	u.mu.Lock()
	if b, ok := u.bundles[hash]; ok && !b.expired() {
		u.mu.Unlock()
		<-b.ready
		if b.err != nil {
			return nil, b.err
		}
		return b, nil
	}
	b := &urlBundle{ready: make(chan struct{})}
	u.bundles[hash] = b
	u.mu.Unlock()

	hosts, path, expiresUnix, err := u.api.GetFileLink(c, fileID, hash)
	if err != nil {
		b.err = err
		u.invalidate(hash)
		close(b.ready)
		return nil, err
	}
	b.hosts = hosts
	b.path = path
	if expiresUnix > 0 {
		b.expires = time.Unix(expiresUnix, 0)
	}
	close(b.ready)
	return b, nil
}

// invalidate drops the cached bundle for hash, forcing the next get to
// refetch (spec.md §4.3.4: "HTTP 410/404 or connection failure
// invalidates the URL bundle").
func (u *urlCache) invalidate(hash string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.bundles, hash)
}
