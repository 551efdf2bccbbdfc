// Package collab declares the narrow interfaces PAGE_CACHE needs from its
// neighboring subsystems (a sync engine staging local writes, a
// filesystem front end serving reads) without depending on their
// concrete implementations (spec.md §4.3.7, §9).
package collab

import (
	"io"

	"github.com/cloudvault/enginecore/util"
)

// StagingReader opens the local, not-yet-uploaded bytes of a file the
// sync engine has staged, so PAGE_CACHE can promote them directly into
// its memory/disk tiers instead of re-downloading content it already has
// on disk (spec.md §4.3.7: "New-file promotion reads the staging file
// page by page").
type StagingReader interface {
	// OpenStaged returns the staged content for fileID at the given
	// content hash, or an error if nothing is staged under that hash
	// anymore (e.g. it was superseded by a newer local write).
	OpenStaged(c util.Context, fileID int64, hash string) (io.ReadCloser, error)
}

// LocalFullNotifier is told when a flush cycle finds that growing the
// pagefile would breach the free-space reserve, after the pagefile has
// been shrunk and the oldest in-memory READ pages discarded (spec.md
// §4.3.5: "disk-full handling sets a local-full flag");
// the filesystem front end uses this to stop promising durable local
// caching until space frees up.
type LocalFullNotifier interface {
	NotifyLocalFull(full bool)
}
