package pagecache

import (
	"io"

	"github.com/cloudvault/enginecore/collab"
	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"
)

// PromoteNewFile implements spec.md §4.3.7's new-file case: read the
// staging file page by page and, for each page not already resident,
// insert it into the memory tier under the new hash — so the first
// post-upload read is a hit instead of a re-download.
func (c *Cache) PromoteNewFile(ctx util.Context, staging collab.StagingReader, fileID int64, hash string) error {
	r, err := staging.OpenStaged(ctx, fileID, hash)
	if err != nil {
		return err
	}
	defer r.Close()

	pageSize := int64(c.cfg.PageSize)
	buf := make([]byte, pageSize)
	for pageID := int64(0); ; pageID++ {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			key := pageKey{hash: hash, pageID: pageID}
			if _, resident := c.memory.lookup(key); !resident {
				if p, ok := c.memory.acquireFree(); ok {
					copy(p.data, buf[:n])
					c.memory.publish(key, p, n)
				}
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return nil
		}
		if readErr != nil {
			return errs.ErrIO.Wrap(readErr)
		}
	}
}

// OverwrittenRange is one entry of the persisted interval tree of bytes a
// modified file overwrote relative to its previous upload (spec.md
// §4.3.7).
type OverwrittenRange struct {
	Start int64
	End   int64
}

// PromoteModifiedFile implements spec.md §4.3.7's modified-file case: a
// page untouched by any overwritten range is cheaply aliased by renaming
// the old disk-tier row's hash; a page that overlaps an overwritten range
// is rebuilt from the staging file, splicing any still-resident fragment
// of the old page underneath the new bytes.
func (c *Cache) PromoteModifiedFile(ctx util.Context, staging collab.StagingReader, fileID int64, oldHash, newHash string, overwritten []OverwrittenRange, fileSize int64) error {
	pageSize := int64(c.cfg.PageSize)
	lastPage := (fileSize - 1) / pageSize

	for pageID := int64(0); pageID <= lastPage; pageID++ {
		pageStart := pageID * pageSize
		pageEnd := pageStart + pageSize
		if pageEnd > fileSize {
			pageEnd = fileSize
		}

		if !rangesOverlap(overwritten, pageStart, pageEnd) {
			if err := c.aliasPage(ctx, oldHash, newHash, pageID); err != nil {
				return err
			}
			continue
		}
		if err := c.rebuildPage(ctx, staging, fileID, oldHash, newHash, pageID, pageStart, pageEnd); err != nil {
			return err
		}
	}
	return nil
}

func rangesOverlap(ranges []OverwrittenRange, start, end int64) bool {
	for _, r := range ranges {
		if r.Start < end && start < r.End {
			return true
		}
	}
	return false
}

// aliasPage renames a page's disk-tier row from oldHash to newHash
// in-place, leaving its bytes untouched (spec.md §4.3.7 (a)).
func (c *Cache) aliasPage(ctx util.Context, oldHash, newHash string, pageID int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	defer tx.Rollback()
	if err := c.disk.rows.RenameHash(ctx, tx, newHash, oldHash, pageID); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	return tx.Commit()
}

// rebuildPage re-reads a changed page from the staging file, splices it
// on top of any still-resident fragment of the old page, and promotes the
// result into the memory tier under newHash (spec.md §4.3.7 (b)).
func (c *Cache) rebuildPage(ctx util.Context, staging collab.StagingReader, fileID int64, oldHash, newHash string, pageID, pageStart, pageEnd int64) error {
	r, err := staging.OpenStaged(ctx, fileID, newHash)
	if err != nil {
		return err
	}
	defer r.Close()

	size := int(pageEnd - pageStart)
	buf := make([]byte, size)

	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(pageStart, io.SeekStart); err == nil {
			n, readErr := io.ReadFull(r, buf)
			if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
				return errs.ErrIO.Wrap(readErr)
			}
			buf = buf[:n]
		}
	}

	oldKey := pageKey{hash: oldHash, pageID: pageID}
	if oldRow, ok, err := c.disk.lookupRow(ctx, oldKey); err == nil && ok {
		fragment := make([]byte, oldRow.Size)
		if _, err := c.disk.readSlot(oldRow.ID, 0, fragment); err == nil {
			buf = splice(fragment, buf)
		}
	}

	key := pageKey{hash: newHash, pageID: pageID}
	if p, ok := c.memory.acquireFree(); ok {
		copy(p.data, buf)
		c.memory.publish(key, p, len(buf))
	}
	return nil
}

// splice overlays fresh on top of base in place, extending base if fresh
// is longer, and returns the result.
func splice(base, fresh []byte) []byte {
	if len(fresh) > len(base) {
		base = append(base, make([]byte, len(fresh)-len(base))...)
	}
	copy(base, fresh)
	return base
}

// runFsTask replays one outstanding local-write promotion task on
// startup (spec.md §4.3.7, §4.3.8), used by recover.
func (c *Cache) runFsTask(ctx util.Context, staging collab.StagingReader, task models.FsTask) error {
	switch task.Type {
	case models.FsTaskNewFile:
		return c.PromoteNewFile(ctx, staging, task.FileID, task.Text2)
	case models.FsTaskModifiedFile:
		// Text2 carries only the new hash; the interval tree of
		// overwritten ranges does not survive a crash, so a replayed
		// modified-file task falls back to a full re-promotion as a
		// new file under the new hash rather than attempting aliasing
		// it cannot reconstruct.
		return c.PromoteNewFile(ctx, staging, task.FileID, task.Text2)
	}
	return nil
}
