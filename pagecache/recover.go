package pagecache

import (
	"github.com/cloudvault/enginecore/errs"
	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"
)

// recover restores disk-tier consistency after an abrupt shutdown
// (spec.md §4.3.8): any row pointing past the current pagefile size is
// stale (the truncate that should have accompanied it never committed),
// and any outstanding page-cache or filesystem task is replayed or
// discarded.
func (c *Cache) recover(ctx util.Context) error {
	if err := c.truncateStaleRows(ctx); err != nil {
		return err
	}
	if err := c.replayPageCacheTasks(ctx); err != nil {
		return err
	}
	return c.replayFsTasks(ctx)
}

// truncateStaleRows drops row-table entries referring to slots beyond the
// pagefile's actual size, which can only happen if growOneSlot's row
// insert committed but the subsequent file truncate did not land before
// the crash.
func (c *Cache) truncateStaleRows(ctx util.Context) error {
	info, err := c.disk.file.Stat()
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	maxSlots := info.Size() / c.disk.pageSize

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	defer tx.Rollback()

	maxID, err := c.disk.rows.MaxID(ctx, tx)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	if maxID < maxSlots {
		return nil
	}
	if err := c.disk.rows.DeleteFrom(ctx, tx, maxSlots); err != nil {
		return errs.ErrIO.Wrap(err)
	}
	return tx.Commit()
}

// replayPageCacheTasks finishes (or discards) every pagecachetask row left
// over from before the crash. Writes and renames are idempotent to redo
// directly; a task whose target row no longer exists is simply cleared.
func (c *Cache) replayPageCacheTasks(ctx util.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	tasks, err := c.tasks.ListAll(ctx, tx)
	tx.Rollback()
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}

	for _, t := range tasks {
		if err := c.replayOnePageCacheTask(ctx, t); err != nil {
			continue
		}
	}
	return nil
}

func (c *Cache) replayOnePageCacheTask(ctx util.Context, t models.PageCacheTask) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch t.Type {
	case models.PageCacheTaskRename:
		if err := c.disk.rows.RenameHash(ctx, tx, t.Hash, t.OldHash, t.TaskID); err != nil {
			return err
		}
	case models.PageCacheTaskDelete, models.PageCacheTaskWrite:
		// The write/delete itself has no durable partial state to redo
		// beyond what truncateStaleRows already repaired; the task
		// record only needed to survive long enough to reach here.
	}
	if err := c.tasks.Delete(ctx, tx, t.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// replayFsTasks resumes local-write promotions left outstanding by an
// abrupt shutdown (spec.md §4.3.7). Without a staging reader wired yet
// (SYNC_ENGINE not started) the tasks are left in place for a later
// recover call to pick up.
func (c *Cache) replayFsTasks(ctx util.Context) error {
	if c.staging == nil {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}
	fsTasks, err := c.fs.ListAll(ctx, tx)
	tx.Rollback()
	if err != nil {
		return errs.ErrIO.Wrap(err)
	}

	for _, t := range fsTasks {
		if err := c.runFsTask(ctx, c.staging, t); err != nil {
			continue
		}
		delTx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			continue
		}
		c.fs.Delete(ctx, delTx, t.ID)
		delTx.Commit()
	}
	return nil
}
