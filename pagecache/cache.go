package pagecache

import (
	"context"
	"database/sql"

	"github.com/cloudvault/enginecore/collab"
	"github.com/cloudvault/enginecore/framework/conn"
	"github.com/cloudvault/enginecore/models"
	"github.com/cloudvault/enginecore/util"

	"github.com/cloudvault/enginecore/framework/config"
	"golang.org/x/sync/semaphore"
)

// Cache is PAGE_CACHE: the fixed-size memory pool, its on-disk backing
// pagefile, and the readahead/flush/aging machinery that keeps them in
// sync (spec.md §4.3). Grounded on go-fed-apcore/framework/conn's
// Controller for how a collection of collaborating subsystems (transport,
// rate limiting, retrying) is composed into one struct with Start/Stop.
type Cache struct {
	cfg config.PageCacheConfig
	db  *sql.DB

	memory *memoryTier
	disk   *diskTier
	waits  *waitIndex
	urls   *urlCache
	access *accessRing
	tasks  *models.PageCacheTasks
	fs     *models.FsTasks

	api          conn.APIClient
	streams      *streamRegistry
	readaheadSem *semaphore.Weighted

	staging  collab.StagingReader
	notifier collab.LocalFullNotifier

	flushLoop *util.SafeStartStop
	agingLoop *util.SafeStartStop
}

// SetStagingReader wires the sync engine's staged-file accessor, enabling
// local-write promotion (spec.md §4.3.7) and its replay during crash
// recovery. Safe to call before or after Start.
func (c *Cache) SetStagingReader(r collab.StagingReader) {
	c.staging = r
}

// SetLocalFullNotifier wires the filesystem front end's disk-full
// callback (spec.md §4.3.5).
func (c *Cache) SetLocalFullNotifier(n collab.LocalFullNotifier) {
	c.notifier = n
}

// New constructs a Cache. The caller prepares/owns db, rows, tasks and
// fsTasks; New does not create tables. The disk tier's backing file is
// opened under cfg.DiskCacheDir.
func New(cfg config.PageCacheConfig, db *sql.DB, rows *models.PageCacheRows, tasks *models.PageCacheTasks, fsTasks *models.FsTasks, api conn.APIClient) (*Cache, error) {
	disk, err := openDiskTier(cfg.DiskCacheDir, cfg.PageSize, rows, db)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:          cfg,
		db:           db,
		memory:       newMemoryTier(cfg.MemoryPages, cfg.PageSize),
		disk:         disk,
		waits:        newWaitIndex(),
		urls:         newURLCache(api),
		access:       newAccessRing(rows),
		tasks:        tasks,
		fs:           fsTasks,
		api:          api,
		streams:      newStreamRegistry(),
		readaheadSem: semaphore.NewWeighted(int64(cfg.MaxConcurrentReadahead)),
	}
	c.flushLoop = util.NewSafeStartStop(func(ctx context.Context) { c.flushOnce(util.Context{Context: ctx}) }, secondsDuration(cfg.FlushPeriodSeconds))
	c.agingLoop = util.NewSafeStartStop(func(ctx context.Context) { c.ageOnce(util.Context{Context: ctx}) }, secondsDuration(cfg.AgingPeriodSeconds))
	return c, nil
}

// Start recovers from any prior abrupt shutdown and launches the
// background flush/aging cycles (spec.md §4.3.8: "on abrupt termination,
// disk-tier consistency is restored ... on next start").
func (c *Cache) Start(ctx util.Context) error {
	if err := c.recover(ctx); err != nil {
		return err
	}
	c.flushLoop.Start()
	c.agingLoop.Start()
	return nil
}

// Stop drains the flush cycle and releases the pagefile handle (spec.md
// §4.3.8: "Shutdown drains flush and releases the pagefile handle").
func (c *Cache) Stop(ctx util.Context) error {
	c.agingLoop.Stop()
	c.flushLoop.Stop()
	c.flushOnce(ctx)
	return c.disk.close()
}
