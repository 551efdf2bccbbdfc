package conn

import (
	"context"
	"sync"
	"time"

	"github.com/cloudvault/enginecore/framework/config"
	"golang.org/x/time/rate"
)

type entry struct {
	L        *rate.Limiter
	LastUsed time.Time
}

// hostLimiter hands out a per-host rate.Limiter, pruning limiters unused
// for longer than pruneAge. Grounded on
// go-fed-apcore/framework/conn/host_limiter.go, retargeted from the
// ActivityPub outbound-delivery config knobs to apiclient's.
type hostLimiter struct {
	// Immutable
	limit       rate.Limit
	burst       int
	prunePeriod time.Duration
	pruneAge    time.Duration
	wg          sync.WaitGroup
	// Mutable
	pruneTicker *time.Ticker
	pruneCtx    context.Context
	pruneCancel context.CancelFunc
	pMu         sync.Mutex
	m           map[string]entry
	mu          sync.Mutex
}

func newHostLimiter(c *config.Config) *hostLimiter {
	return &hostLimiter{
		limit:       rate.Limit(c.ApiClientConfig.RateLimitQPS),
		burst:       c.ApiClientConfig.RateLimitBurst,
		prunePeriod: time.Duration(c.ApiClientConfig.RateLimiterPruneSecs) * time.Second,
		pruneAge:    time.Duration(c.ApiClientConfig.RateLimiterPruneSecs) * time.Second,
		m:           make(map[string]entry),
	}
}

func (h *hostLimiter) Start() {
	h.resetMap()
	h.goPrune()
}

func (h *hostLimiter) Stop() {
	h.stopPrune()
}

func (h *hostLimiter) Get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.m[host]
	if ok {
		e.LastUsed = time.Now()
		h.m[host] = e
		return e.L
	} else {
		e = entry{
			L:        rate.NewLimiter(h.limit, h.burst),
			LastUsed: time.Now(),
		}
		h.m[host] = e
		return e.L
	}
}

func (h *hostLimiter) resetMap() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m = make(map[string]entry)
}

func (h *hostLimiter) stopPrune() {
	h.pMu.Lock()
	cancel := h.pruneCancel
	h.pMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	h.wg.Wait()
}

func (h *hostLimiter) goPrune() {
	h.pMu.Lock()
	defer h.pMu.Unlock()
	if h.pruneTicker != nil {
		return
	}
	h.pruneTicker = time.NewTicker(h.prunePeriod)
	h.pruneCtx, h.pruneCancel = context.WithCancel(context.Background())
	h.wg.Add(1)
	go func() {
		defer func() {
			h.pMu.Lock()
			defer h.pMu.Unlock()
			h.pruneTicker.Stop()
			h.pruneTicker = nil
			h.pruneCtx = nil
			h.pruneCancel = nil
			h.wg.Done()
		}()
		for {
			select {
			case <-h.pruneTicker.C:
				h.prune()
			case <-h.pruneCtx.Done():
				return
			}
		}
	}()
}

func (h *hostLimiter) prune() {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	for k, v := range h.m {
		if now.Sub(v.LastUsed) > h.pruneAge {
			delete(h.m, k)
		}
	}
}
