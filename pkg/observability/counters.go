package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// Counters is an in-memory implementation of every hook interface.
// All methods are safe for concurrent use.
type Counters struct {
	layouts      atomic.Int64
	layoutErrors atomic.Int64
	layoutNanos  atomic.Int64

	renders      atomic.Int64
	renderErrors atomic.Int64
	renderBytes  atomic.Int64
	renderNanos  atomic.Int64

	changes atomic.Int64

	checks  atomic.Int64
	notify  atomic.Int64
	retries atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	cacheSets   atomic.Int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// Stats is a point-in-time copy of [Counters], shaped for JSON.
type Stats struct {
	Layouts      int64         `json:"layouts"`
	LayoutErrors int64         `json:"layout_errors"`
	LayoutTime   time.Duration `json:"layout_time_ns"`
	Renders      int64         `json:"renders"`
	RenderErrors int64         `json:"render_errors"`
	RenderBytes  int64         `json:"render_bytes"`
	RenderTime   time.Duration `json:"render_time_ns"`
	Changes      int64         `json:"changes"`
	Checks       int64         `json:"watch_checks"`
	Notifies     int64         `json:"watch_notifies"`
	Retries      int64         `json:"watch_retries"`
	CacheHits    int64         `json:"cache_hits"`
	CacheMisses  int64         `json:"cache_misses"`
	CacheSets    int64         `json:"cache_sets"`
}

// Snapshot returns the current values.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Layouts:      c.layouts.Load(),
		LayoutErrors: c.layoutErrors.Load(),
		LayoutTime:   time.Duration(c.layoutNanos.Load()),
		Renders:      c.renders.Load(),
		RenderErrors: c.renderErrors.Load(),
		RenderBytes:  c.renderBytes.Load(),
		RenderTime:   time.Duration(c.renderNanos.Load()),
		Changes:      c.changes.Load(),
		Checks:       c.checks.Load(),
		Notifies:     c.notify.Load(),
		Retries:      c.retries.Load(),
		CacheHits:    c.cacheHits.Load(),
		CacheMisses:  c.cacheMisses.Load(),
		CacheSets:    c.cacheSets.Load(),
	}
}

func (c *Counters) OnLayoutStart(context.Context, string, string) {}

func (c *Counters) OnLayoutComplete(_ context.Context, _, _ string, d time.Duration, err error) {
	if err != nil {
		c.layoutErrors.Add(1)
		return
	}
	c.layouts.Add(1)
	c.layoutNanos.Add(int64(d))
}

func (c *Counters) OnRenderStart(context.Context, string, string) {}

func (c *Counters) OnRenderComplete(_ context.Context, _, _ string, size int, d time.Duration, err error) {
	if err != nil {
		c.renderErrors.Add(1)
		return
	}
	c.renders.Add(1)
	c.renderBytes.Add(int64(size))
	c.renderNanos.Add(int64(d))
}

func (c *Counters) OnChanged(context.Context, string, bool) { c.changes.Add(1) }

func (c *Counters) OnCheck(context.Context, string, bool) { c.checks.Add(1) }

func (c *Counters) OnNotify(_ context.Context, _ string, retry bool) {
	c.notify.Add(1)
	if retry {
		c.retries.Add(1)
	}
}

func (c *Counters) OnCacheHit(context.Context, string)      { c.cacheHits.Add(1) }
func (c *Counters) OnCacheMiss(context.Context, string)     { c.cacheMisses.Add(1) }
func (c *Counters) OnCacheSet(context.Context, string, int) { c.cacheSets.Add(1) }

var (
	_ DocumentHooks = (*Counters)(nil)
	_ WatchHooks    = (*Counters)(nil)
	_ CacheHooks    = (*Counters)(nil)
)
