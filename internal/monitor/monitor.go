// Package monitor runs the poll loop: fetch candidates, dedup against the
// store, notify for the new ones, sleep, repeat.
package monitor

import (
	"context"
	"errors"
	"time"

	"dropwatch/internal/catalog"
	"dropwatch/internal/notify"
	"dropwatch/internal/source"
	"dropwatch/internal/store"
	logx "dropwatch/pkg/logx"
)

type Config struct {
	Name      string
	Namespace string
	Schedule  *Schedule

	Source   source.Source
	Store    store.Store
	Notifier *notify.Service
	Meta     notify.Meta

	Log logx.Logger
}

// Monitor owns one source and one store namespace. It is the only goroutine
// touching its source, so the probe cursor needs no locking.
type Monitor struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config) *Monitor {
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Monitor{cfg: cfg, log: log.With(logx.String("monitor", cfg.Name))}
}

func (m *Monitor) Name() string { return m.cfg.Name }

// Run executes cycles until ctx is cancelled. Every cycle is fault-isolated:
// a failing (or panicking) cycle logs, waits out the schedule and tries
// again. Only cancellation ends the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor running",
		logx.String("source", m.cfg.Source.Name()),
		logx.String("schedule", m.cfg.Schedule.String()))

	for {
		m.cycle(ctx)

		wait := m.cfg.Schedule.NextWait(time.Now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			m.log.Info("monitor stopped")
			return nil
		case <-timer.C:
		}
	}
}

// cycle runs one fetch/dedup/notify pass. It never lets an error or panic
// escape to the loop.
func (m *Monitor) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("cycle panicked", logx.Any("panic", r))
		}
	}()

	items, status, err := m.cfg.Source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.log.Warn("fetch failed", logx.Int("status", status), logx.Err(err))
		return
	}

	newCount := 0
	for _, it := range items {
		if m.process(ctx, it, status) {
			newCount++
		}
	}

	if newCount > 0 {
		m.log.Info("found new items", logx.Int("count", newCount), logx.Int("status", status))
	} else {
		m.log.Info("no new items found", logx.Int("status", status))
	}
}

// process dedups one candidate and notifies when it is new. Returns true
// only when this cycle inserted the item.
func (m *Monitor) process(ctx context.Context, it catalog.Item, status int) bool {
	inserted, err := m.cfg.Store.Insert(ctx, m.cfg.Namespace, it)
	if err != nil {
		// Transient store failure: item stays un-saved and un-notified;
		// the next cycle will see it again.
		m.log.Warn("store insert failed", logx.String("item_id", it.ID), logx.Err(err))
		return false
	}
	if !inserted {
		m.log.Debug("item already exists", logx.String("item_id", it.ID), logx.Int("status", status))
		return false
	}

	m.log.Info("found new item", logx.String("item_id", it.ID), logx.Int("status", status))
	m.cfg.Notifier.Notify(ctx, it, m.cfg.Meta)
	return true
}
