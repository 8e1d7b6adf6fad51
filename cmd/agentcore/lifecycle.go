package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/lookatitude/agentcore/config"
	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/o11y"
)

// storageLifecycle adapts the shared *sql.DB into core.Lifecycle so
// runServe's core.App starts it alongside every other component in
// registration order and stops it in reverse registration order, instead of
// a bare top-level defer.
type storageLifecycle struct {
	db *sql.DB
}

func (s *storageLifecycle) Start(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *storageLifecycle) Stop(ctx context.Context) error {
	return s.db.Close()
}

func (s *storageLifecycle) Health() core.HealthStatus {
	status := core.HealthHealthy
	msg := "connected"
	if err := s.db.Ping(); err != nil {
		status = core.HealthUnhealthy
		msg = err.Error()
	}
	return core.HealthStatus{Status: status, Message: msg, Timestamp: time.Now()}
}

// healthReporter runs an o11y.HealthRegistry on an interval for as long as
// the serve process is up, logging any component that isn't healthy. It is
// itself a core.Lifecycle component so App supervises its goroutine.
type healthReporter struct {
	registry *o11y.HealthRegistry
	interval time.Duration
	log      *o11y.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func newHealthReporter(registry *o11y.HealthRegistry, interval time.Duration, log *o11y.Logger) *healthReporter {
	return &healthReporter{registry: registry, interval: interval, log: log, done: make(chan struct{})}
}

func (h *healthReporter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	go h.run(runCtx)
	return nil
}

func (h *healthReporter) run(ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, result := range h.registry.CheckAll(ctx) {
				if result.Status != o11y.Healthy {
					h.log.Warn(ctx, "component unhealthy", "component", result.Component, "status", string(result.Status), "message", result.Message)
				}
			}
		}
	}
}

func (h *healthReporter) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
	return nil
}

func (h *healthReporter) Health() core.HealthStatus {
	return core.HealthStatus{Status: core.HealthHealthy, Timestamp: time.Now()}
}

// configReloader wraps a config.Watcher as a core.Lifecycle component: Start
// launches the poll loop, Stop releases it. On every detected change it only
// logs that the config file changed and that a restart is needed; no setting
// from the changed file is applied to the running process.
type configReloader struct {
	watcher config.Watcher
	path    string
	log     *o11y.Logger

	done chan struct{}
}

func newConfigReloader(path string, interval time.Duration, log *o11y.Logger) *configReloader {
	return &configReloader{watcher: config.NewFileWatcher(path, interval), path: path, log: log, done: make(chan struct{})}
}

func (c *configReloader) Start(ctx context.Context) error {
	go func() {
		defer close(c.done)
		if err := c.watcher.Watch(ctx, func(newConfig any) {
			c.log.Info(ctx, "config file changed, restart to pick up storage/provider changes", "path", c.path)
		}); err != nil && ctx.Err() == nil {
			c.log.Warn(ctx, "config watcher stopped", "error", err)
		}
	}()
	return nil
}

func (c *configReloader) Stop(ctx context.Context) error {
	err := c.watcher.Close()
	<-c.done
	return err
}

func (c *configReloader) Health() core.HealthStatus {
	return core.HealthStatus{Status: core.HealthHealthy, Timestamp: time.Now()}
}
