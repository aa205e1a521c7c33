package scoreboard

import (
	"log/slog"
	"sync"
	"time"
)

// Janitor periodically expires stale matches and addresses. Matches older
// than the retention window are gone next sweep, whatever the request
// traffic looks like.
type Janitor struct {
	engine    *Engine
	log       *slog.Logger
	interval  time.Duration
	retention time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewJanitor(engine *Engine, log *slog.Logger, interval, retention time.Duration) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		engine:    engine,
		log:       log,
		interval:  interval,
		retention: retention,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	go j.run()
}

func (j *Janitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.SweepNow()
		}
	}
}

// SweepNow runs one sweep with the configured retention window. Tests
// call this (or Engine.Sweep with their own cutoff) instead of waiting
// out the ticker.
func (j *Janitor) SweepNow() {
	cutoff := time.Now().Add(-j.retention)
	matches, addresses := j.engine.Sweep(cutoff)
	if matches > 0 || addresses > 0 {
		j.log.Info("janitor sweep", "matches_removed", matches, "addresses_removed", addresses)
	}
}

// Stop halts the loop and waits for the in-flight sweep, if any. Safe to
// call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
	})
	<-j.done
}
