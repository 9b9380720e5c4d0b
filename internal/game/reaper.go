package game

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultSweepInterval = 30 * time.Second
	defaultIdleTimeout   = 10 * time.Minute
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

type ReaperConfig struct {
	Games         *Service
	SweepInterval time.Duration
	IdleTimeout   time.Duration
	NewTickerFunc func(d time.Duration) Ticker
}

// Reaper periodically abandons games whose participants all went quiet.
type Reaper struct {
	games     *Service
	interval  time.Duration
	timeout   time.Duration
	newTicker func(d time.Duration) Ticker
}

func NewReaper(c ReaperConfig) *Reaper {
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.NewTickerFunc == nil {
		c.NewTickerFunc = func(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }
	}

	return &Reaper{
		games:     c.Games,
		interval:  c.SweepInterval,
		timeout:   c.IdleTimeout,
		newTicker: c.NewTickerFunc,
	}
}

// Run sweeps on every tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	t := r.newTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if n := r.games.Sweep(ctx, r.timeout); n > 0 {
				slog.InfoContext(ctx, "game: reaped idle games", "count", n)
			}
		}
	}
}
