// Package reaper reclaims storage held by expired sessions. Expiry is
// enforced lazily at resolution time, so the sweep affects only disk
// usage, never semantics.
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"blog-server/internal/service"
)

// Reaper periodically purges expired sessions from the store.
type Reaper interface {
	Start(ctx context.Context) error
	Shutdown()
}

type Config struct {
	Interval time.Duration
	Logger   *logrus.Logger
}

type reaper struct {
	cfg      Config
	sessions service.SessionService

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg Config, sessions service.SessionService) Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &reaper{
		cfg:      cfg,
		sessions: sessions,
	}
}

func (r *reaper) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.loop(ctx)

	r.cfg.Logger.Infof("session reaper started, interval %s", r.cfg.Interval)
	return nil
}

func (r *reaper) Shutdown() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.cfg.Logger.Info("session reaper stopped")
}

func (r *reaper) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *reaper) sweep(ctx context.Context) {
	purged, err := r.sessions.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.cfg.Logger.Warnf("purge expired sessions: %v", err)
		}
		return
	}
	if purged > 0 {
		r.cfg.Logger.Infof("purged %d expired sessions", purged)
	}
}
