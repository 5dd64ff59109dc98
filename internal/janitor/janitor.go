// Package janitor runs the server's periodic jobs: closing auctions whose
// deadline passed, saving every room, and dropping abandoned rooms.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AuctionSweeper settles expired auctions.
type AuctionSweeper interface {
	SweepAuctions(ctx context.Context, now time.Time) int
}

// RoomKeeper persists and prunes rooms.
type RoomKeeper interface {
	SaveAll(ctx context.Context) error
	Sweep(ctx context.Context, idle, finished time.Duration) []string
}

// Config holds the cron schedules and room lifetimes.
type Config struct {
	AuctionSpec  string
	AutosaveSpec string
	CleanupSpec  string
	IdleTimeout  time.Duration
	FinishedTTL  time.Duration
}

// DefaultConfig returns the standard schedules.
func DefaultConfig() Config {
	return Config{
		AuctionSpec:  "@every 1s",
		AutosaveSpec: "@every 60s",
		CleanupSpec:  "@every 5m",
		IdleTimeout:  30 * time.Minute,
		FinishedTTL:  10 * time.Minute,
	}
}

// Janitor owns the cron scheduler.
type Janitor struct {
	cron     *cron.Cron
	cfg      Config
	auctions AuctionSweeper
	rooms    RoomKeeper
	logger   *zap.Logger
	now      func() time.Time
}

// New registers the jobs. It fails on an unparsable schedule.
func New(cfg Config, auctions AuctionSweeper, rooms RoomKeeper, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	j := &Janitor{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		cfg:      cfg,
		auctions: auctions,
		rooms:    rooms,
		logger:   logger,
		now:      time.Now,
	}
	jobs := []struct {
		name, spec string
		fn         func()
	}{
		{"auctions", cfg.AuctionSpec, j.SweepAuctions},
		{"autosave", cfg.AutosaveSpec, j.Autosave},
		{"cleanup", cfg.CleanupSpec, j.Cleanup},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := j.cron.AddFunc(job.spec, job.fn); err != nil {
			return nil, fmt.Errorf("schedule %s job %q: %w", job.name, job.spec, err)
		}
	}
	return j, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (j *Janitor) Run(ctx context.Context) error {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	return nil
}

// SweepAuctions closes auctions past their deadline.
func (j *Janitor) SweepAuctions() {
	if n := j.auctions.SweepAuctions(context.Background(), j.now()); n > 0 {
		j.logger.Info("auctions closed", zap.Int("count", n))
	}
}

// Autosave persists every room.
func (j *Janitor) Autosave() {
	if err := j.rooms.SaveAll(context.Background()); err != nil {
		j.logger.Error("autosave failed", zap.Error(err))
	}
}

// Cleanup drops idle and finished rooms.
func (j *Janitor) Cleanup() {
	removed := j.rooms.Sweep(context.Background(), j.cfg.IdleTimeout, j.cfg.FinishedTTL)
	if len(removed) > 0 {
		j.logger.Info("rooms cleaned up", zap.Strings("rooms", removed))
	}
}

// cronLogger routes the scheduler's own messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
