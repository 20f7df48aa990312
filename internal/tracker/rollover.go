package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dosewise/dosewise/internal/notify"
)

// Rollover resets every medicine's taken markers at local midnight so a
// new day starts with a clean slate, and optionally pushes yesterday's
// adherence summary before wiping.
type Rollover struct {
	tracker *Tracker
	sink    notify.Sink
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewRollover creates the midnight job. It does not start it.
func NewRollover(tracker *Tracker, logger *zap.Logger) *Rollover {
	return &Rollover{
		tracker: tracker,
		logger:  logger,
		cron:    cron.New(),
	}
}

// WithNotifier attaches the sink that receives the daily summary.
func (r *Rollover) WithNotifier(sink notify.Sink) *Rollover {
	r.sink = sink
	return r
}

// Start registers the midnight schedule and launches the cron loop.
func (r *Rollover) Start() error {
	_, err := r.cron.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.Run(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("Midnight rollover scheduled")
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (r *Rollover) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Midnight rollover stopped")
}

// Run performs one rollover: summarize the day that just ended, then
// clear the taken markers. Exported so tests can trigger it directly.
func (r *Rollover) Run(ctx context.Context) {
	yesterday := r.tracker.clock().AddDate(0, 0, -1).Format("2006-01-02")
	r.sendSummary(ctx, yesterday)

	if err := r.tracker.ClearTakenDoses(ctx); err != nil {
		r.logger.Error("Midnight rollover failed to clear taken doses", zap.Error(err))
		return
	}
	r.logger.Info("Taken doses cleared for new day", zap.String("previous_day", yesterday))
}

func (r *Rollover) sendSummary(ctx context.Context, day string) {
	if r.sink == nil {
		return
	}
	summary, err := r.tracker.DailySummary(day)
	if err != nil {
		r.logger.Warn("Daily summary unavailable", zap.String("day", day), zap.Error(err))
		return
	}
	if summary.Total == 0 {
		return
	}
	body := fmt.Sprintf("%s: %d of %d doses taken", day, summary.Taken, summary.Total)
	if err := r.sink.SendImmediate(ctx, "Daily adherence", body); err != nil {
		r.logger.Warn("Daily summary send failed", zap.Error(err))
	}
}
