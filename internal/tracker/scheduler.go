package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dosewise/dosewise/internal/medicine"
	"github.com/dosewise/dosewise/internal/metrics"
	"github.com/dosewise/dosewise/internal/notify"
)

// Scheduler recomputes the reminder view on a fixed interval so
// lateness transitions are noticed even when no client is asking. A
// dose that crosses the late threshold between ticks produces exactly
// one alert; acknowledging and un-acknowledging re-arms it.
type Scheduler struct {
	tracker  *Tracker
	sink     notify.Sink
	metrics  *metrics.Metrics
	logger   *zap.Logger
	interval time.Duration

	mu       sync.Mutex
	alerted  map[string]bool
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler over the tracker. interval is how
// often the view is recomputed; values below one second are clamped.
func NewScheduler(tracker *Tracker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tracker:  tracker,
		logger:   logger,
		interval: 30 * time.Second,
		alerted:  make(map[string]bool),
	}
}

// WithInterval overrides the polling interval.
func (s *Scheduler) WithInterval(interval time.Duration) *Scheduler {
	if interval < time.Second {
		interval = time.Second
	}
	s.interval = interval
	return s
}

// WithNotifier attaches the sink that receives late-dose alerts.
func (s *Scheduler) WithNotifier(sink notify.Sink) *Scheduler {
	s.sink = sink
	return s
}

// WithMetrics attaches the Prometheus collectors.
func (s *Scheduler) WithMetrics(m *metrics.Metrics) *Scheduler {
	s.metrics = m
	return s
}

// Start launches the polling loop. The first check runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Reminder scheduler started", zap.Duration("interval", s.interval))
}

// Stop halts the loop and waits for the in-flight check to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Reminder scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduler panic recovered", zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check runs one recompute cycle: refresh from the store, rebuild the
// view, and alert on doses that turned late since the previous cycle.
// Exported so tests and the rollover job can drive cycles directly.
func (s *Scheduler) Check(ctx context.Context) {
	// A failed reload is not fatal; the view is built from the last
	// known good state.
	_ = s.tracker.Reload(ctx)

	view := s.tracker.GetReminderView(ctx, s.tracker.clock())

	nowLate := make(map[string]bool, view.LateCount)
	for _, item := range view.Items {
		if !item.Status.IsLate {
			continue
		}
		key := item.Medicine.DoseKey(item.SlotTime)
		nowLate[key] = true
		s.maybeAlert(ctx, key, item)
	}

	// Doses no longer late (taken, toggled, or rolled over) re-arm.
	s.mu.Lock()
	for key := range s.alerted {
		if !nowLate[key] {
			delete(s.alerted, key)
		}
	}
	s.mu.Unlock()
}

func (s *Scheduler) maybeAlert(ctx context.Context, key string, item medicine.ReminderItem) {
	s.mu.Lock()
	already := s.alerted[key]
	s.alerted[key] = true
	s.mu.Unlock()
	if already || s.sink == nil {
		return
	}

	minutesLate := 0
	if item.Status.MinutesLate != nil {
		minutesLate = *item.Status.MinutesLate
	}
	body := fmt.Sprintf("%s (%s) is %d minutes overdue", item.Medicine.Name, item.SlotTime, minutesLate)
	if err := s.sink.SendImmediate(ctx, "Medication reminder", body); err != nil {
		s.logger.Warn("Late-dose alert failed",
			zap.String("medicine_id", item.Medicine.ID),
			zap.Error(err),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues("late_dose").Inc()
	}
	s.logger.Info("Late-dose alert sent",
		zap.String("medicine_id", item.Medicine.ID),
		zap.String("slot", item.SlotTime),
		zap.Int("minutes_late", minutesLate),
	)
}
