// Package notify delivers reminder and alert messages. Delivery is
// best-effort everywhere: a failing channel is logged and skipped, never
// surfaced to the caller as a hard failure.
package notify

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sink is one notification channel.
type Sink interface {
	Name() string
	// ScheduleReminder announces that a reminder slot was registered for a
	// medicine.
	ScheduleReminder(ctx context.Context, medicineName, slotTime string) error
	// SendImmediate pushes an alert right now (late dose, low stock,
	// emergency).
	SendImmediate(ctx context.Context, title, body string) error
}

// Multi fans out to every configured sink and rate-limits immediate
// alerts so a burst of late doses cannot flood a channel.
type Multi struct {
	sinks   []Sink
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewMulti builds a fan-out over sinks. alertsPerMinute caps
// SendImmediate throughput; zero or negative disables the cap.
func NewMulti(sinks []Sink, alertsPerMinute int, logger *zap.Logger) *Multi {
	var limiter *rate.Limiter
	if alertsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(alertsPerMinute)/60.0), alertsPerMinute)
	}
	return &Multi{sinks: sinks, limiter: limiter, logger: logger}
}

// Name implements Sink.
func (m *Multi) Name() string { return "multi" }

// ScheduleReminder fans out. Failures are logged per sink.
func (m *Multi) ScheduleReminder(ctx context.Context, medicineName, slotTime string) error {
	for _, sink := range m.sinks {
		if err := sink.ScheduleReminder(ctx, medicineName, slotTime); err != nil {
			m.logger.Warn("Failed to schedule reminder",
				zap.String("sink", sink.Name()),
				zap.String("medicine", medicineName),
				zap.String("slot", slotTime),
				zap.Error(err),
			)
		}
	}
	return nil
}

// SendImmediate fans out, dropping the alert entirely when over the rate
// limit.
func (m *Multi) SendImmediate(ctx context.Context, title, body string) error {
	if m.limiter != nil && !m.limiter.Allow() {
		m.logger.Warn("Alert dropped by rate limit", zap.String("title", title))
		return nil
	}
	for _, sink := range m.sinks {
		if err := sink.SendImmediate(ctx, title, body); err != nil {
			m.logger.Warn("Failed to send alert",
				zap.String("sink", sink.Name()),
				zap.String("title", title),
				zap.Error(err),
			)
		}
	}
	return nil
}

// LogSink writes notifications to the application log. It is the default
// sink when no chat channel is configured, and keeps the notification
// path observable in tests.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// ScheduleReminder implements Sink.
func (s *LogSink) ScheduleReminder(ctx context.Context, medicineName, slotTime string) error {
	s.logger.Info("Reminder scheduled",
		zap.String("medicine", medicineName),
		zap.String("slot", slotTime),
	)
	return nil
}

// SendImmediate implements Sink.
func (s *LogSink) SendImmediate(ctx context.Context, title, body string) error {
	s.logger.Info("Notification",
		zap.String("title", title),
		zap.String("body", body),
	)
	return nil
}
