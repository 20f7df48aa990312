package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dosewise/dosewise/internal/medicine"
)

func newTestScheduler(tr *Tracker, sink *recordingSink) *Scheduler {
	return NewScheduler(tr, zap.NewNop()).WithNotifier(sink)
}

func TestSchedulerAlertsOnceWhenDoseTurnsLate(t *testing.T) {
	store := &fakeStore{medicines: []medicine.Medicine{testMedicine("m1", "Aspirin", "08:00")}}
	sink := &recordingSink{}
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	tr := New(store, zap.NewNop()).WithClock(func() time.Time { return now })
	sched := newTestScheduler(tr, sink)
	ctx := context.Background()

	// Inside the grace window: no alert.
	sched.Check(ctx)
	assert.Empty(t, sink.alerts)

	// Past the threshold: exactly one alert, repeated checks stay quiet.
	now = time.Date(2026, 3, 10, 8, 12, 0, 0, time.UTC)
	sched.Check(ctx)
	sched.Check(ctx)
	sched.Check(ctx)

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "Medication reminder", sink.alerts[0].title)
	assert.Contains(t, sink.alerts[0].body, "Aspirin")
	assert.Contains(t, sink.alerts[0].body, "12 minutes overdue")
}

func TestSchedulerRearmsAfterToggleRoundTrip(t *testing.T) {
	store := &fakeStore{medicines: []medicine.Medicine{testMedicine("m1", "Aspirin", "08:00")}}
	sink := &recordingSink{}
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	tr := New(store, zap.NewNop()).WithClock(func() time.Time { return now })
	sched := newTestScheduler(tr, sink)
	ctx := context.Background()

	sched.Check(ctx)
	require.Len(t, sink.alerts, 1)

	// Taking the dose clears lateness and re-arms the alert.
	require.NoError(t, tr.ToggleTaken(ctx, "m1", "08:00"))
	sched.Check(ctx)
	require.Len(t, sink.alerts, 1)

	// Untaking while still past the threshold alerts again.
	require.NoError(t, tr.ToggleTaken(ctx, "m1", "08:00"))
	sched.Check(ctx)
	require.Len(t, sink.alerts, 2)
}

func TestSchedulerSurvivesStoreReadFailure(t *testing.T) {
	store := &fakeStore{medicines: []medicine.Medicine{testMedicine("m1", "Aspirin", "08:00")}}
	sink := &recordingSink{}
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	tr := New(store, zap.NewNop()).WithClock(func() time.Time { return now })
	require.NoError(t, tr.Reload(context.Background()))

	sched := newTestScheduler(tr, sink)
	store.failRead = true

	// The check runs against the last known good collection.
	sched.Check(context.Background())
	require.Len(t, sink.alerts, 1)
}

func TestSchedulerStartStop(t *testing.T) {
	store := &fakeStore{}
	tr := New(store, zap.NewNop())
	sched := NewScheduler(tr, zap.NewNop()).WithInterval(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	sched.Start(ctx) // second start is a no-op
	sched.Stop()
	sched.Stop() // second stop is a no-op
}

func TestSchedulerClampsInterval(t *testing.T) {
	sched := NewScheduler(New(&fakeStore{}, zap.NewNop()), zap.NewNop()).
		WithInterval(10 * time.Millisecond)
	assert.Equal(t, time.Second, sched.interval)
}
