// Package tracker owns the in-memory medicine collection and every
// mutation against it. The durable store is the source of truth: each
// mutation is a read-modify-write cycle followed by a reload, and the
// cached copy is only served between reloads. On a transient read
// failure the tracker keeps serving the last-known-good list instead of
// clearing it.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/dosewise/dosewise/internal/errors"
	"github.com/dosewise/dosewise/internal/history"
	"github.com/dosewise/dosewise/internal/medicine"
	"github.com/dosewise/dosewise/internal/metrics"
	"github.com/dosewise/dosewise/internal/notify"
)

// MedicineStore is the durable collection the tracker reads and writes.
type MedicineStore interface {
	GetAll(ctx context.Context) ([]medicine.Medicine, error)
	SaveAll(ctx context.Context, medicines []medicine.Medicine) error
}

// DoseLog receives one event per taken/untaken toggle and answers
// summary queries.
type DoseLog interface {
	RecordEvent(event *history.DoseEvent) error
	GetDailySummary(day string) (*history.DailySummary, error)
}

// Tracker coordinates the store, the dose log, and the notification
// sink. One instance per process; all mutations are serialized.
type Tracker struct {
	store   MedicineStore
	doseLog DoseLog
	sink    notify.Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   func() time.Time

	mu        sync.Mutex
	medicines []medicine.Medicine
	loaded    bool
}

// New creates a tracker over the given store.
func New(store MedicineStore, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// WithDoseLog attaches the dose history log.
func (t *Tracker) WithDoseLog(doseLog DoseLog) *Tracker {
	t.doseLog = doseLog
	return t
}

// WithNotifier attaches the notification sink.
func (t *Tracker) WithNotifier(sink notify.Sink) *Tracker {
	t.sink = sink
	return t
}

// WithMetrics attaches the Prometheus collectors.
func (t *Tracker) WithMetrics(m *metrics.Metrics) *Tracker {
	t.metrics = m
	return t
}

// WithClock overrides the time source. Tests use this to pin "now".
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// Reload replaces the cached collection from the store. On failure the
// previous cache survives and the error is returned for the caller to
// decide; view reads never propagate it.
func (t *Tracker) Reload(ctx context.Context) error {
	medicines, err := t.store.GetAll(ctx)
	if err != nil {
		if t.metrics != nil {
			t.metrics.StoreErrors.WithLabelValues("get_all").Inc()
		}
		t.logger.Error("Failed to reload medicines, keeping last known state", zap.Error(err))
		return err
	}

	t.mu.Lock()
	t.medicines = medicines
	t.loaded = true
	t.mu.Unlock()
	return nil
}

// GetReminderView recomputes the full view against now. It is a pure
// function of the cached collection and now: no mutation in between
// means identical output.
func (t *Tracker) GetReminderView(ctx context.Context, now time.Time) medicine.ReminderView {
	t.mu.Lock()
	if !t.loaded {
		t.mu.Unlock()
		// Best effort initial load; a failure leaves an empty view rather
		// than an error, per the degrade-don't-crash policy.
		_ = t.Reload(ctx)
		t.mu.Lock()
	}
	medicines := make([]medicine.Medicine, len(t.medicines))
	copy(medicines, t.medicines)
	t.mu.Unlock()

	view := medicine.BuildReminderViewAt(medicines, now)

	if t.metrics != nil {
		t.metrics.Recomputations.Inc()
		t.metrics.LateDoses.Set(float64(view.LateCount))
		t.metrics.TrackedMedicines.Set(float64(len(view.Items)))
	}
	return view
}

// Get returns one medicine by id from the cached collection.
func (t *Tracker) Get(ctx context.Context, id string) (medicine.Medicine, error) {
	t.mu.Lock()
	if !t.loaded {
		t.mu.Unlock()
		_ = t.Reload(ctx)
		t.mu.Lock()
	}
	defer t.mu.Unlock()
	for _, med := range t.medicines {
		if med.ID == id {
			return med, nil
		}
	}
	return medicine.Medicine{}, apperrors.ErrMedicineNotFound
}

// Add validates and persists a new medicine. A missing ID is assigned
// here. Reminder scheduling with the sink is best-effort.
func (t *Tracker) Add(ctx context.Context, med medicine.Medicine) (medicine.Medicine, error) {
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	if err := med.Validate(); err != nil {
		return medicine.Medicine{}, err
	}

	now := t.clock()
	med.CreatedAt = now
	med.UpdatedAt = now

	err := t.mutate(ctx, func(medicines []medicine.Medicine) ([]medicine.Medicine, error) {
		for _, existing := range medicines {
			if existing.ID == med.ID {
				return nil, apperrors.ErrDuplicateID
			}
		}
		return append(medicines, med), nil
	})
	if err != nil {
		return medicine.Medicine{}, err
	}

	t.logger.Info("Medicine added",
		zap.String("medicine_id", med.ID),
		zap.String("name", med.Name),
		zap.Int("slots", len(med.Slots)),
	)
	t.scheduleReminders(ctx, &med)
	return med, nil
}

// Update replaces a medicine record wholesale.
func (t *Tracker) Update(ctx context.Context, med medicine.Medicine) error {
	if err := med.Validate(); err != nil {
		return err
	}
	med.UpdatedAt = t.clock()

	err := t.mutate(ctx, func(medicines []medicine.Medicine) ([]medicine.Medicine, error) {
		for i, existing := range medicines {
			if existing.ID == med.ID {
				med.CreatedAt = existing.CreatedAt
				medicines[i] = med
				return medicines, nil
			}
		}
		return nil, apperrors.ErrMedicineNotFound
	})
	if err != nil {
		return err
	}

	t.logger.Info("Medicine updated", zap.String("medicine_id", med.ID))
	t.scheduleReminders(ctx, &med)
	return nil
}

// Delete removes a medicine by id.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	err := t.mutate(ctx, func(medicines []medicine.Medicine) ([]medicine.Medicine, error) {
		for i, existing := range medicines {
			if existing.ID == id {
				return append(medicines[:i], medicines[i+1:]...), nil
			}
		}
		return nil, apperrors.ErrMedicineNotFound
	})
	if err != nil {
		return err
	}

	t.logger.Info("Medicine deleted", zap.String("medicine_id", id))
	return nil
}

// ToggleTaken flips today's taken state for one dose. An empty slotTime
// targets the earliest enabled slot, matching the slot the status
// calculator judges lateness against. Stock moves with the toggle and a
// crossing of the threshold raises a low-stock alert.
func (t *Tracker) ToggleTaken(ctx context.Context, id, slotTime string) error {
	var (
		toggled  medicine.Medicine
		slot     string
		nowTaken bool
	)

	err := t.mutate(ctx, func(medicines []medicine.Medicine) ([]medicine.Medicine, error) {
		for i := range medicines {
			med := &medicines[i]
			if med.ID != id {
				continue
			}

			slot = slotTime
			if slot == "" {
				enabled := med.EnabledSlots()
				if len(enabled) == 0 {
					return nil, apperrors.Wrap(fmt.Errorf("medicine %s has no enabled reminder slots", id), apperrors.ErrBadRequest.Code, "nothing to toggle")
				}
				slot = enabled[0].Time
			} else if !med.HasSlot(slot) {
				return nil, apperrors.Wrap(fmt.Errorf("medicine %s has no %s slot", id, slot), apperrors.ErrBadRequest.Code, "unknown reminder slot")
			}

			key := med.DoseKey(slot)
			tracksStock := med.Stock.Unit != "" || med.Stock.Threshold > 0
			if med.DoseTaken(slot) {
				nowTaken = false
				for j, taken := range med.TakenDoses {
					if taken == key {
						med.TakenDoses = append(med.TakenDoses[:j], med.TakenDoses[j+1:]...)
						break
					}
				}
				if tracksStock {
					med.Stock.Amount++
				}
			} else {
				nowTaken = true
				med.TakenDoses = append(med.TakenDoses, key)
				if tracksStock && med.Stock.Amount > 0 {
					med.Stock.Amount--
				}
			}
			med.UpdatedAt = t.clock()
			toggled = *med
			return medicines, nil
		}
		return nil, apperrors.ErrMedicineNotFound
	})
	if err != nil {
		return err
	}

	t.recordDoseEvent(&toggled, slot, nowTaken)
	t.checkStock(ctx, &toggled, nowTaken)

	t.logger.Info("Dose toggled",
		zap.String("medicine_id", id),
		zap.String("slot", slot),
		zap.Bool("taken", nowTaken),
	)
	return nil
}

// ClearTakenDoses wipes today's taken markers on every medicine. The
// midnight rollover calls this when the day changes.
func (t *Tracker) ClearTakenDoses(ctx context.Context) error {
	return t.mutate(ctx, func(medicines []medicine.Medicine) ([]medicine.Medicine, error) {
		for i := range medicines {
			medicines[i].TakenDoses = nil
		}
		return medicines, nil
	})
}

// DailySummary answers the dose log's summary for one day.
func (t *Tracker) DailySummary(day string) (*history.DailySummary, error) {
	if t.doseLog == nil {
		return &history.DailySummary{Day: day}, nil
	}
	return t.doseLog.GetDailySummary(day)
}

// mutate runs one serialized read-modify-write cycle: reload from the
// store, apply, persist, reload again so the cache reflects exactly
// what was written.
func (t *Tracker) mutate(ctx context.Context, apply func([]medicine.Medicine) ([]medicine.Medicine, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	medicines, err := t.store.GetAll(ctx)
	if err != nil {
		if t.metrics != nil {
			t.metrics.StoreErrors.WithLabelValues("get_all").Inc()
		}
		return apperrors.Wrap(err, apperrors.ErrStorageRead.Code, apperrors.ErrStorageRead.Message)
	}

	updated, err := apply(medicines)
	if err != nil {
		return err
	}

	if err := t.store.SaveAll(ctx, updated); err != nil {
		if t.metrics != nil {
			t.metrics.StoreErrors.WithLabelValues("save_all").Inc()
		}
		return apperrors.Wrap(err, apperrors.ErrStorageWrite.Code, apperrors.ErrStorageWrite.Message)
	}

	reloaded, err := t.store.GetAll(ctx)
	if err != nil {
		// The write went through; serve what we wrote until the next
		// successful reload.
		t.logger.Warn("Reload after write failed", zap.Error(err))
		reloaded = updated
	}
	t.medicines = reloaded
	t.loaded = true
	return nil
}

func (t *Tracker) scheduleReminders(ctx context.Context, med *medicine.Medicine) {
	if t.sink == nil {
		return
	}
	for _, slot := range med.EnabledSlots() {
		if err := t.sink.ScheduleReminder(ctx, med.Name, slot.Time); err != nil {
			t.logger.Warn("Reminder scheduling failed",
				zap.String("medicine_id", med.ID),
				zap.String("slot", slot.Time),
				zap.Error(err),
			)
		}
	}
}

func (t *Tracker) recordDoseEvent(med *medicine.Medicine, slot string, taken bool) {
	status := history.StatusUntaken
	if taken {
		status = history.StatusTaken
	}
	if t.metrics != nil {
		t.metrics.DoseEvents.WithLabelValues(status).Inc()
	}
	if t.doseLog == nil {
		return
	}
	event := &history.DoseEvent{
		MedicineID:   med.ID,
		MedicineName: med.Name,
		SlotTime:     slot,
		Day:          t.clock().Format(history.DayFormat),
		Status:       status,
		DoseAmount:   med.Dosage.Amount,
		DoseUnit:     med.Dosage.Unit,
		RecordedAt:   t.clock(),
	}
	if err := t.doseLog.RecordEvent(event); err != nil {
		t.logger.Warn("Failed to record dose event",
			zap.String("medicine_id", med.ID),
			zap.Error(err),
		)
	}
}

func (t *Tracker) checkStock(ctx context.Context, med *medicine.Medicine, taken bool) {
	if !taken || t.sink == nil || med.Stock.Threshold <= 0 {
		return
	}
	if med.Stock.Amount == med.Stock.Threshold {
		if t.metrics != nil {
			t.metrics.NotificationsSent.WithLabelValues("low_stock").Inc()
		}
		_ = t.sink.SendImmediate(ctx, "Low stock",
			fmt.Sprintf("%s is down to %d %s", med.Name, med.Stock.Amount, med.Stock.Unit))
	}
}
