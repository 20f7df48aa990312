package medicine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/dosewise/dosewise/internal/errors"
)

// Frequency values. Only daily recurrence is evaluated by the status
// calculator; the rest are informational.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyCustom  = "custom"
)

// Medicine type vocabulary. Affects display only, never scheduling.
var KnownTypes = []string{"tablet", "capsule", "syrup", "injection", "drops", "cream", "spray", "other"}

// Dosage units.
var KnownUnits = []string{"mg", "ml", "mcg", "gr", "tablet", "capsule", "drop", "puff"}

// Dosage is the amount of one dose.
type Dosage struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// ReminderSlot is a single daily time at which a dose is expected.
type ReminderSlot struct {
	Time    string `json:"time"` // "HH:MM", 24-hour
	Enabled bool   `json:"enabled"`
}

// Schedule bounds the days a medicine is active, inclusive on both ends.
// A nil EndDate means active indefinitely from StartDate.
type Schedule struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Stock tracks remaining supply. Threshold is the level at which a
// low-stock warning fires.
type Stock struct {
	Amount    int    `json:"amount"`
	Unit      string `json:"unit,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
}

// Medicine is one prescribed item with its daily reminder slots.
// TakenDoses holds per-slot dose keys ("{id}-{time}") recorded for the
// current day; it is cleared by the midnight rollover.
type Medicine struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Dosage     Dosage         `json:"dosage"`
	Type       string         `json:"type,omitempty"`
	Frequency  string         `json:"frequency,omitempty"`
	Slots      []ReminderSlot `json:"slots"`
	TakenDoses []string       `json:"taken_doses,omitempty"`
	Schedule   Schedule       `json:"schedule"`
	Stock      Stock          `json:"stock,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// DoseKey returns the identifier recorded in TakenDoses for a slot time.
func (m *Medicine) DoseKey(slotTime string) string {
	return m.ID + "-" + slotTime
}

// DoseTaken reports whether the dose at slotTime was marked taken today.
func (m *Medicine) DoseTaken(slotTime string) bool {
	key := m.DoseKey(slotTime)
	for _, taken := range m.TakenDoses {
		if taken == key {
			return true
		}
	}
	return false
}

// HasSlot reports whether a reminder slot with the given time exists,
// enabled or not.
func (m *Medicine) HasSlot(slotTime string) bool {
	for _, slot := range m.Slots {
		if slot.Time == slotTime {
			return true
		}
	}
	return false
}

// EnabledSlots returns the enabled slots in clock-time order. Slots with
// unparseable times are skipped rather than treated as errors. The sort is
// stable so equal times keep their original position.
func (m *Medicine) EnabledSlots() []ReminderSlot {
	type timedSlot struct {
		slot   ReminderSlot
		minute int
	}
	timed := make([]timedSlot, 0, len(m.Slots))
	for _, slot := range m.Slots {
		if !slot.Enabled {
			continue
		}
		minute, err := ParseClockTime(slot.Time)
		if err != nil {
			continue
		}
		timed = append(timed, timedSlot{slot: slot, minute: minute})
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].minute < timed[j].minute
	})

	slots := make([]ReminderSlot, len(timed))
	for i, ts := range timed {
		slots[i] = ts.slot
	}
	return slots
}

// ActiveOn reports whether the medicine's schedule covers the given day.
func (m *Medicine) ActiveOn(day time.Time) bool {
	y, mo, d := day.Date()
	day = time.Date(y, mo, d, 0, 0, 0, 0, day.Location())

	if !m.Schedule.StartDate.IsZero() {
		sy, sm, sd := m.Schedule.StartDate.Date()
		start := time.Date(sy, sm, sd, 0, 0, 0, 0, day.Location())
		if day.Before(start) {
			return false
		}
	}
	if m.Schedule.EndDate != nil {
		ey, em, ed := m.Schedule.EndDate.Date()
		end := time.Date(ey, em, ed, 0, 0, 0, 0, day.Location())
		if day.After(end) {
			return false
		}
	}
	return true
}

// ParseClockTime converts an "HH:MM" string to minutes since midnight.
func ParseClockTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return hour*60 + minute, nil
}

// MinuteOfDay returns t as minutes since midnight in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Validate enforces the write-boundary invariants: non-empty name,
// non-negative dosage, valid and unique slot times, and a schedule whose
// end does not precede its start. Missing or odd data that only affects
// status derivation is not rejected here.
func (m *Medicine) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return apperrors.ErrMissingName
	}
	if m.Dosage.Amount < 0 {
		return apperrors.ErrNegativeDosage
	}

	seen := make(map[string]bool, len(m.Slots))
	for _, slot := range m.Slots {
		if _, err := ParseClockTime(slot.Time); err != nil {
			return apperrors.Wrap(err, apperrors.ErrInvalidTime.Code, apperrors.ErrInvalidTime.Message)
		}
		if seen[slot.Time] {
			return apperrors.Wrap(fmt.Errorf("time %s repeats", slot.Time), apperrors.ErrDuplicateSlot.Code, apperrors.ErrDuplicateSlot.Message)
		}
		seen[slot.Time] = true
	}

	if m.Schedule.EndDate != nil && !m.Schedule.StartDate.IsZero() && m.Schedule.EndDate.Before(m.Schedule.StartDate) {
		return apperrors.ErrInvalidSchedule
	}
	return nil
}
