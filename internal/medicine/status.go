package medicine

import (
	"sort"
	"time"
)

// LateThresholdMinutes is the grace period: a dose is not late until this
// many minutes past its scheduled time.
const LateThresholdMinutes = 10

// DerivedStatus is the ephemeral per-medicine state computed against "now".
// It is never persisted; callers recompute it on every read. A nil offset
// means the value is undefined for the current instant.
type DerivedStatus struct {
	IsLate       bool `json:"is_late"`
	MinutesLate  *int `json:"minutes_late,omitempty"`
	MinutesUntil *int `json:"minutes_until,omitempty"`
}

// hasOffset reports whether either offset is defined.
func (s DerivedStatus) hasOffset() bool {
	return s.MinutesLate != nil || s.MinutesUntil != nil
}

// CalculateStatus derives a medicine's status at nowMinute, expressed as
// minutes since midnight (0..1439). The relevant slot for lateness is the
// earliest enabled slot of the day; its dose being recorded taken suppresses
// lateness regardless of the delta. A medicine with no usable slots yields
// the no-status result.
//
// The arithmetic is confined to a single calendar day: a "23:50" slot
// evaluated at "00:05" reads as almost a full day late, not ten minutes
// away. See status_test.go for the boundary behavior.
func CalculateStatus(m *Medicine, nowMinute int) DerivedStatus {
	slots := m.EnabledSlots()
	if len(slots) == 0 {
		return DerivedStatus{}
	}

	next := slots[0]
	slotMinute, err := ParseClockTime(next.Time)
	if err != nil {
		return DerivedStatus{}
	}

	delta := nowMinute - slotMinute
	taken := m.DoseTaken(next.Time)

	status := DerivedStatus{
		IsLate: !taken && delta >= LateThresholdMinutes,
	}
	if delta >= 0 {
		status.MinutesLate = &delta
	} else {
		until := -delta
		status.MinutesUntil = &until
	}
	return status
}

// ReminderItem pairs a medicine with its freshly derived status.
// SlotTime is the slot the status was judged against, empty when the
// medicine has no usable slot or is outside its schedule.
type ReminderItem struct {
	Medicine Medicine      `json:"medicine"`
	SlotTime string        `json:"slot_time,omitempty"`
	Status   DerivedStatus `json:"status"`
}

// ReminderView is the ordered reminder list plus the late-dose count that
// drives the attention badge.
type ReminderView struct {
	Items     []ReminderItem `json:"items"`
	LateCount int            `json:"late_count"`
}

// BuildReminderView derives statuses for the whole collection and sorts:
// late medicines first, then upcoming by soonest, medicines with no active
// reminder last. The sort is stable, so ties and the no-reminder tail keep
// collection order. A dose inside the grace window (past but not yet late)
// sorts as due-now, ahead of anything still upcoming.
func BuildReminderView(medicines []Medicine, nowMinute int) ReminderView {
	return buildView(medicines, func(m *Medicine) DerivedStatus {
		return CalculateStatus(m, nowMinute)
	})
}

// BuildReminderViewAt is BuildReminderView with schedule awareness: a
// medicine whose start/end dates do not cover now's day yields the
// no-status result and sorts with the tail.
func BuildReminderViewAt(medicines []Medicine, now time.Time) ReminderView {
	nowMinute := MinuteOfDay(now)
	return buildView(medicines, func(m *Medicine) DerivedStatus {
		if !m.ActiveOn(now) {
			return DerivedStatus{}
		}
		return CalculateStatus(m, nowMinute)
	})
}

func buildView(medicines []Medicine, derive func(*Medicine) DerivedStatus) ReminderView {
	items := make([]ReminderItem, len(medicines))
	lateCount := 0
	for i, m := range medicines {
		status := derive(&m)
		if status.IsLate {
			lateCount++
		}
		slotTime := ""
		if status.hasOffset() {
			if slots := m.EnabledSlots(); len(slots) > 0 {
				slotTime = slots[0].Time
			}
		}
		items[i] = ReminderItem{Medicine: m, SlotTime: slotTime, Status: status}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Status, items[j].Status

		if a.IsLate != b.IsLate {
			return a.IsLate
		}
		if a.IsLate {
			return false // late items keep collection order
		}
		if a.hasOffset() != b.hasOffset() {
			return a.hasOffset()
		}
		if !a.hasOffset() {
			return false // no-reminder tail keeps collection order
		}
		return sortKey(a) < sortKey(b)
	})

	return ReminderView{Items: items, LateCount: lateCount}
}

// sortKey orders non-late medicines with a defined offset. A dose already
// past its slot but inside the grace window counts as due immediately.
func sortKey(s DerivedStatus) int {
	if s.MinutesUntil != nil {
		return *s.MinutesUntil
	}
	return 0
}
