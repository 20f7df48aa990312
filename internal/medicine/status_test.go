package medicine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleSlotMedicine(id, name, slotTime string) Medicine {
	return Medicine{
		ID:        id,
		Name:      name,
		Dosage:    Dosage{Amount: 10, Unit: "mg"},
		Frequency: FrequencyDaily,
		Slots:     []ReminderSlot{{Time: slotTime, Enabled: true}},
	}
}

func minuteOf(clock string) int {
	m, err := ParseClockTime(clock)
	if err != nil {
		panic(err)
	}
	return m
}

func TestCalculateStatus_GracePeriod(t *testing.T) {
	med := singleSlotMedicine("1", "Lisinopril", "08:00")
	slot := minuteOf("08:00")

	// Not late anywhere inside [T, T+9].
	for offset := 0; offset <= 9; offset++ {
		status := CalculateStatus(&med, slot+offset)
		assert.False(t, status.IsLate, "offset %d should be within grace", offset)
		require.NotNil(t, status.MinutesLate)
		assert.Equal(t, offset, *status.MinutesLate)
		assert.Nil(t, status.MinutesUntil)
	}

	// Late at T+10 and beyond.
	for _, offset := range []int{10, 11, 45, 300} {
		status := CalculateStatus(&med, slot+offset)
		assert.True(t, status.IsLate, "offset %d should be late", offset)
		require.NotNil(t, status.MinutesLate)
		assert.Equal(t, offset, *status.MinutesLate)
	}
}

func TestCalculateStatus_TakenSuppressesLateness(t *testing.T) {
	med := singleSlotMedicine("1", "Lisinopril", "08:00")
	med.TakenDoses = []string{med.DoseKey("08:00")}

	for _, now := range []string{"08:00", "08:10", "12:00", "23:59"} {
		status := CalculateStatus(&med, minuteOf(now))
		assert.False(t, status.IsLate, "taken dose must never be late at %s", now)
	}

	// Offsets stay defined even when taken.
	status := CalculateStatus(&med, minuteOf("08:15"))
	require.NotNil(t, status.MinutesLate)
	assert.Equal(t, 15, *status.MinutesLate)
}

func TestCalculateStatus_Scenarios(t *testing.T) {
	med := singleSlotMedicine("1", "Lisinopril", "08:00")

	t.Run("late by 15 at 08:15", func(t *testing.T) {
		status := CalculateStatus(&med, 495)
		assert.True(t, status.IsLate)
		require.NotNil(t, status.MinutesLate)
		assert.Equal(t, 15, *status.MinutesLate)
		assert.Nil(t, status.MinutesUntil)
	})

	t.Run("within grace at 08:05", func(t *testing.T) {
		status := CalculateStatus(&med, 485)
		assert.False(t, status.IsLate)
		require.NotNil(t, status.MinutesLate)
		assert.Equal(t, 5, *status.MinutesLate)
		assert.Nil(t, status.MinutesUntil)
	})

	t.Run("upcoming in 10 at 07:50", func(t *testing.T) {
		status := CalculateStatus(&med, minuteOf("07:50"))
		assert.False(t, status.IsLate)
		assert.Nil(t, status.MinutesLate)
		require.NotNil(t, status.MinutesUntil)
		assert.Equal(t, 10, *status.MinutesUntil)
	})
}

func TestCalculateStatus_EarliestEnabledSlotPolicy(t *testing.T) {
	// Lateness is always judged against the earliest enabled slot of the
	// day, not the nearest past slot.
	med := Medicine{
		ID:   "1",
		Name: "Metformin",
		Slots: []ReminderSlot{
			{Time: "20:00", Enabled: true},
			{Time: "08:00", Enabled: true},
		},
	}

	status := CalculateStatus(&med, minuteOf("20:05"))
	assert.True(t, status.IsLate)
	require.NotNil(t, status.MinutesLate)
	assert.Equal(t, 725, *status.MinutesLate, "delta is measured from the 08:00 slot")

	// Taking the morning dose clears lateness for the day under this policy.
	med.TakenDoses = []string{med.DoseKey("08:00")}
	status = CalculateStatus(&med, minuteOf("20:05"))
	assert.False(t, status.IsLate)
}

func TestCalculateStatus_DisabledSlotsIgnored(t *testing.T) {
	med := Medicine{
		ID:   "1",
		Name: "Aspirin",
		Slots: []ReminderSlot{
			{Time: "08:00", Enabled: false},
			{Time: "12:00", Enabled: true},
		},
	}

	status := CalculateStatus(&med, minuteOf("09:00"))
	assert.False(t, status.IsLate)
	require.NotNil(t, status.MinutesUntil)
	assert.Equal(t, 180, *status.MinutesUntil)
}

func TestCalculateStatus_NoUsableSlots(t *testing.T) {
	tests := []struct {
		name  string
		slots []ReminderSlot
	}{
		{"no slots", nil},
		{"all disabled", []ReminderSlot{{Time: "08:00", Enabled: false}}},
		{"unparseable time", []ReminderSlot{{Time: "8 o'clock", Enabled: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := Medicine{ID: "1", Name: "Ghost", Slots: tt.slots}
			status := CalculateStatus(&med, minuteOf("12:00"))
			assert.False(t, status.IsLate)
			assert.Nil(t, status.MinutesLate)
			assert.Nil(t, status.MinutesUntil)
		})
	}
}

func TestCalculateStatus_MidnightBoundaries(t *testing.T) {
	// The calculator works within a single calendar day on purpose; there
	// is no circular 24h distance. Both boundaries pin that behavior down.

	t.Run("23:59 slot evaluated at 00:01", func(t *testing.T) {
		med := singleSlotMedicine("1", "Melatonin", "23:59")
		status := CalculateStatus(&med, minuteOf("00:01"))
		assert.False(t, status.IsLate)
		require.NotNil(t, status.MinutesUntil)
		assert.Equal(t, 1438, *status.MinutesUntil, "reads as nearly a day away, not two minutes late")
	})

	t.Run("00:01 slot evaluated at 23:59", func(t *testing.T) {
		med := singleSlotMedicine("1", "Levothyroxine", "00:01")
		status := CalculateStatus(&med, minuteOf("23:59"))
		assert.True(t, status.IsLate)
		require.NotNil(t, status.MinutesLate)
		assert.Equal(t, 1438, *status.MinutesLate, "reads as nearly a day late, not two minutes away")
	})
}

func TestBuildReminderView_Ordering(t *testing.T) {
	now := minuteOf("10:00")

	a := singleSlotMedicine("a", "Late by 12", "09:48")
	b := singleSlotMedicine("b", "Upcoming in 30", "10:30")
	c := singleSlotMedicine("c", "Upcoming in 5", "10:05")
	d := Medicine{ID: "d", Name: "No reminders"}

	view := BuildReminderView([]Medicine{a, b, c, d}, now)

	require.Len(t, view.Items, 4)
	assert.Equal(t, "a", view.Items[0].Medicine.ID)
	assert.Equal(t, "c", view.Items[1].Medicine.ID)
	assert.Equal(t, "b", view.Items[2].Medicine.ID)
	assert.Equal(t, "d", view.Items[3].Medicine.ID)
	assert.Equal(t, 1, view.LateCount)
}

func TestBuildReminderView_GraceWindowSortsAsDueNow(t *testing.T) {
	now := minuteOf("10:00")

	upcoming := singleSlotMedicine("u", "Upcoming in 5", "10:05")
	inGrace := singleSlotMedicine("g", "Due 3 minutes ago", "09:57")

	view := BuildReminderView([]Medicine{upcoming, inGrace}, now)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "g", view.Items[0].Medicine.ID, "a dose inside the grace window outranks upcoming doses")
	assert.Equal(t, "u", view.Items[1].Medicine.ID)
	assert.Equal(t, 0, view.LateCount)
}

func TestBuildReminderView_LateCount(t *testing.T) {
	now := minuteOf("12:00")

	t.Run("empty collection", func(t *testing.T) {
		view := BuildReminderView(nil, now)
		assert.Empty(t, view.Items)
		assert.Zero(t, view.LateCount)
	})

	t.Run("count matches late items", func(t *testing.T) {
		meds := []Medicine{
			singleSlotMedicine("1", "Late", "08:00"),
			singleSlotMedicine("2", "Also late", "09:00"),
			singleSlotMedicine("3", "Upcoming", "18:00"),
		}
		taken := singleSlotMedicine("4", "Taken", "07:00")
		taken.TakenDoses = []string{taken.DoseKey("07:00")}
		meds = append(meds, taken)

		view := BuildReminderView(meds, now)
		assert.Equal(t, 2, view.LateCount)

		counted := 0
		for _, item := range view.Items {
			if item.Status.IsLate {
				counted++
			}
		}
		assert.Equal(t, view.LateCount, counted)
	})
}

func TestBuildReminderView_StableAcrossRuns(t *testing.T) {
	now := minuteOf("14:00")
	meds := []Medicine{
		singleSlotMedicine("1", "A", "08:00"),
		singleSlotMedicine("2", "B", "15:00"),
		{ID: "3", Name: "C"},
		{ID: "4", Name: "D"},
		singleSlotMedicine("5", "E", "14:30"),
	}

	first := BuildReminderView(meds, now)
	second := BuildReminderView(meds, now)

	require.Equal(t, len(first.Items), len(second.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i].Medicine.ID, second.Items[i].Medicine.ID)
		assert.Equal(t, first.Items[i].Status, second.Items[i].Status)
	}
	assert.Equal(t, first.LateCount, second.LateCount)

	// Medicines with no usable slots keep their collection order.
	last := first.Items[len(first.Items)-2:]
	assert.Equal(t, "3", last[0].Medicine.ID)
	assert.Equal(t, "4", last[1].Medicine.ID)
}

func TestBuildReminderViewAt_ScheduleBounds(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	active := singleSlotMedicine("active", "Current course", "08:00")
	active.Schedule.StartDate = now.AddDate(0, 0, -5)

	ended := singleSlotMedicine("ended", "Finished course", "08:00")
	ended.Schedule.StartDate = now.AddDate(0, 0, -30)
	endDate := now.AddDate(0, 0, -2)
	ended.Schedule.EndDate = &endDate

	future := singleSlotMedicine("future", "Starts next week", "08:00")
	future.Schedule.StartDate = now.AddDate(0, 0, 7)

	view := BuildReminderViewAt([]Medicine{ended, active, future}, now)

	require.Len(t, view.Items, 3)
	assert.Equal(t, "active", view.Items[0].Medicine.ID)
	assert.True(t, view.Items[0].Status.IsLate)
	assert.Equal(t, 1, view.LateCount)

	// Out-of-range medicines derive no status and fall to the tail.
	assert.Equal(t, "ended", view.Items[1].Medicine.ID)
	assert.False(t, view.Items[1].Status.IsLate)
	assert.Nil(t, view.Items[1].Status.MinutesLate)
	assert.Equal(t, "future", view.Items[2].Medicine.ID)
}
