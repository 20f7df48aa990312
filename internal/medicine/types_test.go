package medicine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dosewise/dosewise/internal/errors"
)

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		input   string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"23:59", 1439, false},
		{"12:30", 750, false},
		{"24:00", 0, true},
		{"08:60", 0, true},
		{"-1:00", 0, true},
		{"8am", 0, true},
		{"", 0, true},
		{"08:00:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClockTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.minutes, got)
		})
	}
}

func TestMinuteOfDay(t *testing.T) {
	at := time.Date(2026, time.January, 5, 8, 15, 42, 0, time.UTC)
	assert.Equal(t, 495, MinuteOfDay(at))
}

func TestMedicine_Validate(t *testing.T) {
	valid := func() Medicine {
		return Medicine{
			ID:     "med_1",
			Name:   "Lisinopril",
			Dosage: Dosage{Amount: 10, Unit: "mg"},
			Type:   "tablet",
			Slots: []ReminderSlot{
				{Time: "08:00", Enabled: true},
				{Time: "20:00", Enabled: true},
			},
		}
	}

	t.Run("valid record passes", func(t *testing.T) {
		med := valid()
		assert.NoError(t, med.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		med := valid()
		med.Name = "   "
		err := med.Validate()
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrMissingName.Code, apperrors.GetCode(err))
	})

	t.Run("negative dosage", func(t *testing.T) {
		med := valid()
		med.Dosage.Amount = -1
		err := med.Validate()
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrNegativeDosage.Code, apperrors.GetCode(err))
	})

	t.Run("invalid slot time", func(t *testing.T) {
		med := valid()
		med.Slots = append(med.Slots, ReminderSlot{Time: "25:00", Enabled: true})
		err := med.Validate()
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrInvalidTime.Code, apperrors.GetCode(err))
	})

	t.Run("duplicate slot times", func(t *testing.T) {
		med := valid()
		med.Slots = append(med.Slots, ReminderSlot{Time: "08:00", Enabled: false})
		err := med.Validate()
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrDuplicateSlot.Code, apperrors.GetCode(err))
	})

	t.Run("end date before start date", func(t *testing.T) {
		med := valid()
		med.Schedule.StartDate = time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
		end := med.Schedule.StartDate.AddDate(0, 0, -1)
		med.Schedule.EndDate = &end
		err := med.Validate()
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrInvalidSchedule.Code, apperrors.GetCode(err))
	})

	t.Run("zero dosage allowed", func(t *testing.T) {
		med := valid()
		med.Dosage.Amount = 0
		assert.NoError(t, med.Validate())
	})
}

func TestMedicine_EnabledSlots(t *testing.T) {
	med := Medicine{
		ID: "1",
		Slots: []ReminderSlot{
			{Time: "20:00", Enabled: true},
			{Time: "08:00", Enabled: true},
			{Time: "12:00", Enabled: false},
			{Time: "nonsense", Enabled: true},
		},
	}

	slots := med.EnabledSlots()
	require.Len(t, slots, 2)
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, "20:00", slots[1].Time)
}

func TestMedicine_DoseTaken(t *testing.T) {
	med := Medicine{ID: "med_1"}
	assert.False(t, med.DoseTaken("08:00"))

	med.TakenDoses = []string{"med_1-08:00"}
	assert.True(t, med.DoseTaken("08:00"))
	assert.False(t, med.DoseTaken("20:00"))

	assert.Equal(t, "med_1-20:00", med.DoseKey("20:00"))
}

func TestMedicine_ActiveOn(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)

	med := Medicine{
		ID:       "1",
		Schedule: Schedule{StartDate: start, EndDate: &end},
	}

	assert.False(t, med.ActiveOn(start.AddDate(0, 0, -1)))
	assert.True(t, med.ActiveOn(start), "start date is inclusive")
	assert.True(t, med.ActiveOn(start.AddDate(0, 0, 15)))
	assert.True(t, med.ActiveOn(end), "end date is inclusive")
	assert.False(t, med.ActiveOn(end.AddDate(0, 0, 1)))

	t.Run("open ended", func(t *testing.T) {
		med := Medicine{ID: "2", Schedule: Schedule{StartDate: start}}
		assert.True(t, med.ActiveOn(start.AddDate(10, 0, 0)))
	})

	t.Run("no schedule means always active", func(t *testing.T) {
		med := Medicine{ID: "3"}
		assert.True(t, med.ActiveOn(time.Now()))
	})
}
