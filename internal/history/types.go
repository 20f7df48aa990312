package history

import "time"

// Dose event statuses.
const (
	StatusTaken   = "taken"
	StatusUntaken = "untaken"
	StatusSkipped = "skipped"
)

// DoseEvent records one taken/untaken/skipped action against a reminder
// slot. Day is the local calendar day ("2006-01-02") the dose belonged to,
// which may differ from RecordedAt's day when a dose is logged after
// midnight.
type DoseEvent struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	MedicineID   string    `json:"medicine_id" gorm:"index:idx_med_day"`
	MedicineName string    `json:"medicine_name"`
	SlotTime     string    `json:"slot_time"` // "HH:MM"
	Day          string    `json:"day" gorm:"index:idx_med_day"`
	Status       string    `json:"status"`
	DoseAmount   float64   `json:"dose_amount,omitempty"`
	DoseUnit     string    `json:"dose_unit,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// DailySummary aggregates one day's dose events.
type DailySummary struct {
	Day     string      `json:"day"`
	Total   int         `json:"total"`
	Taken   int         `json:"taken"`
	Skipped int         `json:"skipped"`
	Events  []DoseEvent `json:"events,omitempty"`
}

// WeeklySummary aggregates seven days of dose events, with an adherence
// rate in 0..100.
type WeeklySummary struct {
	StartDay      string         `json:"start_day"`
	EndDay        string         `json:"end_day"`
	Days          []DailySummary `json:"days"`
	Total         int            `json:"total"`
	Taken         int            `json:"taken"`
	Skipped       int            `json:"skipped"`
	AdherenceRate float64        `json:"adherence_rate"`
}
