// Package history keeps the durable dose log in SQLite and derives
// daily and weekly adherence summaries from it.
package history

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DayFormat is the calendar-day key used throughout the dose log.
const DayFormat = "2006-01-02"

// Store handles dose log persistence.
type Store struct {
	db *gorm.DB
}

// Open opens the dose log database at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return NewStore(db)
}

// NewStore wraps an existing gorm connection and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	store := &Store{db: db}
	if err := db.AutoMigrate(&DoseEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate dose log schema: %w", err)
	}
	return store, nil
}

func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "dose_" + hex.EncodeToString(bytes)
}

// RecordEvent appends one dose event to the log.
func (s *Store) RecordEvent(event *DoseEvent) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}
	if event.Day == "" {
		event.Day = event.RecordedAt.Format(DayFormat)
	}
	return s.db.Create(event).Error
}

// GetEvents returns events filtered by medicine and day range. Empty
// filters are skipped.
func (s *Store) GetEvents(medicineID, startDay, endDay string) ([]DoseEvent, error) {
	query := s.db.Model(&DoseEvent{})
	if medicineID != "" {
		query = query.Where("medicine_id = ?", medicineID)
	}
	if startDay != "" {
		query = query.Where("day >= ?", startDay)
	}
	if endDay != "" {
		query = query.Where("day <= ?", endDay)
	}

	var events []DoseEvent
	err := query.Order("recorded_at ASC").Find(&events).Error
	return events, err
}

// GetDailySummary aggregates all events of one day. An untaken event
// cancels out a prior taken one, so the counts reflect the day's final
// state per (medicine, slot) pair.
func (s *Store) GetDailySummary(day string) (*DailySummary, error) {
	events, err := s.GetEvents("", day, day)
	if err != nil {
		return nil, err
	}

	final := make(map[string]string, len(events))
	for _, event := range events {
		final[event.MedicineID+"-"+event.SlotTime] = event.Status
	}

	summary := &DailySummary{Day: day, Events: events}
	for _, status := range final {
		summary.Total++
		switch status {
		case StatusTaken:
			summary.Taken++
		case StatusSkipped:
			summary.Skipped++
		}
	}
	return summary, nil
}

// GetWeeklySummary aggregates the seven days starting at startDay.
func (s *Store) GetWeeklySummary(startDay string) (*WeeklySummary, error) {
	start, err := time.Parse(DayFormat, startDay)
	if err != nil {
		return nil, fmt.Errorf("invalid start day %q: %w", startDay, err)
	}

	summary := &WeeklySummary{
		StartDay: startDay,
		EndDay:   start.AddDate(0, 0, 6).Format(DayFormat),
	}

	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i).Format(DayFormat)
		daily, err := s.GetDailySummary(day)
		if err != nil {
			return nil, err
		}
		daily.Events = nil // keep the weekly payload small
		summary.Days = append(summary.Days, *daily)
		summary.Total += daily.Total
		summary.Taken += daily.Taken
		summary.Skipped += daily.Skipped
	}

	if summary.Total > 0 {
		summary.AdherenceRate = float64(summary.Taken) / float64(summary.Total) * 100
	}
	return summary, nil
}
