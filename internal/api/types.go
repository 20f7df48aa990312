package api

import (
	"context"

	"github.com/dosewise/dosewise/internal/enrich"
	"github.com/dosewise/dosewise/internal/history"
)

// DoseHistory answers adherence queries for the history endpoints.
type DoseHistory interface {
	GetEvents(medicineID, startDay, endDay string) ([]history.DoseEvent, error)
	GetDailySummary(day string) (*history.DailySummary, error)
	GetWeeklySummary(startDay string) (*history.WeeklySummary, error)
}

// LabelExtractor turns a photographed medicine label into a pre-filled
// suggestion.
type LabelExtractor interface {
	Extract(ctx context.Context, imageData []byte, mimeType string) (*enrich.Suggestion, error)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type toggleRequest struct {
	SlotTime string `json:"slot_time"`
}
