package api

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/dosewise/dosewise/internal/errors"
	"github.com/dosewise/dosewise/internal/history"
	"github.com/dosewise/dosewise/internal/medicine"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": s.clock().Unix(),
	})
}

// handleReminders returns the freshly recomputed reminder view. The
// derivation runs on every request; nothing about lateness is cached
// between calls.
func (s *Server) handleReminders(c *fiber.Ctx) error {
	view := s.tracker.GetReminderView(c.Context(), s.clock())
	return c.JSON(view)
}

func (s *Server) handleListMedicines(c *fiber.Ctx) error {
	view := s.tracker.GetReminderView(c.Context(), s.clock())
	medicines := make([]medicine.Medicine, len(view.Items))
	for i, item := range view.Items {
		medicines[i] = item.Medicine
	}
	return c.JSON(medicines)
}

func (s *Server) handleGetMedicine(c *fiber.Ctx) error {
	med, err := s.tracker.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.errorReply(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleCreateMedicine(c *fiber.Ctx) error {
	var med medicine.Medicine
	if err := c.BodyParser(&med); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	added, err := s.tracker.Add(c.Context(), med)
	if err != nil {
		return s.errorReply(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(added)
}

func (s *Server) handleUpdateMedicine(c *fiber.Ctx) error {
	var med medicine.Medicine
	if err := c.BodyParser(&med); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	med.ID = c.Params("id")

	if err := s.tracker.Update(c.Context(), med); err != nil {
		return s.errorReply(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleDeleteMedicine(c *fiber.Ctx) error {
	if err := s.tracker.Delete(c.Context(), c.Params("id")); err != nil {
		return s.errorReply(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleToggleTaken flips today's taken state for one dose. An omitted
// or empty slot_time targets the earliest enabled slot.
func (s *Server) handleToggleTaken(c *fiber.Ctx) error {
	var req toggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
		}
	}

	if err := s.tracker.ToggleTaken(c.Context(), c.Params("id"), req.SlotTime); err != nil {
		return s.errorReply(c, err)
	}

	med, err := s.tracker.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.errorReply(c, err)
	}
	return c.JSON(med)
}

func (s *Server) handleMedicineHistory(c *fiber.Ctx) error {
	if s.doseLog == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "dose history is not configured"})
	}

	endDay := c.Query("end", s.clock().Format(history.DayFormat))
	startDay := c.Query("start", s.clock().AddDate(0, 0, -6).Format(history.DayFormat))

	events, err := s.doseLog.GetEvents(c.Params("id"), startDay, endDay)
	if err != nil {
		return s.errorReply(c, err)
	}
	return c.JSON(events)
}

func (s *Server) handleDailySummary(c *fiber.Ctx) error {
	if s.doseLog == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "dose history is not configured"})
	}

	day := c.Query("day", s.clock().Format(history.DayFormat))
	if _, err := time.Parse(history.DayFormat, day); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "day must be YYYY-MM-DD"})
	}

	summary, err := s.doseLog.GetDailySummary(day)
	if err != nil {
		return s.errorReply(c, err)
	}
	return c.JSON(summary)
}

func (s *Server) handleWeeklySummary(c *fiber.Ctx) error {
	if s.doseLog == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "dose history is not configured"})
	}

	start := c.Query("start", s.clock().AddDate(0, 0, -6).Format(history.DayFormat))
	if _, err := time.Parse(history.DayFormat, start); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "start must be YYYY-MM-DD"})
	}

	summary, err := s.doseLog.GetWeeklySummary(start)
	if err != nil {
		return s.errorReply(c, err)
	}
	return c.JSON(summary)
}

// handleExtract runs an uploaded label photo through the vision
// provider and returns the suggested form values. Extraction failures
// are soft: the client falls back to an empty form.
func (s *Server) handleExtract(c *fiber.Ctx) error {
	if s.extractor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{
			Error: "label extraction is not configured",
			Code:  apperrors.ErrEnrichUnavailable.Code,
		})
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "image file is required"})
	}

	reader, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "unreadable image file"})
	}
	defer reader.Close()

	imageData, err := io.ReadAll(reader)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "unreadable image file"})
	}

	suggestion, err := s.extractor.Extract(c.Context(), imageData, file.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Warn("Label extraction failed", zap.Error(err))
		return s.errorReply(c, err)
	}
	return c.JSON(suggestion)
}

// errorReply maps application errors onto HTTP statuses.
func (s *Server) errorReply(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		s.logger.Error("Unhandled error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case apperrors.ErrMedicineNotFound.Code, apperrors.ErrNotFound.Code:
		status = fiber.StatusNotFound
	case apperrors.ErrDuplicateID.Code:
		status = fiber.StatusConflict
	case apperrors.ErrEnrichUnavailable.Code, apperrors.ErrNotifyUnavailable.Code:
		status = fiber.StatusServiceUnavailable
	case apperrors.ErrEnrichment.Code:
		status = fiber.StatusBadGateway
	default:
		if isValidationCode(appErr.Code) {
			status = fiber.StatusBadRequest
		}
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("code", appErr.Code), zap.Error(err))
	}
	return c.Status(status).JSON(errorResponse{Error: appErr.Message, Code: appErr.Code})
}

func isValidationCode(code string) bool {
	switch code {
	case apperrors.ErrValidation.Code,
		apperrors.ErrMissingName.Code,
		apperrors.ErrInvalidTime.Code,
		apperrors.ErrNegativeDosage.Code,
		apperrors.ErrDuplicateSlot.Code,
		apperrors.ErrInvalidSchedule.Code,
		apperrors.ErrBadRequest.Code:
		return true
	}
	return false
}
