package api

func (s *Server) setupRoutes() {
	s.setupMiddleware()

	s.app.Get("/api/health", s.handleHealth)

	v1 := s.app.Group("/api/v1")

	v1.Get("/reminders", s.handleReminders)

	v1.Get("/medicines", s.handleListMedicines)
	v1.Post("/medicines", s.handleCreateMedicine)
	v1.Get("/medicines/:id", s.handleGetMedicine)
	v1.Put("/medicines/:id", s.handleUpdateMedicine)
	v1.Delete("/medicines/:id", s.handleDeleteMedicine)
	v1.Post("/medicines/:id/toggle", s.handleToggleTaken)
	v1.Get("/medicines/:id/history", s.handleMedicineHistory)

	v1.Get("/history/daily", s.handleDailySummary)
	v1.Get("/history/weekly", s.handleWeeklySummary)

	v1.Post("/extract", s.handleExtract)
}
