package http

// registerV1Routes sets up the v1 API.
// Groups: /api/v1/records, /stations, /reports, /delivery-notes, /messages
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())
	v1.Use(sessionMiddleware(s.cfg.Stations))

	// Weighing records - leg submission and admin corrections
	records := v1.Group("/records")
	{
		if s.cfg.RateLimit > 0 {
			records.POST("/legs", rateLimitMiddleware(s.cfg.RateLimit), s.handleV1RecordLeg)
		} else {
			records.POST("/legs", s.handleV1RecordLeg)
		}
		records.GET("", s.handleV1ListRecords)
		records.GET("/:id", s.handleV1GetRecord)
		records.PUT("/:id", s.handleV1EditRecord)
		records.DELETE("/:id", s.handleV1DeleteRecord)
		records.POST("/bulk-delete", s.handleV1BulkDeleteRecords)
	}

	// Station configuration and live scale
	stations := v1.Group("/stations")
	{
		stations.GET("", s.handleV1ListStations)
		stations.PUT("/price", s.handleV1SetPriceAll)
		stations.GET("/:id/config", s.handleV1StationConfig)
		stations.PUT("/:id/price", s.handleV1SetPrice)
		stations.PUT("/:id/discount", s.handleV1SetDiscount)
		stations.GET("/:id/prices", s.handleV1PriceHistory)
		stations.GET("/:id/scale", s.handleV1ScaleReading)
	}

	// Reports over stored settlement figures
	reports := v1.Group("/reports")
	{
		reports.GET("/summary", s.handleV1ReportSummary)
		reports.GET("/daily", s.handleV1ReportDaily)
		reports.GET("/comparison", s.handleV1ReportComparison)
	}

	// Delivery notes (surat pengantar)
	notes := v1.Group("/delivery-notes")
	{
		notes.GET("", s.handleV1ListDeliveryNotes)
		notes.POST("", s.handleV1CreateDeliveryNote)
		notes.GET("/search", s.handleV1SearchDeliveryNotes)
		notes.GET("/totals", s.handleV1DeliveryNoteTotals)
		notes.GET("/totals/by-fruit-type", s.handleV1DeliveryNoteTotalsByFruitType)
		notes.GET("/:id", s.handleV1GetDeliveryNote)
		notes.PUT("/:id", s.handleV1UpdateDeliveryNote)
		notes.DELETE("/:id", s.handleV1DeleteDeliveryNote)
	}

	messages := v1.Group("/messages")
	{
		messages.GET("", s.handleV1ListMessages)
		messages.POST("", s.handleV1PostMessage)
	}
}
