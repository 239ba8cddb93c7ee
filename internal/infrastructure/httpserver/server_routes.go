package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.JWT.RequireJWT())

	api.POST("/session", s.startSession)
	api.DELETE("/session", s.endSession)

	protected := api.Group("")
	protected.Use(s.middleware.Session.ResolveSession())

	nav := protected.Group("/navigation")
	nav.POST("/track", s.trackNavigation)
	nav.POST("/optimize", s.optimizeNavigation)
	nav.GET("/analytics", s.navigationAnalytics)
	nav.GET("/readiness/:screen", s.screenReadiness)
	nav.POST("/suspend", s.suspendPreloads)
	nav.POST("/resume", s.resumePreloads)

	cache := protected.Group("/cache", s.middleware.RateLimit.Handler())
	cache.POST("/rewarm", s.rewarmCache)
	cache.POST("/refresh/:kind", s.refreshCache)

	protected.GET("/me", s.getMe)
	protected.GET("/events", s.listEvents)
	protected.POST("/events/:id/registrations", s.registerForEvent)
	protected.DELETE("/events/:id/registrations", s.cancelRegistration)
	protected.GET("/events/:id/registrations", s.listEventRegistrations, s.middleware.Role.RequireAdmin())

	vol := protected.Group("/volunteer")
	vol.GET("/events", s.listVolunteerEvents)
	vol.GET("/registrations", s.listVolunteerRegistrations)

	admin := protected.Group("/admin", s.middleware.Role.RequireAdmin())
	admin.GET("/events", s.listAdminEvents)
	admin.GET("/registrations", s.listAdminRegistrations)
	admin.POST("/events", s.createEvent)
	admin.DELETE("/events/:id", s.deleteEvent)
}
