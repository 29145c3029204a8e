package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/api/v1/health", s.health)
	s.router.GET("/api/v1/is_subscribed", s.isSubscribed)
	s.router.GET("/api/v1/pool", s.poolStatus)
}
