package http_api

import "github.com/gin-gonic/gin"

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes(auth gin.HandlerFunc) {
	s.router.GET("/api/v1/health", s.health)

	api := s.router.Group("/api/v1", auth)
	api.GET("/users/:id/balance", s.balance)
	api.POST("/users/:id/address", s.createAddress)
	api.PUT("/users/:id/notification", s.setNotification)
	api.GET("/addresses/:address", s.lookupAddress)

	api.POST("/deposits", s.ingestDeposit)
	api.GET("/deposits/:tx_hash", s.depositStatus)
	api.POST("/withdrawals", s.withdraw)
	api.GET("/events/:id", s.event)

	api.POST("/tips", s.tip)
	api.POST("/reactdrops", s.startReactdrop)
	api.GET("/reactdrops", s.listReactdrops)
	api.DELETE("/reactdrops/:id", s.cancelReactdrop)
}
