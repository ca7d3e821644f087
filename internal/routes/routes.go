package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/loci-visits/internal/app/domain/verification"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/visits"
)

type AppHandlers struct {
	Verification *verification.Handler
	Visits       *visits.Handler
}

// Setup registers the health probe and the authenticated /api/v1 routes.
func Setup(r *gin.Engine, h *AppHandlers, auth gin.HandlerFunc) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", auth)
	{
		api.POST("/verify", h.Verification.Verify)
		api.POST("/verify/confirm", h.Verification.Confirm)
		api.GET("/verify/status", h.Verification.Status)

		api.POST("/visits", h.Visits.MarkVisited)
		api.GET("/visits", h.Visits.List)
	}
}
