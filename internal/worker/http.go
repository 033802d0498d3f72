package worker

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHealth mounts the worker's only operator-facing route
// beyond Prometheus /metrics (wired separately via promhttp).
func RegisterHealth(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
}
