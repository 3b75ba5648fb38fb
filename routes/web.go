package routes

import (
	"net/http"

	"github.com/client-geomap/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes service banner and endpoint listing
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		web.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message": "Client Geomap Service",
				"version": controllers.Version,
				"docs":    "/docs",
			})
		})

		web.GET("/docs", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"api": "Client Geomap API v1",
				"endpoints": map[string]string{
					"clients":       "GET /v1/clients?q=&located=&limit=",
					"client":        "GET /v1/clients/:id",
					"stream":        "GET /v1/clients/stream (text/event-stream)",
					"refresh":       "POST /v1/clients/refresh",
					"insights":      "POST /v1/clients/:id/insights",
					"source":        "GET|PUT /v1/source",
					"geocode":       "POST /v1/geocode",
					"geocode_batch": "POST /v1/geocode/batch",
					"normalize":     "POST /v1/geocode/normalize",
					"admin_status":  "GET /v1/admin/status",
					"cache_stats":   "GET /v1/admin/cache/stats",
					"cache_clear":   "DELETE /v1/admin/cache",
					"cache_delete":  "POST /v1/admin/cache/delete",
					"health":        "GET /health",
				},
			})
		})
	}
}
