package routes

import (
	"net/http"

	"github.com/client-geomap/app/controllers"
	"github.com/gin-gonic/gin"
)

// Controllers every handler the router mounts
type Controllers struct {
	Clients *controllers.ClientController
	Geocode *controllers.GeocodeController
	Admin   *controllers.AdminController
}

// SetupAPIRoutes mounts the /v1 API
func SetupAPIRoutes(router *gin.Engine, ctrl Controllers) {
	v1 := router.Group("/v1")
	{
		clients := v1.Group("/clients")
		{
			clients.GET("", ctrl.Clients.ListClients)
			clients.GET("/stream", ctrl.Clients.StreamClients)
			clients.POST("/refresh", ctrl.Clients.Refresh)
			clients.GET("/:id", ctrl.Clients.GetClient)
			clients.POST("/:id/insights", ctrl.Clients.Insights)
		}

		v1.GET("/source", ctrl.Clients.GetSource)
		v1.PUT("/source", ctrl.Clients.SetSource)

		geocode := v1.Group("/geocode")
		{
			geocode.POST("", ctrl.Geocode.Geocode)
			geocode.POST("/batch", ctrl.Geocode.BatchGeocode)
			geocode.POST("/normalize", ctrl.Geocode.Normalize)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/status", ctrl.Admin.Status)
			admin.GET("/cache/stats", ctrl.Admin.CacheStats)
			admin.DELETE("/cache", ctrl.Admin.ClearCache)
			admin.POST("/cache/delete", ctrl.Admin.DeleteCacheEntries)
		}

		v1.GET("/health", ctrl.Admin.HealthCheck)
	}
}

// SetupHealthRoutes probes for load balancers and orchestrators
func SetupHealthRoutes(router *gin.Engine, admin *controllers.AdminController) {
	router.GET("/health", admin.HealthCheck)
	router.GET("/ready", admin.HealthCheck)
	router.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
}

// SetupAllRoutes installs middleware and every route group
func SetupAllRoutes(router *gin.Engine, ctrl Controllers) {
	setupMiddleware(router)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, ctrl.Admin)
	SetupAPIRoutes(router, ctrl)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "ROUTE_NOT_FOUND",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

func setupMiddleware(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(requestID())
}
