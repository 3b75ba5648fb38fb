package routes

import (
	"github.com/client-geomap/app/controllers"
	"github.com/client-geomap/helpers/utils"
	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// requestID reuses the caller's X-Request-ID or assigns a fresh uuid
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = utils.GenerateUUID()
		}
		c.Set(controllers.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
