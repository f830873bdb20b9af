package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"duck-presale.backend/pkg/logger"
	"duck-presale.backend/pkg/utils"
)

const RequestIDKey = "request_id"

// RequestIDMiddleware tags every request with an id, honoring an inbound
// X-Request-ID so gateway webhook deliveries stay traceable end to end.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = utils.GenerateUUIDv7().String()
		}

		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)

		// mirror into the request context so logger.WithContext picks it up
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
