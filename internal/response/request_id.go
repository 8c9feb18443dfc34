package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKeyRequestID is the Gin context key for the request ID.
const ContextKeyRequestID = "request_id"

// RequestIDMiddleware assigns every request an ID, honoring one supplied by
// the client, and echoes it in the X-Request-ID response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// RequestID returns the request's assigned ID, minting one when the
// middleware did not run.
func RequestID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyRequestID)
	id, ok := v.(string)
	if !ok || id == "" {
		return uuid.New().String()
	}
	return id
}
