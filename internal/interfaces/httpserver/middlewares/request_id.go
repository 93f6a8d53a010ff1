package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the correlation header read from callers and echoed
// on every response.
const HeaderRequestID = "X-Request-Id"

const ctxKeyRequestID = "request_id"

// RequestID tags each request with a correlation id: the caller's when one
// is supplied, a fresh uuid otherwise. The id is echoed on the response so
// a browser client can quote it when reporting a failed stream.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFromContext returns the correlation id RequestID assigned, or
// an empty string outside the middleware chain.
func RequestIDFromContext(c *gin.Context) string {
	val, _ := c.Get(ctxKeyRequestID)
	id, _ := val.(string)
	return id
}
