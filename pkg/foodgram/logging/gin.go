package logging

import (
	"time"

	"github.com/gin-gonic/gin"
)

// UserIDKey is read from the gin context to tag request lines; the auth
// middleware stores the authenticated user id under it.
const UserIDKey = "user_id"

// GinLogger writes one structured line per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		l := Logger()
		event := l.Info()
		switch {
		case status >= 500:
			event = l.Error()
		case status >= 400:
			event = l.Warn()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("size", c.Writer.Size())
		if query != "" {
			event = event.Str("query", query)
		}
		if id, ok := c.Get(UserIDKey); ok {
			event = event.Interface("user_id", id)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}
