package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinMiddleware logs one line per HTTP request.
func GinMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			String("method", c.Request.Method),
			String("path", c.Request.URL.Path),
			String("route", c.FullPath()),
			Int("status", c.Writer.Status()),
			Int("bytes", c.Writer.Size()),
			Duration("latency", time.Since(start)),
			String("client_ip", c.ClientIP()),
			String("user_agent", c.Request.UserAgent()),
		}
		if userID, ok := c.Get("user_id"); ok {
			if id, ok := userID.(uint); ok {
				fields = append(fields, Uint("user_id", id))
			}
		}

		if len(c.Errors) > 0 {
			log.Error("http request", append(fields, String("errors", c.Errors.String()))...)
			return
		}
		if c.Writer.Status() >= 500 {
			log.Warn("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}
