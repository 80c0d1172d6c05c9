package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
)

// RequestLogger logs one line per request with its status and latency
func RequestLogger(logger log.Logger) gin.HandlerFunc {
	helper := log.NewHelper(log.With(logger, "module", "middleware/http"))

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"msg", "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.String(); errs != "" {
			kv = append(kv, "errors", errs)
		}

		switch {
		case status >= 500:
			helper.Errorw(kv...)
		case status >= 400:
			helper.Warnw(kv...)
		default:
			helper.Infow(kv...)
		}
	}
}
