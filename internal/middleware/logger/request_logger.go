package logger

import (
	"time"

	"LiveDock/pkg/back"
	"LiveDock/pkg/util"
	"LiveDock/pkg/xerr"
	"LiveDock/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-Id"

// RequestLogger 记录每个请求的方法、路径、状态码与耗时
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = util.GenerateUUID()
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("requestId", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= 500:
			zlog.Error("request", fields...)
		case c.Writer.Status() >= 400:
			zlog.Warn("request", fields...)
		default:
			zlog.Debug("request", fields...)
		}
	}
}

// Recovery panic 统一返回 500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		zlog.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		back.Abort(c, xerr.ErrServerError.Code, xerr.ErrServerError.Message)
	})
}
