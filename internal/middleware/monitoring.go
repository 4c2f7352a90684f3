package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"corpsite/backend/internal/monitoring"
)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics) *MonitoringMiddleware {
	return &MonitoringMiddleware{metrics: metrics}
}

// HTTPMetrics HTTP 指标中间件
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
			int64(c.Writer.Size()),
		)

		if c.Writer.Status() >= http.StatusInternalServerError {
			mm.metrics.RecordError("http_error", "http")
		}
	}
}

// BusinessMetrics 根据路由与结果记录业务指标
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		ok := status >= 200 && status < 300

		switch c.FullPath() {
		case "/api/contact":
			if c.Request.Method == http.MethodPost && ok {
				mm.metrics.RecordContactReceived()
			}
		case "/api/admin/messages/:id":
			switch {
			case c.Request.Method == http.MethodDelete && ok:
				mm.metrics.RecordMessageDeleted()
			case c.Request.Method == http.MethodPatch && ok:
				mm.metrics.RecordFlagsUpdated()
			}
		case "/api/admin/reply":
			mm.recordMail("reply", status)
		case "/api/admin/forward":
			mm.recordMail("forward", status)
		}
	}
}

func (mm *MonitoringMiddleware) recordMail(kind string, status int) {
	switch {
	case status >= 200 && status < 300:
		mm.metrics.RecordMailSent(kind)
	case status >= http.StatusInternalServerError:
		mm.metrics.RecordMailFailed(kind)
	}
}
