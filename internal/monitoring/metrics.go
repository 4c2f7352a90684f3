package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 来信指标
	ContactsReceived prometheus.Counter
	MessagesDeleted  prometheus.Counter
	FlagsUpdated     prometheus.Counter

	// 出站邮件指标，kind = reply | forward
	MailsSent   *prometheus.CounterVec
	MailsFailed *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标，每个实例使用独立的 Registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpsite_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpsite_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpsite_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		ContactsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpsite_contacts_received_total",
			Help: "Total number of contact form submissions stored",
		}),

		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpsite_messages_deleted_total",
			Help: "Total number of contact messages deleted by admins",
		}),

		FlagsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpsite_message_flags_updated_total",
			Help: "Total number of read/starred flag updates",
		}),

		MailsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpsite_mails_sent_total",
				Help: "Total number of outbound replies and forwards",
			},
			[]string{"kind"},
		),

		MailsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpsite_mails_failed_total",
				Help: "Total number of failed reply and forward requests",
			},
			[]string{"kind"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpsite_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpsite_panics_total",
			Help: "Total number of recovered panics",
		}),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpsite_rate_limit_blocks_total",
				Help: "Total number of requests rejected by rate limiting",
			},
			[]string{"limit_type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordContactReceived 记录一条新来信
func (m *Metrics) RecordContactReceived() {
	m.ContactsReceived.Inc()
}

// RecordMessageDeleted 记录来信删除
func (m *Metrics) RecordMessageDeleted() {
	m.MessagesDeleted.Inc()
}

// RecordFlagsUpdated 记录标记更新
func (m *Metrics) RecordFlagsUpdated() {
	m.FlagsUpdated.Inc()
}

// RecordMailSent 记录出站邮件成功
func (m *Metrics) RecordMailSent(kind string) {
	m.MailsSent.WithLabelValues(kind).Inc()
}

// RecordMailFailed 记录出站邮件失败
func (m *Metrics) RecordMailFailed(kind string) {
	m.MailsFailed.WithLabelValues(kind).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流拒绝
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPHandler 返回 Prometheus 抓取端点
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
