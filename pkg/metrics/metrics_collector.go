package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 支付流程指标
	checkoutTotal      *prometheus.CounterVec
	ipnNotifyTotal     *prometheus.CounterVec
	gatewayCallSeconds *prometheus.HistogramVec
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// GetGlobalCollector 获取全局指标收集器（单例）
func GetGlobalCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = newMetricsCollector()
	})
	return globalCollector
}

func newMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		checkoutTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_total",
				Help: "Total number of checkout attempts",
			},
			[]string{"result"},
		),

		ipnNotifyTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipn_notify_total",
				Help: "Total number of IPN notifications received",
			},
			[]string{"result"},
		),

		gatewayCallSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_call_duration_seconds",
				Help:    "Payment gateway call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCheckout 记录下单结果
func (m *MetricsCollector) RecordCheckout(result string) {
	m.checkoutTotal.WithLabelValues(result).Inc()
}

// RecordIPNNotify 记录 IPN 处理结果
func (m *MetricsCollector) RecordIPNNotify(result string) {
	m.ipnNotifyTotal.WithLabelValues(result).Inc()
}

// RecordGatewayCall 记录网关调用耗时
func (m *MetricsCollector) RecordGatewayCall(operation string, duration time.Duration) {
	m.gatewayCallSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}
