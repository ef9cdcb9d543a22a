package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics Prometheus 指标集合；nil 接收者上的方法均为空操作，便于测试
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	catalogRequests *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	reconciles      *prometheus.CounterVec
	mailsTotal      *prometheus.CounterVec
	reportsTotal    *prometheus.CounterVec
	cleanupRemoved  *prometheus.CounterVec
}

// New 创建并注册到独立的 registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "obscura_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		catalogRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_catalog_requests_total",
				Help: "Upstream TMDB calls by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"}, // success, error
		),
		catalogDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "obscura_catalog_request_duration_seconds",
				Help:    "Upstream TMDB latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
			},
			[]string{"endpoint"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_catalog_cache_lookups_total",
				Help: "Catalog cache lookups by result",
			},
			[]string{"result"}, // hit, miss
		),
		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_reconciles_total",
				Help: "Show status reconciliations by resulting status",
			},
			[]string{"status"},
		),
		mailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_mails_total",
				Help: "Transactional emails by kind and outcome",
			},
			[]string{"kind", "outcome"}, // sent, failed, throttled
		),
		reportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_reports_total",
				Help: "Generated PDF reports by range",
			},
			[]string{"range"},
		),
		cleanupRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "obscura_cleanup_removed_total",
				Help: "Rows touched by the scheduled cleanup",
			},
			[]string{"kind"}, // tokens, users
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.catalogRequests,
		m.catalogDuration,
		m.cacheLookups,
		m.reconciles,
		m.mailsTotal,
		m.reportsTotal,
		m.cleanupRemoved,
	)
	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCatalog 记录一次上游调用
func (m *Metrics) ObserveCatalog(endpoint string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.catalogRequests.WithLabelValues(endpoint, outcome).Inc()
	m.catalogDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// CacheLookup 记录缓存命中情况
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// Reconciled 记录一次剧集状态汇总
func (m *Metrics) Reconciled(status string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(status).Inc()
}

// Mail 记录邮件发送结果
func (m *Metrics) Mail(kind, outcome string) {
	if m == nil {
		return
	}
	m.mailsTotal.WithLabelValues(kind, outcome).Inc()
}

// Report 记录报表生成
func (m *Metrics) Report(rangeName string) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(rangeName).Inc()
}

// CleanupRemoved 记录清理数量
func (m *Metrics) CleanupRemoved(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupRemoved.WithLabelValues(kind).Add(float64(n))
}
