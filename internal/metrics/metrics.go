// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はゲートウェイのPrometheusメトリクスを収集する。
// middleware.RateLimitRecorder、middleware.HTTPStatusRecorder、
// session.RefreshRecorderの各インターフェースを満たす。
type Collector struct {
	httpStatus        *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
	sessionRefresh    *prometheus.CounterVec
	proxyLatency      prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otolog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otolog_rate_limit_rejected_total",
			Help: "ティア別のレート制限拒否数",
		}, []string{"tier"}),
		sessionRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otolog_session_refresh_total",
			Help: "結果別のセッションリフレッシュ実行数",
		}, []string{"result"}),
		proxyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "otolog_spotify_proxy_latency_seconds",
			Help:    "Spotifyプロキシの上流呼び出しレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.rateLimitRejected,
		c.sessionRefresh,
		c.proxyLatency,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRateLimitRejection はレート制限拒否を記録する。
func (c *Collector) RecordRateLimitRejection(tier string) {
	c.rateLimitRejected.WithLabelValues(tier).Inc()
}

// RecordSessionRefresh はセッションリフレッシュの結果を記録する。
func (c *Collector) RecordSessionRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.sessionRefresh.WithLabelValues(result).Inc()
}

// RecordProxyLatency は上流呼び出しのレイテンシを記録する。
func (c *Collector) RecordProxyLatency(duration time.Duration) {
	c.proxyLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
