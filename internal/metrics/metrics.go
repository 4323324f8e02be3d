// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやキャッシュ層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordCacheHit(tag string)
	RecordCacheMiss(tag string)
	RecordCacheEviction(tag, reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reg            prometheus.Registerer
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviecatalog_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moviecatalog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviecatalog_cache_hits_total",
			Help: "タグ別のキャッシュヒット数",
		}, []string{"tag"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviecatalog_cache_misses_total",
			Help: "タグ別のキャッシュミス数",
		}, []string{"tag"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviecatalog_cache_evictions_total",
			Help: "タグ・理由別のキャッシュ削除数",
		}, []string{"tag", "reason"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.cacheHits,
		c.cacheMisses,
		c.cacheEvictions,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはパスそのものではなくルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(tag string) {
	c.cacheHits.WithLabelValues(tag).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(tag string) {
	c.cacheMisses.WithLabelValues(tag).Inc()
}

// RecordCacheEviction はキャッシュエントリの削除を記録する。
func (c *Collector) RecordCacheEviction(tag, reason string) {
	c.cacheEvictions.WithLabelValues(tag, reason).Inc()
}

// RegisterRequestCounter はRequestCounterの値をkindラベル付きのカウンタとして公開する。
// 値はスクレイプ時にカウンタから読み出す。
func (c *Collector) RegisterRequestCounter(kind string, counter *RequestCounter) {
	c.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name:        "moviecatalog_entity_requests_total",
		Help:        "サービス操作の呼び出し回数",
		ConstLabels: prometheus.Labels{"kind": kind},
	}, func() float64 {
		return float64(counter.Value())
	}))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
