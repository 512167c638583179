// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// マーカー登録・来訪記録のサービス層から利用する。
type MetricsCollector interface {
	RecordGeocodeSuccess()
	RecordGeocodeFailure()
	RecordGeocodeLatency(duration time.Duration)
	RecordUploadFailure()
	RecordMarkerCreated()
	RecordMarkerDropped()
	RecordVisitRecorded()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	geocodeSuccess prometheus.Counter
	geocodeFail    prometheus.Counter
	geocodeLatency prometheus.Histogram
	uploadFail     prometheus.Counter
	markersCreated prometheus.Counter
	markersDropped prometheus.Counter
	visitsRecorded prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		geocodeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_geocode_success_total",
			Help: "ジオコーディング成功の合計数",
		}),
		geocodeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_geocode_fail_total",
			Help: "ジオコーディング失敗の合計数",
		}),
		geocodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pinmap_geocode_latency_seconds",
			Help:    "ジオコーディングのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		uploadFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_upload_fail_total",
			Help: "画像アップロード失敗の合計数",
		}),
		markersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_markers_created_total",
			Help: "登録されたマーカーの合計数",
		}),
		markersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_markers_dropped_total",
			Help: "座標未解決で破棄されたマーカーの合計数",
		}),
		visitsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pinmap_visits_recorded_total",
			Help: "記録された来訪の合計数",
		}),
	}

	reg.MustRegister(
		c.geocodeSuccess,
		c.geocodeFail,
		c.geocodeLatency,
		c.uploadFail,
		c.markersCreated,
		c.markersDropped,
		c.visitsRecorded,
	)

	return c
}

// RecordGeocodeSuccess はジオコーディング成功を記録する。
func (c *Collector) RecordGeocodeSuccess() {
	c.geocodeSuccess.Inc()
}

// RecordGeocodeFailure はジオコーディング失敗を記録する。
func (c *Collector) RecordGeocodeFailure() {
	c.geocodeFail.Inc()
}

// RecordGeocodeLatency はジオコーディングのレイテンシを記録する。
func (c *Collector) RecordGeocodeLatency(duration time.Duration) {
	c.geocodeLatency.Observe(duration.Seconds())
}

// RecordUploadFailure は画像アップロード失敗を記録する。
func (c *Collector) RecordUploadFailure() {
	c.uploadFail.Inc()
}

// RecordMarkerCreated はマーカー登録を記録する。
func (c *Collector) RecordMarkerCreated() {
	c.markersCreated.Inc()
}

// RecordMarkerDropped は座標未解決によるマーカー破棄を記録する。
func (c *Collector) RecordMarkerDropped() {
	c.markersDropped.Inc()
}

// RecordVisitRecorded は来訪記録を記録する。
func (c *Collector) RecordVisitRecorded() {
	c.visitsRecorded.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
