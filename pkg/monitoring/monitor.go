package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ResponsesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edu_responses_submitted_total",
			Help: "Student responses created or updated, by question type",
		},
		[]string{"question_type"},
	)

	GradesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edu_grades_recorded_total",
			Help: "Grades recorded, by grading path (per_question or whole)",
		},
		[]string{"path"},
	)

	MasteryRecomputeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edu_mastery_recompute_duration_seconds",
			Help:    "Duration of a full mastery recompute run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	NotificationClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edu_notification_clients",
			Help: "Websocket clients connected to this instance",
		},
	)

	NotificationsPushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edu_notifications_pushed_total",
			Help: "Notifications published, by event type",
		},
		[]string{"type"},
	)

	MasteryRowsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edu_mastery_rows_upserted_total",
			Help: "Student knowledge point rows written by mastery recompute",
		},
	)
)

// Collectors 便于在自定义 Registry 上注册（测试使用）
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RequestCounter,
		RequestDuration,
		ResponsesSubmitted,
		GradesRecorded,
		MasteryRecomputeDuration,
		MasteryRowsUpserted,
		NotificationClients,
		NotificationsPushed,
	}
}

func Init() {
	prometheus.MustRegister(Collectors()...)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
