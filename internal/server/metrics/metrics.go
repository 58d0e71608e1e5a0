// Package metrics holds the Prometheus collectors of the file service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gophfiles"

type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadedFiles   prometheus.Counter
	uploadedBytes   prometheus.Counter
	deletedFiles    prometheus.Counter
	reapedFiles     *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),
		uploadedFiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "uploaded_total",
			Help:      "Files committed by uploads",
		}),
		uploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes committed by uploads",
		}),
		deletedFiles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "deleted_total",
			Help:      "Files deleted on request",
		}),
		reapedFiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "reaped_total",
			Help:      "Files removed by the background sweeper",
		}, []string{"reason"}),
	}
}

func (m *Metrics) FileUploaded(size int64) {
	if m == nil {
		return
	}
	m.uploadedFiles.Inc()
	m.uploadedBytes.Add(float64(size))
}

func (m *Metrics) FileDeleted() {
	if m == nil {
		return
	}
	m.deletedFiles.Inc()
}

func (m *Metrics) FilesReaped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reapedFiles.WithLabelValues(reason).Add(float64(n))
}

// Middleware counts requests per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
