package consumer

import (
	"net/http"
	"sync"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MetricsInjector = wire.NewSet(NewMetricsContainer, NewPrometheusHandler)
	sharedContainer *MetricsContainer
	once            sync.Once
)

type MetricsContainer struct {
	QueuedTaskCount            prometheus.Gauge
	ProcessedLogCount          prometheus.Counter
	SkippedLogCount            prometheus.Counter
	FailedLogCount             prometheus.Counter
	MalformedNotificationCount prometheus.Counter
}

func NewMetricsContainer() *MetricsContainer {
	once.Do(func() {
		sharedContainer = newMetricsContainer()
	})
	return sharedContainer
}

func newMetricsContainer() *MetricsContainer {
	container := &MetricsContainer{}
	container.QueuedTaskCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queued_task_count",
		Help: "The current number of log processing tasks in the queue",
	})
	container.ProcessedLogCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "processed_log_count",
		Help: "Number of log objects processed and merged",
	})
	container.SkippedLogCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skipped_log_count",
		Help: "Number of log objects skipped as already processed",
	})
	container.FailedLogCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "failed_log_count",
		Help: "Number of log processing attempts that failed",
	})
	container.MalformedNotificationCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_notification_count",
		Help: "Number of queue messages dropped as malformed",
	})
	return container
}

func NewPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
