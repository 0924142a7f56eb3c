package controllers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/gemstats/download-counter/config"
)

const (
	statusPath  = "/_status"
	metricsPath = "/metrics"
)

// AppData to serialize in status endpoint
type AppData struct {
	DownloadCountsEnabled bool
	DBDialect             string
	NotificationQueue     string
}

// NewStatusController Factory for new StatusController
func NewStatusController(counterConfig config.CounterConfig, dbConfig config.RelationalDatabaseConfig, consumerConfig config.ConsumerConfig) *StatusController {
	statusController := &StatusController{counterConfig: counterConfig, dbConfig: dbConfig, consumerConfig: consumerConfig}
	return statusController
}

// StatusController is the controller for `/_status` endpoint
type StatusController struct {
	counterConfig  config.CounterConfig
	dbConfig       config.RelationalDatabaseConfig
	consumerConfig config.ConsumerConfig
}

// GetPath returns the endpoint path
func (cont *StatusController) GetPath() string {
	return statusPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (cont *StatusController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return statusPath
}

// Get is the GET /_status endpoint controller
func (cont *StatusController) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	data := AppData{
		DownloadCountsEnabled: cont.counterConfig.IsDownloadCountsEnabled(),
		DBDialect:             string(cont.dbConfig.GetDBDialect()),
		NotificationQueue:     cont.consumerConfig.GetSubscriptionURL(),
	}
	writeJSON(w, data)
}

// MetricsController is the controller for the `/metrics` scrape endpoint
type MetricsController struct {
	handler http.Handler
}

// NewMetricsController Factory for new MetricsController
func NewMetricsController(handler http.Handler) *MetricsController {
	return &MetricsController{handler: handler}
}

// GetPath returns the endpoint path
func (cont *MetricsController) GetPath() string {
	return metricsPath
}

// FormatAsRelativeLink Format as relative URL of this resource based on the params
func (cont *MetricsController) FormatAsRelativeLink(params ...httprouter.Param) string {
	return metricsPath
}

// Get is the GET /metrics endpoint controller
func (cont *MetricsController) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cont.handler.ServeHTTP(w, r)
}
