package config

import (
	"os/user"
	"time"

	"github.com/go-ini/ini"
)

// AppVersion is the version string type
type AppVersion string

// GetVersion provides the current version of the project
func GetVersion() AppVersion {
	return "0.1-dev"
}

// DBDialect allows us to define constants for supported database drivers
type DBDialect string

const (
	// ConfigFilename is the default config file name
	ConfigFilename = "download-counter.cfg"
	// DefaultSystemConfigFilePath is the default system location of the configuration
	DefaultSystemConfigFilePath = "/etc/download-counter/" + ConfigFilename
	// DefaultCurrentDirConfigFilePath is the config file path based on current working dir
	DefaultCurrentDirConfigFilePath = ConfigFilename
	// MySQLDialect represents the MySQL driver
	MySQLDialect DBDialect = "mysql"
	// SQLite3Dialect represents the SQLite3 driver
	SQLite3Dialect DBDialect = "sqlite3"
)

var (
	// EmptyConfigurationForError Represents the configuration instance to be
	// used when there is a configuration error during load
	EmptyConfigurationForError = &Config{}

	defaultLoadFunc = func(configFilePath string) (*ini.File, error) {
		if len(configFilePath) > 0 {
			return ini.LooseLoad([]byte(DefaultConfiguration), DefaultSystemConfigFilePath, getUserHomeDirBasedDefaultConfigFileLocation(), DefaultCurrentDirConfigFilePath, configFilePath)
		}
		return ini.LooseLoad([]byte(DefaultConfiguration), DefaultSystemConfigFilePath, getUserHomeDirBasedDefaultConfigFileLocation(), DefaultCurrentDirConfigFilePath)
	}
	loadConfiguration = defaultLoadFunc
)

var currentUser = user.Current

func getUserHomeDirBasedDefaultConfigFileLocation() string {
	user, err := currentUser()
	if err != nil {
		return DefaultCurrentDirConfigFilePath
	}
	return user.HomeDir + "/.download-counter/" + ConfigFilename
}

// RelationalDatabaseConfig represents DB configuration related behaviors
type RelationalDatabaseConfig interface {
	GetDBDialect() DBDialect
	GetDBConnectionURL() string
	GetDBConnectionMaxIdleTime() time.Duration
	GetDBConnectionMaxLifetime() time.Duration
	GetMaxIdleDBConnections() uint16
	GetMaxOpenDBConnections() uint16
}

// HTTPConfig represents the HTTP configuration related behaviors
type HTTPConfig interface {
	GetHTTPListeningAddr() string
	GetHTTPReadTimeout() uint
	GetHTTPWriteTimeout() uint
}

// LogConfig represents the interface for log related configuration
type LogConfig interface {
	IsLoggerConfigAvailable() bool
	GetLogFilename() string
	GetMaxLogFileSize() uint
	GetMaxLogBackups() uint
	GetMaxAgeForALogFile() uint
	IsCompressionEnabledOnLogBackups() bool
}

// ObjectStoreConfig represents the access log object storage related behaviors
type ObjectStoreConfig interface {
	GetLogBucketURL() string
}

// MarkerStoreConfig represents the processed file marker store related behaviors
type MarkerStoreConfig interface {
	GetMarkerStoreAddress() string
	GetMarkerStoreMaxIdleConnections() uint16
	GetProcessingTTL() time.Duration
	GetProcessedTTL() time.Duration
}

// ConsumerConfig represents the notification queue consumption related behaviors
type ConsumerConfig interface {
	GetSubscriptionURL() string
	GetMaxWorkers() uint
	GetMaxTaskQueueSize() uint
}

// CounterConfig represents behaviors of the download counter itself
type CounterConfig interface {
	IsDownloadCountsEnabled() bool
	GetNameCacheTTL() time.Duration
}

// Config represents the application configuration
type Config struct {
	dbDialect                DBDialect
	dbConnectionURL          string
	dbConnectionMaxIdleTime  time.Duration
	dbConnectionMaxLifetime  time.Duration
	dbMaxIdleConnections     uint16
	dbMaxOpenConnections     uint16
	httpListeningAddr        string
	httpReadTimeout          uint
	httpWriteTimeout         uint
	logFilename              string
	maxFileSize              uint
	maxBackups               uint
	maxAge                   uint
	compressBackupsEnabled   bool
	logBucketURL             string
	markerStoreAddress       string
	markerStoreMaxIdleConnxn uint16
	processingTTL            time.Duration
	processedTTL             time.Duration
	subscriptionURL          string
	maxWorkers               uint
	maxTaskQueueSize         uint
	downloadCountsEnabled    bool
	nameCacheTTL             time.Duration
}

// GetDBDialect returns the DB dialect of the configuration
func (config *Config) GetDBDialect() DBDialect {
	return config.dbDialect
}

// GetDBConnectionURL returns the DB Connection URL string
func (config *Config) GetDBConnectionURL() string {
	return config.dbConnectionURL
}

// GetDBConnectionMaxIdleTime returns the DB Connection max idle time
func (config *Config) GetDBConnectionMaxIdleTime() time.Duration {
	return config.dbConnectionMaxIdleTime
}

// GetDBConnectionMaxLifetime returns the DB Connection max lifetime
func (config *Config) GetDBConnectionMaxLifetime() time.Duration {
	return config.dbConnectionMaxLifetime
}

// GetMaxIdleDBConnections returns the maximum number of idle DB connections to retain in pool
func (config *Config) GetMaxIdleDBConnections() uint16 {
	return config.dbMaxIdleConnections
}

// GetMaxOpenDBConnections returns the maximum number of concurrent DB connections to keep open
func (config *Config) GetMaxOpenDBConnections() uint16 {
	return config.dbMaxOpenConnections
}

// GetHTTPListeningAddr retrieves the connection string to listen to
func (config *Config) GetHTTPListeningAddr() string {
	return config.httpListeningAddr
}

// GetHTTPReadTimeout retrieves the connection read timeout
func (config *Config) GetHTTPReadTimeout() uint {
	return config.httpReadTimeout
}

// GetHTTPWriteTimeout retrieves the connection write timeout
func (config *Config) GetHTTPWriteTimeout() uint {
	return config.httpWriteTimeout
}

// IsLoggerConfigAvailable checks is logger configuration is set since its optional
func (config *Config) IsLoggerConfigAvailable() bool {
	return len(config.logFilename) > 0
}

// GetLogFilename retrieves the file name of the log
func (config *Config) GetLogFilename() string {
	return config.logFilename
}

// GetMaxLogFileSize retrieves the max log file size before its rotated in MB
func (config *Config) GetMaxLogFileSize() uint {
	return config.maxFileSize
}

// GetMaxLogBackups retrieves max rotated logs to retain
func (config *Config) GetMaxLogBackups() uint {
	return config.maxBackups
}

// GetMaxAgeForALogFile retrieves maximum day to retain a rotated log file
func (config *Config) GetMaxAgeForALogFile() uint {
	return config.maxAge
}

// IsCompressionEnabledOnLogBackups checks if log backups are compressed
func (config *Config) IsCompressionEnabledOnLogBackups() bool {
	return config.compressBackupsEnabled
}

// GetLogBucketURL retrieves the gocloud blob URL of the bucket the CDN drops access logs into
func (config *Config) GetLogBucketURL() string {
	return config.logBucketURL
}

// GetMarkerStoreAddress retrieves the host:port of the marker store
func (config *Config) GetMarkerStoreAddress() string {
	return config.markerStoreAddress
}

// GetMarkerStoreMaxIdleConnections retrieves max idle connections of the marker store pool
func (config *Config) GetMarkerStoreMaxIdleConnections() uint16 {
	return config.markerStoreMaxIdleConnxn
}

// GetProcessingTTL retrieves how long a claim may stay in processing state before it can be reclaimed
func (config *Config) GetProcessingTTL() time.Duration {
	return config.processingTTL
}

// GetProcessedTTL retrieves how long the completion record of a processed log file is retained
func (config *Config) GetProcessedTTL() time.Duration {
	return config.processedTTL
}

// GetSubscriptionURL retrieves the gocloud pubsub URL of the storage event notification queue
func (config *Config) GetSubscriptionURL() string {
	return config.subscriptionURL
}

// GetMaxWorkers retrieves the number of workers executing processing tasks
func (config *Config) GetMaxWorkers() uint {
	return config.maxWorkers
}

// GetMaxTaskQueueSize retrieves the task queue buffer size
func (config *Config) GetMaxTaskQueueSize() uint {
	return config.maxTaskQueueSize
}

// IsDownloadCountsEnabled checks whether parsed counts should actually be merged into the counter store
func (config *Config) IsDownloadCountsEnabled() bool {
	return config.downloadCountsEnabled
}

// GetNameCacheTTL retrieves how long resolved version names are cached in memory
func (config *Config) GetNameCacheTTL() time.Duration {
	return config.nameCacheTTL
}

// GetAutoConfiguration gets configuration from default config and system defined path chain of
// /etc/download-counter/download-counter.cfg, {USER_HOME}/.download-counter/download-counter.cfg, download-counter.cfg (current dir)
func GetAutoConfiguration() (*Config, error) {
	return GetConfiguration("")
}

// GetConfiguration gets the current state of application configuration
func GetConfiguration(configFilePath string) (*Config, error) {
	configuration := &Config{}
	cfg, err := loadConfiguration(configFilePath)
	if err != nil {
		return EmptyConfigurationForError, err
	}
	setupStorageConfiguration(cfg, configuration)
	setupHTTPConfiguration(cfg, configuration)
	setupLogConfiguration(cfg, configuration)
	setupObjectStoreConfiguration(cfg, configuration)
	setupMarkerStoreConfiguration(cfg, configuration)
	setupConsumerConfiguration(cfg, configuration)
	setupCounterConfiguration(cfg, configuration)
	return configuration, nil
}

func setupStorageConfiguration(cfg *ini.File, configuration *Config) {
	dbSection, _ := cfg.GetSection("database")
	dbDialect, _ := dbSection.GetKey("dialect")
	dbConnection, _ := dbSection.GetKey("connection-url")
	dbMaxIdleTimeInSec, _ := dbSection.GetKey("connxn-max-idle-time-seconds")
	dbMaxLifetimeInSec, _ := dbSection.GetKey("connxn-max-lifetime-seconds")
	dbMaxIdleConnections, _ := dbSection.GetKey("max-idle-connxns")
	dbMaxOpenConnections, _ := dbSection.GetKey("max-open-connxns")
	configuration.dbDialect = DBDialect(dbDialect.String())
	configuration.dbConnectionURL = dbConnection.String()
	configuration.dbConnectionMaxIdleTime = time.Duration(dbMaxIdleTimeInSec.MustUint(0)) * time.Second
	configuration.dbConnectionMaxLifetime = time.Duration(dbMaxLifetimeInSec.MustUint(0)) * time.Second
	configuration.dbMaxIdleConnections = uint16(dbMaxIdleConnections.MustUint(10))
	configuration.dbMaxOpenConnections = uint16(dbMaxOpenConnections.MustUint(50))
}

func setupHTTPConfiguration(cfg *ini.File, configuration *Config) {
	httpSection, _ := cfg.GetSection("http")
	httpListener, _ := httpSection.GetKey("listener")
	httpReadTimeout, _ := httpSection.GetKey("read-timeout")
	httpWriteTimeout, _ := httpSection.GetKey("write-timeout")
	configuration.httpListeningAddr = httpListener.String()
	configuration.httpReadTimeout = httpReadTimeout.MustUint(180)
	configuration.httpWriteTimeout = httpWriteTimeout.MustUint(180)
}

func setupLogConfiguration(cfg *ini.File, configuration *Config) {
	logSection, _ := cfg.GetSection("log")
	logFilenameKey, _ := logSection.GetKey("filename")
	maxFileSizeKey, _ := logSection.GetKey("max-file-size-in-mb")
	maxBackupsKey, _ := logSection.GetKey("max-backups")
	maxAgeKey, _ := logSection.GetKey("max-age-in-days")
	compressEnabledKey, _ := logSection.GetKey("compress-backups")
	configuration.logFilename = logFilenameKey.String()
	configuration.maxFileSize = maxFileSizeKey.MustUint(50)
	configuration.maxBackups = maxBackupsKey.MustUint(1)
	configuration.maxAge = maxAgeKey.MustUint(30)
	configuration.compressBackupsEnabled = compressEnabledKey.MustBool(false)
}

func setupObjectStoreConfiguration(cfg *ini.File, configuration *Config) {
	objectStoreSection, _ := cfg.GetSection("object-store")
	bucketURLKey, _ := objectStoreSection.GetKey("log-bucket-url")
	configuration.logBucketURL = bucketURLKey.String()
}

func setupMarkerStoreConfiguration(cfg *ini.File, configuration *Config) {
	markerSection, _ := cfg.GetSection("marker-store")
	addressKey, _ := markerSection.GetKey("address")
	maxIdleKey, _ := markerSection.GetKey("max-idle-connxns")
	processingTTLKey, _ := markerSection.GetKey("processing-ttl-seconds")
	processedTTLKey, _ := markerSection.GetKey("processed-ttl-hours")
	configuration.markerStoreAddress = addressKey.String()
	configuration.markerStoreMaxIdleConnxn = uint16(maxIdleKey.MustUint(10))
	configuration.processingTTL = time.Duration(processingTTLKey.MustUint(120)) * time.Second
	configuration.processedTTL = time.Duration(processedTTLKey.MustUint(720)) * time.Hour
}

func setupConsumerConfiguration(cfg *ini.File, configuration *Config) {
	consumerSection, _ := cfg.GetSection("consumer")
	subscriptionURLKey, _ := consumerSection.GetKey("subscription-url")
	maxWorkersKey, _ := consumerSection.GetKey("max-workers")
	maxQueueSizeKey, _ := consumerSection.GetKey("max-task-queue-size")
	configuration.subscriptionURL = subscriptionURLKey.String()
	configuration.maxWorkers = maxWorkersKey.MustUint(25)
	configuration.maxTaskQueueSize = maxQueueSizeKey.MustUint(1000)
}

func setupCounterConfiguration(cfg *ini.File, configuration *Config) {
	counterSection, _ := cfg.GetSection("counter")
	enabledKey, _ := counterSection.GetKey("download-counts-enabled")
	nameCacheTTLKey, _ := counterSection.GetKey("name-cache-ttl-minutes")
	configuration.downloadCountsEnabled = enabledKey.MustBool(true)
	configuration.nameCacheTTL = time.Duration(nameCacheTTLKey.MustUint(240)) * time.Minute
}
