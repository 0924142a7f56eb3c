package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gemstats/download-counter/config"
	"github.com/gemstats/download-counter/consumer"
	"github.com/gemstats/download-counter/storage"
)

const serverShutdownTimeout = 15 * time.Second

// ServerLifecycleListenerImpl is the main app server lifecycle listener implementation
type ServerLifecycleListenerImpl struct {
	shutdownListener chan bool
}

// StartingServer is called when the HTTP server is about to start listening
func (impl *ServerLifecycleListenerImpl) StartingServer() {}

// ServerStartFailed is called when the HTTP server stops listening, normal shutdown included
func (impl *ServerLifecycleListenerImpl) ServerStartFailed(err error) {
	if err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("error - could not start http server")
	}
}

// ServerShutdownCompleted is called once the HTTP server finishes its graceful shutdown
func (impl *ServerLifecycleListenerImpl) ServerShutdownCompleted() {
	go func() {
		impl.shutdownListener <- true
	}()
}

// NewServerListener creates the listener channelling server shutdown to main
func NewServerListener() *ServerLifecycleListenerImpl {
	return &ServerLifecycleListenerImpl{shutdownListener: make(chan bool)}
}

// HTTPServiceContainer wires the top level collaborators of the service
type HTTPServiceContainer struct {
	Configuration *config.Config
	Server        *http.Server
	DataAccessor  storage.DataAccessor
	Listener      *ServerLifecycleListenerImpl
	Consumer      *consumer.TaskConsumer
	Dispatcher    consumer.TaskDispatcher
	MarkerPool    *redis.Pool
}

// NewHTTPServiceContainer creates the container holding the running pieces of the service
func NewHTTPServiceContainer(configuration *config.Config, server *http.Server, dataAccessor storage.DataAccessor, listener *ServerLifecycleListenerImpl, taskConsumer *consumer.TaskConsumer, dispatcher consumer.TaskDispatcher, markerPool *redis.Pool) *HTTPServiceContainer {
	return &HTTPServiceContainer{
		Configuration: configuration,
		Server:        server,
		DataAccessor:  dataAccessor,
		Listener:      listener,
		Consumer:      taskConsumer,
		Dispatcher:    dispatcher,
		MarkerPool:    markerPool,
	}
}

// GetConfig is the provider of the app configuration based on the CLI args
func GetConfig(cliConfig *config.CLIConfig) (*config.Config, error) {
	if len(cliConfig.ConfigPath) > 0 {
		return config.GetConfiguration(cliConfig.ConfigPath)
	}
	return config.GetAutoConfiguration()
}

// GetMigrationConfig is the provider of the migration configuration based on the CLI args
func GetMigrationConfig(cliConfig *config.CLIConfig) *storage.MigrationConfig {
	return &storage.MigrationConfig{MigrationEnabled: cliConfig.IsMigrationEnabled(), MigrationSource: "file://" + cliConfig.MigrationSource}
}

var (
	exit = func(code int) {
		os.Exit(code)
	}

	consolePrintln = func(output string) {
		fmt.Println(output)
	}

	parseArgs = func(programName string, args []string) (cliConfig *config.CLIConfig, output string, err error) {
		flags := flag.NewFlagSet(programName, flag.ContinueOnError)
		var buf bytes.Buffer
		flags.SetOutput(&buf)
		cliConfig = &config.CLIConfig{}
		flags.StringVar(&cliConfig.ConfigPath, "config", "", "Config file location")
		flags.StringVar(&cliConfig.MigrationSource, "migrate", "", "Migration source folder")
		flags.BoolVar(&cliConfig.StopOnConfigChange, "stop-on-conf-change", false, "Exit gracefully on configuration change instead of just logging it")
		flags.BoolVar(&cliConfig.DoNotWatchConfigChange, "do-not-watch-conf-change", false, "Do not watch config change")
		err = flags.Parse(args)
		if err == nil && len(cliConfig.ConfigPath) > 0 {
			if _, statErr := os.Stat(cliConfig.ConfigPath); statErr != nil {
				err = statErr
			}
		}
		output = buf.String()
		return cliConfig, output, err
	}

	getServiceContainer = func(ctx context.Context, cliConfig *config.CLIConfig) (*HTTPServiceContainer, error) {
		return GetHTTPServer(ctx, cliConfig)
	}
)

func setupLogger(logConfig config.LogConfig) {
	if logConfig.IsLoggerConfigAvailable() {
		log.Logger = log.Output(&lumberjack.Logger{
			Filename:   logConfig.GetLogFilename(),
			MaxSize:    int(logConfig.GetMaxLogFileSize()),
			MaxBackups: int(logConfig.GetMaxLogBackups()),
			MaxAge:     int(logConfig.GetMaxAgeForALogFile()),
			Compress:   logConfig.IsCompressionEnabledOnLogBackups(),
		})
	}
}

func shutdownServices(serviceContainer *HTTPServiceContainer) {
	serviceContainer.Consumer.Stop()
	serviceContainer.Dispatcher.Stop()
	if err := serviceContainer.MarkerPool.Close(); err != nil {
		log.Error().Err(err).Msg("error - could not close marker store pool")
	}
	serviceContainer.DataAccessor.Close()
}

func main() {
	cliConfig, output, cliCfgErr := parseArgs(os.Args[0], os.Args[1:])
	if cliCfgErr != nil {
		consolePrintln(output)
		if cliCfgErr != flag.ErrHelp {
			log.Error().Err(cliCfgErr).Msg("CLI argument error")
		}
		exit(1)
	}
	log.Print("Download Counter - ", GetAppVersion())
	serviceContainer, err := getServiceContainer(context.Background(), cliConfig)
	if err != nil {
		log.Error().Err(err).Msg("error - could not initialize the service")
		exit(3)
	}
	setupLogger(serviceContainer.Configuration)
	serviceContainer.Consumer.Start()
	cliConfig.NotifyOnConfigFileChange(func() {
		if cliConfig.StopOnConfigChange {
			log.Print("config file changed, shutting down")
			serverShutdownContext, shutdownTimeoutCancelFunc := context.WithTimeout(context.Background(), serverShutdownTimeout)
			defer shutdownTimeoutCancelFunc()
			serviceContainer.Server.Shutdown(serverShutdownContext)
			return
		}
		log.Print("config file changed, a restart is needed to apply it")
	})
	<-serviceContainer.Listener.shutdownListener
	shutdownServices(serviceContainer)
	cliConfig.StopWatcher()
	log.Print("exiting download counter")
}
