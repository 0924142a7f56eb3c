package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"net/http/pprof"

	"github.com/google/wire"
	"github.com/julienschmidt/httprouter"

	"github.com/gemstats/download-counter/config"
)

var (
	listener ServerLifecycleListener
	server   *http.Server
	// ControllerInjector for binding controllers
	ControllerInjector = wire.NewSet(ConfigureAPI, NewRouter, NewStatusController, NewMetricsController, wire.Struct(new(Controllers), "StatusController", "MetricsController"))
)

const (
	headerRequestID      = "X-Request-ID"
	requestIDLogFieldKey = "requestId"
)

type (
	// Controllers represents factory object containing all the controllers
	Controllers struct {
		StatusController  *StatusController
		MetricsController *MetricsController
	}

	// ServerLifecycleListener listens to key server lifecycle error
	ServerLifecycleListener interface {
		StartingServer()
		ServerStartFailed(err error)
		ServerShutdownCompleted()
	}

	// EndpointController represents very basic functionality of an endpoint
	EndpointController interface {
		GetPath() string
		FormatAsRelativeLink(params ...httprouter.Param) string
	}

	// Get represents GET Method Call to a resource
	Get interface {
		Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params)
	}

	idKey struct{}
)

// NotifyOnInterrupt registers channel to get notified when interrupt is captured
var NotifyOnInterrupt = func(stop *chan os.Signal) {
	signal.Notify(*stop, os.Interrupt, os.Kill, syscall.SIGTERM)
}

func getRequestID(r *http.Request) (requestID string) {
	ctx := r.Context()
	requestID, ok := ctx.Value(idKey{}).(string)
	if !ok {
		requestID = r.Header.Get(headerRequestID)
		if len(requestID) < 1 {
			requestID = xid.New().String()
		}
		ctx = context.WithValue(ctx, idKey{}, requestID)
		r = r.WithContext(ctx)
	}
	return requestID
}

// getRequestIDHandler is similar to hlog.RequestIDHandler just the twist is it expects string as request id and not xid.ID
func getRequestIDHandler(fieldKey, headerName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := getRequestID(r)
			ctx := r.Context()
			log := zerolog.Ctx(ctx)
			if len(fieldKey) > 0 {
				log.UpdateContext(func(c zerolog.Context) zerolog.Context {
					return c.Str(fieldKey, requestID)
				})
			}
			if len(headerName) > 0 {
				w.Header().Set(headerName, requestID)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func logAccess(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("")
}

func getHandler(apiRouter *httprouter.Router) http.Handler {
	// Chain handlers - new handler to attach logger to request context, request id handler and lastly access log handler all ending with the our routes
	return hlog.NewHandler(log.Logger)(getRequestIDHandler(requestIDLogFieldKey, headerRequestID)(hlog.AccessHandler(logAccess)(apiRouter)))
}

// ConfigureAPI configures API Server with interrupt handling
func ConfigureAPI(httpConfig config.HTTPConfig, iListener ServerLifecycleListener, apiRouter *httprouter.Router) *http.Server {
	listener = iListener
	handler := getHandler(apiRouter)
	server = &http.Server{
		Handler:      handler,
		Addr:         httpConfig.GetHTTPListeningAddr(),
		ReadTimeout:  time.Duration(httpConfig.GetHTTPReadTimeout()) * time.Second,
		WriteTimeout: time.Duration(httpConfig.GetHTTPWriteTimeout()) * time.Second,
	}
	go func() {
		log.Print("Listening to http at -", httpConfig.GetHTTPListeningAddr())
		iListener.StartingServer()
		if serverListenErr := server.ListenAndServe(); serverListenErr != nil {
			iListener.ServerStartFailed(serverListenErr)
			log.Print(serverListenErr)
		}
	}()
	stop := make(chan os.Signal, 1)
	NotifyOnInterrupt(&stop)
	go func() {
		<-stop
		handleExit()
	}()
	return server
}

func handleExit() {
	log.Print("Shutting down the server...")
	serverShutdownContext, shutdownTimeoutCancelFunc := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownTimeoutCancelFunc()
	server.Shutdown(serverShutdownContext)
	log.Print("Server gracefully stopped!")
	listener.ServerShutdownCompleted()
}

// NewRouter returns a new instance of the router
func NewRouter(controllers *Controllers) *httprouter.Router {
	apiRouter := httprouter.New()
	apiRouter.HandlerFunc(http.MethodGet, "/debug/pprof/", pprof.Index)
	apiRouter.HandlerFunc(http.MethodGet, "/debug/pprof/cmdline", pprof.Cmdline)
	apiRouter.HandlerFunc(http.MethodGet, "/debug/pprof/profile", pprof.Profile)
	apiRouter.HandlerFunc(http.MethodGet, "/debug/pprof/symbol", pprof.Symbol)
	apiRouter.HandlerFunc(http.MethodGet, "/debug/pprof/trace", pprof.Trace)
	apiRouter.Handler(http.MethodGet, "/debug/pprof/goroutine", pprof.Handler("goroutine"))
	apiRouter.Handler(http.MethodGet, "/debug/pprof/mutex", pprof.Handler("mutex"))
	apiRouter.Handler(http.MethodGet, "/debug/pprof/heap", pprof.Handler("heap"))
	apiRouter.Handler(http.MethodGet, "/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	apiRouter.Handler(http.MethodGet, "/debug/pprof/block", pprof.Handler("block"))
	setupAPIRoutes(apiRouter, controllers.StatusController, controllers.MetricsController)
	return apiRouter
}

func setupAPIRoutes(apiRouter *httprouter.Router, endpoints ...EndpointController) {
	for _, endpoint := range endpoints {
		getEndpoint, ok := endpoint.(Get)
		if ok {
			apiRouter.GET(endpoint.GetPath(), getEndpoint.Get)
		}
	}
}

var getJSON = func(buf *bytes.Buffer, data interface{}) error {
	return json.NewEncoder(buf).Encode(data)
}

func writeErr(w http.ResponseWriter, err error) {
	writeStatus(w, http.StatusInternalServerError, err)
}

func writeStatus(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)
	if err != nil {
		w.Write([]byte(err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Write JSON
	var buf bytes.Buffer
	err := getJSON(&buf, data)
	if err != nil {
		// return error
		writeErr(w, err)
		return
	}
	w.WriteHeader(200)
	w.Header().Add("Content-Type", "application/json")
	w.Write(buf.Bytes())
}
