package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/askr/featureflag"
	askrhttp "github.com/aukilabs/askr/http"
	"github.com/aukilabs/askr/models"
	"github.com/aukilabs/askr/smoketest"
	"github.com/aukilabs/askr/spatial"
	awebsocket "github.com/aukilabs/askr/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The askr version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "askr_info",
		Help:        "Askr information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"ASKR_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"ASKR_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"ASKR_PUBLIC_ENDPOINT"      help:"The public endpoint where this askr server is reachable."`
	LogLevel           string        `cli:""        env:"ASKR_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"ASKR_LOG_INDENT"           help:"Indent logs."`
	IndexBounds        string        `cli:""        env:"ASKR_INDEX_BOUNDS"         help:"The initially indexed region as minX,minY,maxX,maxY. It grows as footprints outside it are added."`
	IndexMaxDepth      int           `cli:",hidden" env:"ASKR_INDEX_MAX_DEPTH"      help:"The maximum index subdivision depth."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"ASKR_SYNC_CLOCK_INTERVAL"  help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"ASKR_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"ASKR_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                         help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"ASKR_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                         help:"Show version."`
	Help               bool          `cli:""        env:"-"                         help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"ASKR_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"ASKR_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"ASKR_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"ASKR_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4600",
		AdminAddr:          ":18600",
		PublicEndpoint:     "http://localhost:4600",
		LogLevel:           logs.InfoLevel.String(),
		IndexBounds:        "0,0,1,1",
		IndexMaxDepth:      spatial.DefaultMaxDepth,
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts an askr footprint index server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "askr",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	bounds, err := parseIndexBounds(conf.IndexBounds)
	if err != nil {
		logs.Fatal(errors.New("invalid index bounds").Wrap(err))
	}

	footprints, err := models.NewFootprintStore(bounds, conf.IndexMaxDepth)
	if err != nil {
		logs.Fatal(errors.New("creating footprint store failed").Wrap(err))
	}

	flags := featureflag.New(conf.FeatureFlags)

	var service http.ServeMux

	api := askrhttp.API{
		Footprints:   footprints,
		FeatureFlags: flags,
	}
	api.Routes(&service)

	service.Handle("/health", askrhttp.HandleWithCORS(http.HandlerFunc(askrhttp.HandleHealthCheck)))
	service.Handle("/version", askrhttp.HandleWithCORS(http.HandlerFunc(askrhttp.HandleVersion(version))))

	readinessCheck := func() bool {
		return footprints != nil
	}
	service.Handle("/ready", askrhttp.HandleWithCORS(http.HandlerFunc(askrhttp.HandleReadyCheck(readinessCheck))))

	service.Handle("/", askrhttp.HandleWithCORS(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh awebsocket.Handler = &awebsocket.RealtimeHandler{
				Footprints:              footprints,
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
				FeatureFlags:            flags,
			}
			h := awebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = awebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			awebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", askrhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", askrhttp.HandleReadyCheck(readinessCheck))
	admin.HandleFunc("/smoke-test", smoketest.Handle(conf.PublicEndpoint))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("index_bounds", conf.IndexBounds).
		WithTag("index_max_depth", conf.IndexMaxDepth).
		Info("starting askr server")

	askrhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			askrhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func parseIndexBounds(raw string) (spatial.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return spatial.BBox{}, errors.New("index bounds are not in minX,minY,maxX,maxY form").
			WithTag("bounds", raw)
	}

	coords := make([]float64, len(parts))
	for i, p := range parts {
		c, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return spatial.BBox{}, errors.New("parsing index bounds coordinate failed").
				WithTag("coordinate", p).
				Wrap(err)
		}
		coords[i] = c
	}

	return spatial.BBox{
		Min: spatial.Vector{coords[0], coords[1]},
		Max: spatial.Vector{coords[2], coords[3]},
	}, nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}
	return nil
}
