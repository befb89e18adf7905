package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"thirdcoast.systems/airwave/cmd/airwave/handlers/api/status_api"
	"thirdcoast.systems/airwave/cmd/airwave/handlers/content"
	"thirdcoast.systems/airwave/cmd/airwave/handlers/relay"
	"thirdcoast.systems/airwave/cmd/airwave/internal/status"
	staticpkg "thirdcoast.systems/airwave/cmd/airwave/internal/web/utils/static"
	"thirdcoast.systems/airwave/internal/channel"
	"thirdcoast.systems/airwave/internal/config"
	"thirdcoast.systems/airwave/internal/metrics"
	"thirdcoast.systems/airwave/internal/session"
	"thirdcoast.systems/airwave/internal/wsconn"
	"thirdcoast.systems/airwave/static"
)

// statusRefreshInterval is how often status streams pick up frame counters.
const statusRefreshInterval = 2 * time.Second

type Webserver struct {
	*echo.Echo
	ctx         context.Context
	registry    *channel.Registry
	sessions    *session.Handler
	statusHub   *status.Hub
	staticCache *staticpkg.StaticCache
	metricsReg  *prometheus.Registry
	upgrader    *websocket.Upgrader
	connOpts    wsconn.Options
	clock       clockwork.Clock
}

// NewWebserver wires the relay endpoints around registry and sessions.
// Relay connections live until ctx is cancelled or the peer leaves.
func NewWebserver(ctx context.Context, conf *config.Config, registry *channel.Registry, sessions *session.Handler, hub *status.Hub, metricsReg *prometheus.Registry) (*Webserver, error) {
	e := echo.New()

	staticCache, err := staticpkg.NewStaticCache(static.FS)
	if err != nil {
		return nil, err
	}

	webserver := &Webserver{
		Echo:        e,
		ctx:         ctx,
		registry:    registry,
		sessions:    sessions,
		statusHub:   hub,
		staticCache: staticCache,
		metricsReg:  metricsReg,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     newOriginChecker(conf.Origins()),
		},
		connOpts: wsconn.Options{
			SendQueueSize: conf.Relay.SendQueueSize,
			WriteTimeout:  conf.Relay.WriteTimeout,
			PingInterval:  conf.Relay.PingInterval,
			PongWait:      conf.Relay.PongWait,
			MaxFrameBytes: conf.Relay.MaxFrameBytes,
		},
		clock: clockwork.NewRealClock(),
	}

	if len(conf.Origins()) == 0 {
		slog.Info("ALLOWED_ORIGINS not set; WebSocket upgrades allowed only from the same host")
	}

	if err = webserver.registerRoutes(); err != nil {
		return nil, err
	}

	if err = webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

// isStreamingPath reports whether a route holds its connection open.
func isStreamingPath(path string) bool {
	switch path {
	case "/broadcast", "/listen", "/api/status/stream":
		return true
	default:
		return false
	}
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("64K"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return isStreamingPath(c.Path()) || strings.HasPrefix(c.Path(), "/metrics")
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return isStreamingPath(c.Path()) || c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes() error {
	// Relay endpoints
	s.GET("/broadcast", relay.HandleBroadcast(s.ctx, s.upgrader, s.connOpts, s.sessions))
	s.GET("/listen", relay.HandleListen(s.ctx, s.upgrader, s.connOpts, s.sessions))

	apiGroup := s.Group("/api")
	apiGroup.GET("/status", status_api.HandleStatus(s.registry))
	apiGroup.GET("/status/stream", status_api.HandleStatusStream(s.ctx, s.registry, s.statusHub, statusRefreshInterval))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	s.GET("/metrics", echo.WrapHandler(metrics.Handler(s.metricsReg)))

	// Static file serving
	s.GET("/static/*", s.staticCache.ServeStaticFile("/static/"))

	s.GET("/", content.HandleIndexPage(s.clock))

	return nil
}
