package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/dashsync/internal/aggregate"
	"github.com/persistorai/dashsync/internal/middleware"
	"github.com/persistorai/dashsync/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Sync        SyncController
	Hub         *ws.Hub
	Reconciler  aggregate.Reconciler
	CORSOrigins []string
	Version     string
}

// Router-level limits.
const (
	maxBodySize = 4 << 20 // 4 MB
	rateLimit   = 50      // requests per second per IP
	rateBurst   = 100     // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	var clients ClientCounter
	if deps.Hub != nil {
		clients = deps.Hub
	}

	health := NewHealthHandler(deps.Sync, clients, log, deps.Version)
	state := NewStateHandler(deps.Sync, log)
	charts := NewChartHandler(deps.Sync, deps.Reconciler, log)

	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// State and user actions.
	api.GET("/state", state.Get)
	api.GET("/records", state.Records)
	api.PUT("/selection", state.SetSelection)
	api.POST("/refresh", state.Refresh)
	api.POST("/insert", state.Insert)

	// Chart series.
	api.GET("/charts/bar", charts.Bar)
	api.GET("/charts/scatter", charts.Scatter)
	api.GET("/charts/geo", charts.Geo)

	if deps.Hub != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
	}
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
