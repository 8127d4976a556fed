// Package api is the HTTP surface of "fdsync serve".
package api

import (
	"context"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/fdsync/internal/api/handlers"
	"github.com/your-org/fdsync/internal/api/ws"
)

type RouterConfig struct {
	APIKey         string
	AllowedOrigins []string
	// RunContext bounds background runs started over HTTP.
	RunContext context.Context
	Checker    handlers.ReadinessChecker
	Groups     handlers.GroupAdmin
	Runner     handlers.SyncRunner
	Hub        *ws.Hub
	Logger     *slog.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowHeaders(apiKeyHeader)
	return cfg
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RunContext == nil {
		cfg.RunContext = context.Background()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checker)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(APIKeyMiddleware(cfg.APIKey))

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	groupH := handlers.NewGroupHandler(cfg.Groups)
	v1.GET("/groups", groupH.List)
	v1.POST("/groups", groupH.Create)
	v1.DELETE("/groups/:id", groupH.Delete)

	syncH := handlers.NewSyncHandler(cfg.RunContext, cfg.Runner)
	v1.POST("/sync", syncH.Start)
	v1.GET("/sync/last", syncH.Last)

	return r
}
