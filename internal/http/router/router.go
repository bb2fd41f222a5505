// Package router assembles the gin engine from the application modules.
package router

import (
	"net/http"
	"time"

	apphttp "ims_backend/internal/http"
	"ims_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	// RoleAdmin is required by the /api/v1/admin group.
	RoleAdmin = "admin"

	generalRateLimit = 20
	generalBurst     = 60
)

// New builds the engine with shared middleware and mounts every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))
	if app.Metrics != nil {
		engine.Use(app.Metrics.Middleware())
	}
	if app.ErrorRecorder != nil {
		engine.Use(app.ErrorRecorder)
	}

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				httpkit.Error(c, http.StatusServiceUnavailable, "database unavailable", nil)
				return
			}
		}
		httpkit.OK(c, gin.H{"status": "ok"})
	})

	if app.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(app.Metrics.Handler()))
	}

	limiter := httpkit.NewIPRateLimiter(generalRateLimit, generalBurst, app.Logger)
	authMiddleware := httpkit.AuthRequired(app.Config)

	v1 := engine.Group("/api/v1")
	v1.Use(limiter.RateLimit())

	protected := v1.Group("")
	protected.Use(authMiddleware)

	admin := v1.Group("/admin")
	admin.Use(authMiddleware, httpkit.RequireRole(RoleAdmin))

	cron := v1.Group("/cron")
	cron.Use(httpkit.CronSecretRequired(app.Config.GetCronSecret()))

	rctx := &apphttp.RouterContext{
		Engine:          engine,
		V1:              v1,
		Protected:       protected,
		Admin:           admin,
		Cron:            cron,
		Config:          app.Config,
		AuthMiddleware:  authMiddleware,
		AuthRateLimiter: httpkit.NewAuthRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(rctx)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Cron-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		c.AllowAllOrigins = true
		// Credentials cannot be combined with a wildcard origin.
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.GetCORSOrigins()
	}
	return c
}
