package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// AccountService is everything the auth and users routes need.
type AccountService interface {
	handlers.Registrar
	handlers.Authenticator
	handlers.UserLister
}

type Deps struct {
	Accounts AccountService
	Store    handlers.Pinger
	Tokens   middlewares.TokenVerifier

	// RateCounter backs the register/login limiter. Nil means in-process.
	RateCounter middlewares.WindowCounter

	// Prom and Gatherer are optional; without them /metrics is not mounted.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(cfg.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	health := handlers.NewHealthHandler(deps.Store)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	counter := deps.RateCounter
	if counter == nil {
		counter = middlewares.NewMemoryCounter()
	}
	limiter := middlewares.NewRateLimiter(counter, cfg.RateLimitPerMinute, time.Minute, log)
	authMW := middlewares.NewAuthMiddleware(deps.Tokens)

	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Accounts, log)
	usersHandler := handlers.NewUsersHandler(deps.Accounts, log)

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.GET("/authenticated-user", authMW.RequireAuth(), authHandler.AuthenticatedUser)

	protected := v1.Group("")
	protected.Use(authMW.RequireAuth())
	protected.GET("/users", usersHandler.List)

	return r
}
