package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staycal/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Check(c *gin.Context)
	Update(c *gin.Context)
	Block(c *gin.Context)
	Export(c *gin.Context)
}

type ProximityHTTP interface {
	Nearby(c *gin.Context)
	Bounds(c *gin.Context)
}

type Handlers struct {
	Availability   AvailabilityHTTP
	Proximity      ProximityHTTP
	AuthMiddleware gin.HandlerFunc
	Metrics        http.Handler
}

type Options struct {
	Env           string
	Addr          string
	RateLimit     float64
	RateBurst     int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	AllowedOrigin []string
}

func NewServer(opts Options, obsMW obs.Middleware, health *obs.Health, h Handlers) *http.Server {
	return &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
}

func NewRouter(opts Options, obsMW obs.Middleware, health *obs.Health, h Handlers) *gin.Engine {
	mode := configureGinMode(opts.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	origins := opts.AllowedOrigin
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	registerSwaggerRoutes(router)

	if health != nil {
		router.GET("/livez", health.Livez)
		router.GET("/readyz", health.Readyz)
		router.GET("/status", health.Status)
	}
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	api.Use(obsMW.RateLimit(opts.RateLimit, opts.RateBurst))
	if h.AuthMiddleware != nil {
		api.Use(h.AuthMiddleware)
	}
	if h.Proximity != nil {
		api.GET("/listings/nearby", h.Proximity.Nearby)
		api.GET("/listings/bounds", h.Proximity.Bounds)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/calendar", h.Availability.Calendar)
		api.PUT("/listings/:id/calendar", h.Availability.Update)
		api.POST("/listings/:id/calendar/block", h.Availability.Block)
		api.POST("/listings/:id/calendar/export", h.Availability.Export)
		api.GET("/listings/:id/availability", h.Availability.Check)
	}

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
