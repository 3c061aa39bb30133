package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"github.com/dog52841/Rentify-sub001/internal/infra/config"
	"github.com/dog52841/Rentify-sub001/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Decide(c *gin.Context)
	Cancel(c *gin.Context)
	Get(c *gin.Context)
	ListForRenter(c *gin.Context)
}

type AvailabilityHTTP interface {
	Calendar(c *gin.Context)
	Mutate(c *gin.Context)
}

type PaymentHTTP interface {
	Initiate(c *gin.Context)
	Capture(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Availability AvailabilityHTTP
	Payment      PaymentHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Actor-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/decision", h.Booking.Decide)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.GET("/renters/:id/bookings", h.Booking.ListForRenter)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/unavailable-dates", h.Availability.Calendar)
		api.POST("/listings/:id/unavailable-dates", h.Availability.Mutate)
	}
	if h.Payment != nil {
		api.POST("/bookings/:id/payment", h.Payment.Initiate)
		api.POST("/payments/:orderId/capture", h.Payment.Capture)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
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
