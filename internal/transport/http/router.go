package handlers

import (
	"time"

	"coursehub/internal/infrastructure/logger"
	"coursehub/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Course   *CourseHandler
	Payment  *PaymentHandler
	Progress *ProgressHandler
	Health   *HealthHandler

	Tokens  middleware.TokenValidator
	Limiter *middleware.RateLimiter
	Log     *logger.Logger

	AllowedOrigins []string
	ServiceName    string
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middleware.RequestID(), middleware.RequestLogger(d.Log))

	config := cors.DefaultConfig()
	if len(d.AllowedOrigins) > 0 {
		config.AllowOrigins = d.AllowedOrigins
		config.AllowCredentials = true
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-Id"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	r.Use(cors.New(config))

	r.GET("/healthcheck", d.Health.Check)

	auth := middleware.AuthMiddleware(d.Tokens)

	api := r.Group("/api/v1")
	{
		courses := api.Group("/courses")
		{
			courses.GET("", d.Course.List)
			courses.GET("/:courseId", d.Course.GetOne)
			courses.GET("/:courseId/lectures", auth, d.Course.Lectures)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/webhook", d.Payment.Webhook)
			payments.POST("/checkout", auth, d.Limiter.Limit("checkout", 10, time.Minute), d.Payment.Checkout)
			payments.POST("/verify", auth, d.Limiter.Limit("verify", 10, time.Minute), d.Payment.Verify)
			payments.GET("/purchase-status", auth, d.Payment.PurchaseStatus)
			payments.GET("/purchases", auth, d.Payment.Purchases)
		}

		progress := api.Group("/progress")
		progress.Use(auth)
		{
			progress.GET("/:courseId", d.Progress.Get)
			progress.PATCH("/:courseId/lectures/:lectureId", d.Progress.MarkLecture)
			progress.PATCH("/:courseId/complete", d.Progress.Complete)
			progress.PATCH("/:courseId/reset", d.Progress.Reset)
		}
	}

	return r
}
