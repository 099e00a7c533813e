package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/availability"
	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the routes are wired to.
type Deps struct {
	DB           *gorm.DB
	Store        Pinger
	Cfg          *config.Config
	Accounts     *accounts.Service
	Booking      *booking.Coordinator
	Availability *availability.Engine
	Limiter      *middleware.RateLimiter
	Logger       zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	utils.RegisterValidators()

	authHandler := handlers.NewAuthHandler(d.DB, d.Cfg, d.Accounts, d.Logger)
	userHandler := handlers.NewUserHandler(d.Accounts, d.Booking, d.Logger)
	appointmentHandler := handlers.NewAppointmentHandler(d.Accounts, d.Booking, d.Availability, d.Logger, d.Now)
	calendarHandler := handlers.NewCalendarHandler(d.Accounts, d.Availability, d.Logger, d.Now)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			limited := authRoutes.Group("")
			if d.Limiter != nil {
				limited.Use(middleware.RateLimit(d.Limiter))
			}
			limited.POST("/register", authHandler.Register)
			limited.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(d.Cfg, d.Accounts))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		private.GET("/calendar", calendarHandler.GetMonth)
		private.GET("/catalog/descriptions", calendarHandler.GetCatalog)

		private.GET("/providers", userHandler.GetProviders)
		private.GET("/patients", middleware.TitleAuthMiddleware(models.TitleDentist, models.TitleHygienist, models.TitleAdmin), userHandler.GetPatients)

		private.GET("/availability", appointmentHandler.GetAvailability)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.PUT("", appointmentHandler.EditAppointment)
			appointmentRoutes.DELETE("", appointmentHandler.CancelAppointment)
		}

		adminRoutes := private.Group("/users")
		adminRoutes.Use(middleware.TitleAuthMiddleware(models.TitleAdmin))
		{
			adminRoutes.POST("", userHandler.CreateUser)
			adminRoutes.GET("", userHandler.GetUsers)
			adminRoutes.GET("/:id", userHandler.GetUserByID)
			adminRoutes.GET("/:id/appointments", userHandler.GetUserAppointments)
			adminRoutes.PATCH("/:id/status", userHandler.UpdateStatus)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
