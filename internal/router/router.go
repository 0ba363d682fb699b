// Package router wires handlers onto the echo instance.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/marineworld/booking/internal/handler"
	"github.com/marineworld/booking/internal/middleware"
	"github.com/marineworld/booking/internal/model"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Availability *handler.AvailabilityHandler
	Booking      *handler.BookingHandler
	Payment      *handler.PaymentHandler
	Admin        *handler.AdminHandler
}

// Options carries the cross-cutting router configuration.
type Options struct {
	JWTSecret         string
	Redis             *redis.Client
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// New builds the echo instance with all routes mounted.
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	e.GET("/health", h.Health.Health)

	v1 := e.Group("/v1")
	v1.Use(middleware.RateLimit(opts.Redis, opts.RateLimitRequests, opts.RateLimitWindow))

	// Public catalog and booking surface.
	v1.GET("/locations", h.Booking.Locations)
	v1.GET("/locations/:id/availability", h.Availability.Calendar)
	v1.GET("/addons", h.Booking.Addons)
	v1.GET("/offers", h.Booking.Offers)
	v1.GET("/promos/validate", h.Booking.ValidatePromo)
	v1.POST("/bookings/quote", h.Booking.Quote)
	v1.POST("/bookings", h.Booking.Create)
	v1.GET("/bookings/:ref", h.Booking.Get)
	v1.POST("/bookings/:ref/cancel", h.Booking.Cancel)

	// Payment gateway webhook; authenticated by signature, not JWT.
	v1.POST("/payments/callback", h.Payment.Callback)

	v1.POST("/auth/login", h.Auth.Login)

	// Staff surface: gate lookups and claims.
	staff := v1.Group("/staff", middleware.RequireAuth(opts.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	staff.GET("/bookings/:ref", h.Booking.Get)
	staff.POST("/bookings/:ref/claim", h.Admin.Claim)

	// Admin dashboard.
	admin := v1.Group("/admin", middleware.RequireAuth(opts.JWTSecret),
		middleware.RequireRole(model.RoleAdmin))

	admin.GET("/locations", h.Admin.ListLocations)
	admin.POST("/locations", h.Admin.CreateLocation)
	admin.PUT("/locations/:id", h.Admin.UpdateLocation)
	admin.DELETE("/locations/:id", h.Admin.DeleteLocation)
	admin.PUT("/locations/:id/capacity", h.Admin.SetCapacity)
	admin.PUT("/locations/:id/blackout", h.Admin.SetBlackout)
	admin.PUT("/locations/:id/special-pricing", h.Admin.SetSpecialPricing)
	admin.POST("/locations/bulk", h.Admin.BulkLocations)
	admin.POST("/availability/seed", h.Admin.SeedAvailability)

	admin.GET("/addons", h.Admin.ListAddons)
	admin.POST("/addons", h.Admin.CreateAddon)
	admin.PUT("/addons/:id", h.Admin.UpdateAddon)
	admin.POST("/addons/bulk", h.Admin.BulkAddons)

	admin.GET("/promos", h.Admin.ListPromos)
	admin.POST("/promos", h.Admin.CreatePromo)
	admin.PUT("/promos/:id/status", h.Admin.SetPromoStatus)

	admin.GET("/offers", h.Admin.ListOffers)
	admin.POST("/offers", h.Admin.CreateOffer)
	admin.PUT("/offers/:id/status", h.Admin.SetOfferStatus)

	admin.GET("/bookings", h.Admin.ListBookings)
	admin.GET("/bookings/:ref/activity", h.Admin.Activity)
	admin.POST("/bookings/:ref/claim", h.Admin.Claim)
	admin.POST("/bookings/:ref/refund", h.Admin.Refund)
	admin.POST("/bookings/bulk", h.Admin.Bulk)

	admin.GET("/settings", h.Admin.GetSettings)
	admin.PUT("/settings", h.Admin.UpdateSettings)

	return e
}
