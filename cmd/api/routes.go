package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/SomuG25/devcall/internal/config"
	"github.com/SomuG25/devcall/internal/httpapi"
	"github.com/SomuG25/devcall/internal/rbac"
	"github.com/SomuG25/devcall/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB, rdb *redis.Client) {
	if len(cfg.App.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.App.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Public: account creation and the developer directory.
	v1.POST("/auth/signup", h.SignUp)
	v1.POST("/auth/login", h.Login)
	v1.POST("/auth/refresh", h.Refresh)
	v1.GET("/developers", h.ListDevelopers)
	v1.GET("/developers/:id", h.GetDeveloper)

	// Authenticated API.
	authed := v1.Group("")
	authed.Use(authMW)
	{
		authed.GET("/me", h.Me)
		authed.POST("/me/roles/customer", h.BecomeCustomer)
		authed.PUT("/me/developer-profile", rbac.RequireAnyRole(rbac.RoleDeveloper), h.UpdateDeveloperProfile)
		authed.GET("/me/customer-profile", rbac.RequireAnyRole(rbac.RoleCustomer), h.GetMyCustomerProfile)
		authed.PUT("/me/customer-profile", rbac.RequireAnyRole(rbac.RoleCustomer), h.UpdateCustomerProfile)

		authed.POST("/bookings", rbac.RequireAnyRole(rbac.RoleCustomer), h.CreateBooking)
		authed.GET("/bookings", h.ListBookings)
		authed.GET("/bookings/stream", h.StreamBookings)
		authed.GET("/bookings/:id", h.GetBooking)
		authed.POST("/bookings/:id/cancel", h.CancelBooking)
		authed.POST("/bookings/:id/call", h.RecordCallOutcome)
		authed.POST("/bookings/:id/payment", rbac.RequireAnyRole(rbac.RoleCustomer), h.ConfirmPayment)
		authed.GET("/bookings/:id/audit", h.BookingAuditTrail)

		authed.GET("/reports/developer", rbac.RequireAnyRole(rbac.RoleDeveloper), h.DeveloperReport)
		authed.GET("/reports/customer", rbac.RequireAnyRole(rbac.RoleCustomer), h.CustomerReport)
	}
}
