// README: HTTP route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cargoflow/internal/auth"
	"cargoflow/internal/http/handlers"
	"cargoflow/internal/http/middleware"
	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/dispatch"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/modules/pricing"
)

type RouterDeps struct {
	Auth     *auth.Service
	Tokens   *auth.Manager
	Dispatch *dispatch.Service
	Ledger   *booking.Service
	Fleet    *fleet.Service
	Pricing  *pricing.Service
	// WS handles the websocket upgrade; nil disables the endpoint.
	WS  gin.HandlerFunc
	Log *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	authHandler := handlers.NewAuthHandler(deps.Auth)
	bookingHandler := handlers.NewBookingHandler(deps.Dispatch, deps.Ledger, deps.Auth)
	driverHandler := handlers.NewDriverHandler(deps.Fleet, deps.Auth)
	catalogHandler := handlers.NewCatalogHandler(deps.Pricing, deps.Dispatch)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.POST("/api/login", authHandler.Login)
	r.GET("/api/vehicle-types", catalogHandler.VehicleTypes)
	r.POST("/api/calculate-route", catalogHandler.CalculateRoute)

	api := r.Group("/api", middleware.Auth(deps.Tokens))
	api.GET("/bookings", bookingHandler.List)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings",
		middleware.RequireRole(auth.RoleCustomer, auth.RoleAdmin),
		bookingHandler.Create)
	api.POST("/bookings/:id/accept",
		middleware.RequireRole(auth.RoleDriver, auth.RoleAdmin),
		bookingHandler.Accept)
	api.PUT("/bookings/:id/status",
		middleware.RequireRole(auth.RoleDriver, auth.RoleAdmin),
		bookingHandler.UpdateStatus)

	api.GET("/drivers", driverHandler.List)
	api.POST("/drivers/:id/location",
		middleware.RequireRole(auth.RoleDriver, auth.RoleAdmin),
		driverHandler.UpdateLocation)

	if deps.WS != nil {
		r.GET("/ws", deps.WS)
	}
	return r
}
