// README: Fleet endpoints: list drivers, report position.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargoflow/internal/auth"
	"cargoflow/internal/http/middleware"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/types"
)

type DriverHandler struct {
	fleet *fleet.Service
	users *auth.Service
}

func NewDriverHandler(svc *fleet.Service, users *auth.Service) *DriverHandler {
	return &DriverHandler{fleet: svc, users: users}
}

func (h *DriverHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.fleet.List(c.Request.Context()))
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !h.mayActFor(c, id) {
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	d, err := h.fleet.SetLocation(c.Request.Context(), id, types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// mayActFor allows admins to move any driver and drivers to move only
// themselves.
func (h *DriverHandler) mayActFor(c *gin.Context, driverID types.ID) bool {
	claims, ok := middleware.Claims(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "missing token")
		return false
	}
	if claims.Role == auth.RoleAdmin {
		return true
	}
	user, found := h.users.Get(claims.UserID)
	if !found || user.DriverID == nil || *user.DriverID != driverID {
		writeError(c, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
