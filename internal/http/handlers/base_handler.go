// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cargoflow/internal/auth"
	"cargoflow/internal/maps"
	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/dispatch"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeDomainError maps module sentinels to status codes in one place.
// An unauthorized transition reads as "not found" so callers cannot
// probe which bookings exist.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, maps.ErrInvalidCoordinates),
		errors.Is(err, booking.ErrInvalidVehicleType),
		errors.Is(err, fleet.ErrInvalidLocation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(c, http.StatusNotFound, "booking not found or unauthorized")
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, fleet.ErrDriverNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrAlreadyAssigned),
		errors.Is(err, booking.ErrIllegalTransition),
		errors.Is(err, booking.ErrConflict),
		errors.Is(err, dispatch.ErrNoDriversAvailable):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, maps.ErrRouteUnavailable):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func parseID(c *gin.Context, name string) (types.ID, bool) {
	raw := c.Param(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		writeError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return types.ID(v), true
}
