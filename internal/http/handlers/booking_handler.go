// README: Booking endpoints: quote/create, read, accept, advance status.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargoflow/internal/auth"
	"cargoflow/internal/http/middleware"
	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/dispatch"
	"cargoflow/internal/types"
)

type BookingHandler struct {
	dispatch *dispatch.Service
	ledger   *booking.Service
	users    *auth.Service
}

func NewBookingHandler(d *dispatch.Service, ledger *booking.Service, users *auth.Service) *BookingHandler {
	return &BookingHandler{dispatch: d, ledger: ledger, users: users}
}

type createBookingReq struct {
	Pickup       types.Point `json:"pickup"`
	Dropoff      types.Point `json:"dropoff"`
	VehicleType  int64       `json:"vehicleType"`
	EstimateOnly bool        `json:"estimateOnly"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.dispatch.RequestBooking(c.Request.Context(), dispatch.RequestCommand{
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		VehicleTypeID: types.ID(req.VehicleType),
		EstimateOnly:  req.EstimateOnly,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if req.EstimateOnly {
		c.JSON(http.StatusOK, res.Quote)
		return
	}
	c.JSON(http.StatusCreated, res.Booking)
}

func (h *BookingHandler) List(c *gin.Context) {
	all, err := h.ledger.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type acceptReq struct {
	DriverID int64 `json:"driverId"`
}

func (h *BookingHandler) Accept(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req acceptReq
	_ = c.ShouldBindJSON(&req) // body is optional for drivers
	driverID, ok := h.callerDriverID(c, req.DriverID)
	if !ok {
		return
	}
	b, err := h.dispatch.AcceptJob(c.Request.Context(), id, driverID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type statusReq struct {
	Status   string `json:"status"`
	DriverID int64  `json:"driverId"`
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	next := booking.Status(req.Status)
	if !booking.ValidStatus(next) {
		writeError(c, http.StatusBadRequest, "unknown status")
		return
	}
	driverID, ok := h.callerDriverID(c, req.DriverID)
	if !ok {
		return
	}
	b, err := h.dispatch.AdvanceStatus(c.Request.Context(), id, driverID, next)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// callerDriverID resolves which driver is acting. Drivers always act as
// themselves; admins may act for any driver by naming one.
func (h *BookingHandler) callerDriverID(c *gin.Context, requested int64) (types.ID, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "missing token")
		return 0, false
	}
	if claims.Role == auth.RoleAdmin {
		if requested <= 0 {
			writeError(c, http.StatusBadRequest, "driverId required")
			return 0, false
		}
		return types.ID(requested), true
	}
	user, found := h.users.Get(claims.UserID)
	if !found || user.DriverID == nil {
		writeError(c, http.StatusForbidden, "forbidden")
		return 0, false
	}
	if requested > 0 && types.ID(requested) != *user.DriverID {
		writeError(c, http.StatusForbidden, "forbidden")
		return 0, false
	}
	return *user.DriverID, true
}
