// README: Vehicle type catalog and standalone route calculation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cargoflow/internal/modules/dispatch"
	"cargoflow/internal/modules/pricing"
	"cargoflow/internal/types"
)

type CatalogHandler struct {
	pricing  *pricing.Service
	dispatch *dispatch.Service
}

func NewCatalogHandler(pr *pricing.Service, d *dispatch.Service) *CatalogHandler {
	return &CatalogHandler{pricing: pr, dispatch: d}
}

func (h *CatalogHandler) VehicleTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.pricing.List())
}

type routeReq struct {
	Origin      types.Point `json:"origin"`
	Destination types.Point `json:"destination"`
}

func (h *CatalogHandler) CalculateRoute(c *gin.Context) {
	var req routeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	route, err := h.dispatch.Route(c.Request.Context(), req.Origin, req.Destination)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"distance": route.DistanceMeters,
		"route":    route.Geometry,
	})
}
