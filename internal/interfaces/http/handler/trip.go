package handler

import (
	"github.com/gin-gonic/gin"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
)

// TripHandler handles trip booking and lifecycle endpoints.
// Invoiced trips reject every mutation with 422.
type TripHandler struct {
	BaseHandler
	trips *appfleet.TripService
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(trips *appfleet.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

// Create books a trip
func (h *TripHandler) Create(c *gin.Context) {
	var req appfleet.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	trip, err := h.trips.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, trip)
}

// GetByID returns one trip
func (h *TripHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "trip")
	if !ok {
		return
	}

	trip, err := h.trips.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trip)
}

// List returns a page of trips; ?invoiced=false lists trips still to be billed
func (h *TripHandler) List(c *gin.Context) {
	var filter appfleet.TripListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	trips, total, err := h.trips.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, trips, total, filter.Page, filter.PageSize)
}

// Update edits an uninvoiced trip
func (h *TripHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "trip")
	if !ok {
		return
	}
	var req appfleet.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	trip, err := h.trips.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trip)
}

// ChangeStatus moves a trip to the requested status
func (h *TripHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.ParseID(c, "trip")
	if !ok {
		return
	}
	var req appfleet.ChangeTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	trip, err := h.trips.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trip)
}

// Delete removes an uninvoiced trip
func (h *TripHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "trip")
	if !ok {
		return
	}
	if err := h.trips.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
