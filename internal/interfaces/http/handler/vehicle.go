package handler

import (
	"github.com/gin-gonic/gin"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
)

// VehicleHandler handles vehicle endpoints
type VehicleHandler struct {
	BaseHandler
	vehicles *appfleet.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(vehicles *appfleet.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// Create registers a vehicle
func (h *VehicleHandler) Create(c *gin.Context) {
	var req appfleet.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vehicle, err := h.vehicles.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, vehicle)
}

// GetByID returns one vehicle
func (h *VehicleHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "vehicle")
	if !ok {
		return
	}

	vehicle, err := h.vehicles.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, vehicle)
}

// List returns a page of vehicles
func (h *VehicleHandler) List(c *gin.Context) {
	var filter appfleet.VehicleListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	vehicles, total, err := h.vehicles.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, vehicles, total, filter.Page, filter.PageSize)
}

// Update replaces the editable fields of a vehicle
func (h *VehicleHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "vehicle")
	if !ok {
		return
	}
	var req appfleet.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vehicle, err := h.vehicles.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, vehicle)
}

// Activate marks a vehicle Active
func (h *VehicleHandler) Activate(c *gin.Context) {
	id, ok := h.ParseID(c, "vehicle")
	if !ok {
		return
	}
	vehicle, err := h.vehicles.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, vehicle)
}

// Deactivate marks a vehicle Inactive
func (h *VehicleHandler) Deactivate(c *gin.Context) {
	id, ok := h.ParseID(c, "vehicle")
	if !ok {
		return
	}
	vehicle, err := h.vehicles.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, vehicle)
}

// Delete removes a vehicle without trips
func (h *VehicleHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "vehicle")
	if !ok {
		return
	}
	if err := h.vehicles.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
