package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
)

// DriverHandler handles driver endpoints, including the license-expiry report
type DriverHandler struct {
	BaseHandler
	drivers *appfleet.DriverService
}

// NewDriverHandler creates a new DriverHandler
func NewDriverHandler(drivers *appfleet.DriverService) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

// Create registers a driver
func (h *DriverHandler) Create(c *gin.Context) {
	var req appfleet.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	driver, err := h.drivers.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, driver)
}

// GetByID returns one driver
func (h *DriverHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "driver")
	if !ok {
		return
	}

	driver, err := h.drivers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, driver)
}

// List returns a page of drivers
func (h *DriverHandler) List(c *gin.Context) {
	var filter appfleet.DriverListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	drivers, total, err := h.drivers.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, drivers, total, filter.Page, filter.PageSize)
}

// Update changes a driver; omitted license fields are kept
func (h *DriverHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "driver")
	if !ok {
		return
	}
	var req appfleet.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	driver, err := h.drivers.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, driver)
}

// Activate marks a driver active
func (h *DriverHandler) Activate(c *gin.Context) {
	id, ok := h.ParseID(c, "driver")
	if !ok {
		return
	}
	driver, err := h.drivers.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, driver)
}

// Deactivate marks a driver inactive
func (h *DriverHandler) Deactivate(c *gin.Context) {
	id, ok := h.ParseID(c, "driver")
	if !ok {
		return
	}
	driver, err := h.drivers.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, driver)
}

// Delete removes a driver without trips
func (h *DriverHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "driver")
	if !ok {
		return
	}
	if err := h.drivers.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ExpiringLicenses lists drivers whose license expired or expires within ?days= (default 30)
func (h *DriverHandler) ExpiringLicenses(c *gin.Context) {
	days := appfleet.DefaultLicenseWarningDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 365 {
			h.BadRequest(c, "days must be an integer between 0 and 365")
			return
		}
		days = n
	}

	drivers, err := h.drivers.ExpiringLicenses(c.Request.Context(), days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, drivers)
}
