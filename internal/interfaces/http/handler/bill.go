package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
)

// BillHandler handles bill endpoints. Bills are soft-deleted and can be restored.
type BillHandler struct {
	BaseHandler
	bills *appbilling.BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(bills *appbilling.BillService) *BillHandler {
	return &BillHandler{bills: bills}
}

// GetByID returns one bill, deleted or not
func (h *BillHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "bill")
	if !ok {
		return
	}

	bill, err := h.bills.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// List returns a page of bills; deleted bills only with ?include_deleted=true
func (h *BillHandler) List(c *gin.Context) {
	var filter appbilling.BillListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	bills, total, err := h.bills.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, bills, total, filter.Page, filter.PageSize)
}

// Delete soft-deletes a bill
func (h *BillHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "bill")
	if !ok {
		return
	}
	if err := h.bills.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore undeletes a bill
func (h *BillHandler) Restore(c *gin.Context) {
	id, ok := h.ParseID(c, "bill")
	if !ok {
		return
	}

	bill, err := h.bills.Restore(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}
