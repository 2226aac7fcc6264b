package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
)

// InvoiceHandler handles invoice endpoints. Creating an invoice also issues
// its bill and opening payment balance in the same transaction.
type InvoiceHandler struct {
	BaseHandler
	invoices *appbilling.InvoiceService
	bills    *appbilling.BillService
	payments *appbilling.PaymentService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *appbilling.InvoiceService, bills *appbilling.BillService, payments *appbilling.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, bills: bills, payments: payments}
}

// Create bills the selected trips of one client and one calendar day
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req appbilling.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	created, err := h.invoices.CreateInvoiceFromTrips(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, created)
}

// GetByID returns one invoice with its current status and overdue days
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// GetByNumber looks an invoice up by its number, e.g. IN0042
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	invoice, err := h.invoices.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// List returns a page of invoices; ?overdue=true keeps only overdue ones
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter appbilling.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	invoices, total, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Trips returns the trip lines billed on an invoice
func (h *InvoiceHandler) Trips(c *gin.Context) {
	id, ok := h.ParseID(c, "invoice")
	if !ok {
		return
	}

	lines, err := h.invoices.Trips(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

// Payment returns the balance of an invoice
func (h *InvoiceHandler) Payment(c *gin.Context) {
	id, ok := h.ParseID(c, "invoice")
	if !ok {
		return
	}

	payment, err := h.payments.GetByInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// ReissueBill issues a new bill for an invoice whose bill was deleted
func (h *InvoiceHandler) ReissueBill(c *gin.Context) {
	id, ok := h.ParseID(c, "invoice")
	if !ok {
		return
	}

	bill, err := h.bills.CreateForInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bill)
}
