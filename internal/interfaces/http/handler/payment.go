package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	"github.com/transportops/backoffice/internal/infrastructure/logger"
	"github.com/transportops/backoffice/internal/interfaces/http/middleware"
)

// MaxIdempotencyKeyLength caps the Idempotency-Key header
const MaxIdempotencyKeyLength = 128

// PaymentHandler handles payment balances and the partial-payment ledger
type PaymentHandler struct {
	BaseHandler
	payments *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// GetByID returns a payment balance
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "payment")
	if !ok {
		return
	}

	payment, err := h.payments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// RecordTransaction applies a partial payment. A repeated Idempotency-Key
// for the same payment is answered with 409 and changes nothing.
func (h *PaymentHandler) RecordTransaction(c *gin.Context) {
	id, ok := h.ParseID(c, "payment")
	if !ok {
		return
	}
	var req appbilling.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if key := c.GetHeader(middleware.IdempotencyKeyHeader); key != "" {
		if len(key) > MaxIdempotencyKeyLength {
			h.BadRequest(c, "Idempotency-Key is too long")
			return
		}
		req.IdempotencyKey = key
		ctx = logger.WithIdempotencyKey(ctx, key)
	}

	recorded, err := h.payments.RecordPartialPayment(ctx, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, recorded)
}

// Transactions returns the ledger of a payment, oldest first
func (h *PaymentHandler) Transactions(c *gin.Context) {
	id, ok := h.ParseID(c, "payment")
	if !ok {
		return
	}

	txns, err := h.payments.Transactions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txns)
}
