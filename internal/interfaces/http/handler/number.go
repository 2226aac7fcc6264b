package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/transportops/backoffice/internal/application/billing"
	"github.com/transportops/backoffice/internal/domain/billing"
)

// NumberHandler previews document numbers
type NumberHandler struct {
	BaseHandler
	numbers *appbilling.NumberService
}

// NewNumberHandler creates a new NumberHandler
func NewNumberHandler(numbers *appbilling.NumberService) *NumberHandler {
	return &NumberHandler{numbers: numbers}
}

// Next returns the number the next invoice or bill would get. Nothing is
// reserved; a concurrent create may take the number first.
func (h *NumberHandler) Next(c *gin.Context) {
	kind := billing.DocumentKind(c.DefaultQuery("kind", string(billing.DocumentInvoice)))
	if !kind.IsValid() {
		h.BadRequest(c, "kind must be invoice or bill")
		return
	}

	next, err := h.numbers.Preview(c.Request.Context(), kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, next)
}
