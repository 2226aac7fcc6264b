package handler

import (
	"github.com/gin-gonic/gin"
	appfleet "github.com/transportops/backoffice/internal/application/fleet"
)

// ClientHandler handles client master data endpoints
type ClientHandler struct {
	BaseHandler
	clients *appfleet.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clients *appfleet.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// Create registers a client
func (h *ClientHandler) Create(c *gin.Context) {
	var req appfleet.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	client, err := h.clients.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, client)
}

// GetByID returns one client
func (h *ClientHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c, "client")
	if !ok {
		return
	}

	client, err := h.clients.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// List returns a page of clients
func (h *ClientHandler) List(c *gin.Context) {
	var filter appfleet.ClientListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	clients, total, err := h.clients.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, clients, total, filter.Page, filter.PageSize)
}

// Update replaces the editable fields of a client
func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "client")
	if !ok {
		return
	}
	var req appfleet.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	client, err := h.clients.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Activate marks a client Active
func (h *ClientHandler) Activate(c *gin.Context) {
	id, ok := h.ParseID(c, "client")
	if !ok {
		return
	}
	client, err := h.clients.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Deactivate marks a client Inactive; it can no longer be billed or booked
func (h *ClientHandler) Deactivate(c *gin.Context) {
	id, ok := h.ParseID(c, "client")
	if !ok {
		return
	}
	client, err := h.clients.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Delete removes a client without trips or invoices
func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "client")
	if !ok {
		return
	}
	if err := h.clients.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
