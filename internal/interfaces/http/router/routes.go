package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/transportops/backoffice/internal/interfaces/http/handler"
)

// Handlers bundles the endpoint handlers of the API
type Handlers struct {
	Clients  *handler.ClientHandler
	Drivers  *handler.DriverHandler
	Vehicles *handler.VehicleHandler
	Trips    *handler.TripHandler
	Invoices *handler.InvoiceHandler
	Bills    *handler.BillHandler
	Payments *handler.PaymentHandler
	Numbers  *handler.NumberHandler
	Health   *handler.HealthHandler
}

// master data resources share the same lifecycle endpoints
type masterData interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	GetByID(c *gin.Context)
	Update(c *gin.Context)
	Activate(c *gin.Context)
	Deactivate(c *gin.Context)
	Delete(c *gin.Context)
}

func masterDataRoutes(h masterData, extra ...Route) []Route {
	routes := []Route{
		{http.MethodPost, "", h.Create},
		{http.MethodGet, "", h.List},
	}
	routes = append(routes, extra...)
	return append(routes,
		Route{http.MethodGet, "/:id", h.GetByID},
		Route{http.MethodPut, "/:id", h.Update},
		Route{http.MethodPost, "/:id/activate", h.Activate},
		Route{http.MethodPost, "/:id/deactivate", h.Deactivate},
		Route{http.MethodDelete, "/:id", h.Delete},
	)
}

// Resources returns the /api/v1 route table
func Resources(h Handlers) []Resource {
	return []Resource{
		{Prefix: "/clients", Routes: masterDataRoutes(h.Clients)},
		{Prefix: "/drivers", Routes: masterDataRoutes(h.Drivers,
			Route{http.MethodGet, "/expiring-licenses", h.Drivers.ExpiringLicenses},
		)},
		{Prefix: "/vehicles", Routes: masterDataRoutes(h.Vehicles)},
		{Prefix: "/trips", Routes: []Route{
			{http.MethodPost, "", h.Trips.Create},
			{http.MethodGet, "", h.Trips.List},
			{http.MethodGet, "/:id", h.Trips.GetByID},
			{http.MethodPut, "/:id", h.Trips.Update},
			{http.MethodPost, "/:id/status", h.Trips.ChangeStatus},
			{http.MethodDelete, "/:id", h.Trips.Delete},
		}},
		{Prefix: "/invoices", Routes: []Route{
			{http.MethodPost, "", h.Invoices.Create},
			{http.MethodGet, "", h.Invoices.List},
			{http.MethodGet, "/by-number/:number", h.Invoices.GetByNumber},
			{http.MethodGet, "/:id", h.Invoices.GetByID},
			{http.MethodGet, "/:id/trips", h.Invoices.Trips},
			{http.MethodGet, "/:id/payment", h.Invoices.Payment},
			{http.MethodPost, "/:id/bill", h.Invoices.ReissueBill},
		}},
		{Prefix: "/bills", Routes: []Route{
			{http.MethodGet, "", h.Bills.List},
			{http.MethodGet, "/:id", h.Bills.GetByID},
			{http.MethodDelete, "/:id", h.Bills.Delete},
			{http.MethodPost, "/:id/restore", h.Bills.Restore},
		}},
		// payment status is derived; there is no endpoint that writes it
		{Prefix: "/payments", Routes: []Route{
			{http.MethodGet, "/:id", h.Payments.GetByID},
			{http.MethodGet, "/:id/transactions", h.Payments.Transactions},
			{http.MethodPost, "/:id/transactions", h.Payments.RecordTransaction},
		}},
		{Prefix: "/numbers", Routes: []Route{
			{http.MethodGet, "/next", h.Numbers.Next},
		}},
	}
}
