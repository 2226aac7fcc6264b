package fleet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
)

// =============================================================================
// Client DTOs
// =============================================================================

// ClientRequest carries the editable fields of a client
type ClientRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	ContactPerson string `json:"contact_person" binding:"max=100"`
	Phone         string `json:"phone" binding:"max=20"`
	Email         string `json:"email" binding:"omitempty,email,max=200"`
	Address       string `json:"address" binding:"max=500"`
	City          string `json:"city" binding:"max=100"`
	State         string `json:"state" binding:"max=100"`
	GSTNumber     string `json:"gst_number" binding:"max=20"`
	PANNumber     string `json:"pan_number" binding:"max=10"`
}

func (r ClientRequest) details() fleet.ClientDetails {
	return fleet.ClientDetails{
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Email:         r.Email,
		Address:       r.Address,
		City:          r.City,
		State:         r.State,
		GSTNumber:     r.GSTNumber,
		PANNumber:     r.PANNumber,
	}
}

// ClientListFilter represents filter options for client list
type ClientListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=Active Inactive"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	GSTNumber     string    `json:"gst_number,omitempty"`
	PANNumber     string    `json:"pan_number,omitempty"`
	Status        string    `json:"status"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToClientResponse converts a client to its response form
func ToClientResponse(c *fleet.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		Name:          c.Name,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		GSTNumber:     c.GSTNumber,
		PANNumber:     c.PANNumber,
		Status:        string(c.Status),
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// =============================================================================
// Driver DTOs
// =============================================================================

// CreateDriverRequest represents a request to register a driver
type CreateDriverRequest struct {
	Name          string  `json:"name" binding:"required,max=100"`
	Phone         string  `json:"phone" binding:"max=20"`
	Address       string  `json:"address" binding:"max=500"`
	LicenseNumber string  `json:"license_number" binding:"required,max=50"`
	LicenseExpiry *string `json:"license_expiry" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateDriverRequest represents a request to update a driver.
// Nil license fields leave the license unchanged.
type UpdateDriverRequest struct {
	Name          string  `json:"name" binding:"required,max=100"`
	Phone         string  `json:"phone" binding:"max=20"`
	Address       string  `json:"address" binding:"max=500"`
	LicenseNumber *string `json:"license_number" binding:"omitempty,max=50"`
	LicenseExpiry *string `json:"license_expiry" binding:"omitempty,datetime=2006-01-02"`
}

// DriverListFilter represents filter options for driver list
type DriverListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DriverResponse represents a driver in API responses
type DriverResponse struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Phone                string    `json:"phone,omitempty"`
	Address              string    `json:"address,omitempty"`
	LicenseNumber        string    `json:"license_number"`
	LicenseExpiry        *string   `json:"license_expiry,omitempty"`
	LicenseDaysRemaining *int      `json:"license_days_remaining,omitempty"`
	Status               string    `json:"status"`
	Version              int       `json:"version"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ToDriverResponse converts a driver, computing license validity as of today
func ToDriverResponse(d *fleet.Driver, today time.Time) DriverResponse {
	resp := DriverResponse{
		ID:            d.ID,
		Name:          d.Name,
		Phone:         d.Phone,
		Address:       d.Address,
		LicenseNumber: d.LicenseNumber,
		LicenseExpiry: formatDate(d.LicenseExpiry),
		Status:        string(d.Status),
		Version:       d.Version,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if days, ok := d.LicenseDaysRemaining(today); ok {
		resp.LicenseDaysRemaining = &days
	}
	return resp
}

// ExpiringLicenseResponse is one row of the license-expiry report
type ExpiringLicenseResponse struct {
	DriverID      uuid.UUID `json:"driver_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	LicenseNumber string    `json:"license_number"`
	LicenseExpiry string    `json:"license_expiry"`
	DaysRemaining int       `json:"days_remaining"`
	Expired       bool      `json:"expired"`
}

// =============================================================================
// Vehicle DTOs
// =============================================================================

// VehicleRequest carries the editable fields of a vehicle
type VehicleRequest struct {
	RegistrationNumber string          `json:"registration_number" binding:"required,max=20"`
	VehicleType        string          `json:"vehicle_type" binding:"max=50"`
	Capacity           decimal.Decimal `json:"capacity"`
	OwnerDriverID      *uuid.UUID      `json:"owner_driver_id"`
	OwnerClientID      *uuid.UUID      `json:"owner_client_id"`
}

// VehicleListFilter represents filter options for vehicle list
type VehicleListFilter struct {
	Search        string `form:"search"`
	Status        string `form:"status" binding:"omitempty,oneof=Active Inactive"`
	OwnerClientID string `form:"owner_client_id" binding:"omitempty,uuid"`
	OwnerDriverID string `form:"owner_driver_id" binding:"omitempty,uuid"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// VehicleResponse represents a vehicle in API responses
type VehicleResponse struct {
	ID                 uuid.UUID       `json:"id"`
	RegistrationNumber string          `json:"registration_number"`
	VehicleType        string          `json:"vehicle_type,omitempty"`
	Capacity           decimal.Decimal `json:"capacity"`
	OwnerDriverID      *uuid.UUID      `json:"owner_driver_id,omitempty"`
	OwnerClientID      *uuid.UUID      `json:"owner_client_id,omitempty"`
	Status             string          `json:"status"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ToVehicleResponse converts a vehicle to its response form
func ToVehicleResponse(v *fleet.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:                 v.ID,
		RegistrationNumber: v.RegistrationNumber,
		VehicleType:        v.VehicleType,
		Capacity:           v.Capacity,
		OwnerDriverID:      v.OwnerDriverID,
		OwnerClientID:      v.OwnerClientID,
		Status:             string(v.Status),
		Version:            v.Version,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

// =============================================================================
// Trip DTOs
// =============================================================================

// TripRequest carries the editable fields of a trip.
// Amount and pending amount are always derived from quantity, rate and amount paid.
type TripRequest struct {
	ClientID    uuid.UUID       `json:"client_id" binding:"required"`
	DriverID    uuid.UUID       `json:"driver_id" binding:"required"`
	VehicleID   uuid.UUID       `json:"vehicle_id" binding:"required"`
	Date        *string         `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Source      string          `json:"source" binding:"max=200"`
	Destination string          `json:"destination" binding:"max=200"`
	Material    string          `json:"material" binding:"max=100"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Notes       string          `json:"notes" binding:"max=1000"`
}

func (r TripRequest) details() (fleet.TripDetails, error) {
	date, err := parseOptionalDate(r.Date)
	if err != nil {
		return fleet.TripDetails{}, err
	}
	return fleet.TripDetails{
		ClientID:    r.ClientID,
		DriverID:    r.DriverID,
		VehicleID:   r.VehicleID,
		Date:        date,
		Source:      r.Source,
		Destination: r.Destination,
		Material:    r.Material,
		Quantity:    r.Quantity,
		Rate:        r.Rate,
		AmountPaid:  r.AmountPaid,
		Notes:       r.Notes,
	}, nil
}

// ChangeTripStatusRequest moves a trip through its lifecycle
type ChangeTripStatusRequest struct {
	Status string `json:"status" binding:"required,trip_status"`
}

// TripListFilter represents filter options for trip list
type TripListFilter struct {
	Search    string `form:"search"`
	ClientID  string `form:"client_id" binding:"omitempty,uuid"`
	DriverID  string `form:"driver_id" binding:"omitempty,uuid"`
	VehicleID string `form:"vehicle_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,trip_status"`
	DateFrom  string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to" binding:"omitempty,datetime=2006-01-02"`
	Invoiced  *bool  `form:"invoiced"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TripResponse represents a trip in API responses
type TripResponse struct {
	ID            uuid.UUID       `json:"id"`
	ClientID      uuid.UUID       `json:"client_id"`
	DriverID      uuid.UUID       `json:"driver_id"`
	VehicleID     uuid.UUID       `json:"vehicle_id"`
	Date          *string         `json:"date"`
	Source        string          `json:"source,omitempty"`
	Destination   string          `json:"destination,omitempty"`
	Material      string          `json:"material,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	Status        string          `json:"status"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Invoiced      bool            `json:"invoiced"`
	Notes         string          `json:"notes,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToTripResponse converts a trip to its response form
func ToTripResponse(t *fleet.Trip) TripResponse {
	return TripResponse{
		ID:            t.ID,
		ClientID:      t.ClientID,
		DriverID:      t.DriverID,
		VehicleID:     t.VehicleID,
		Date:          formatDate(t.Date),
		Source:        t.Source,
		Destination:   t.Destination,
		Material:      t.Material,
		Quantity:      t.Quantity,
		Rate:          t.Rate,
		Amount:        t.Amount,
		AmountPaid:    t.AmountPaid,
		PendingAmount: t.PendingAmount,
		Status:        string(t.Status),
		InvoiceID:     t.InvoiceID,
		Invoiced:      t.IsInvoiced(),
		Notes:         t.Notes,
		Version:       t.Version,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(shared.DateLayout)
	return &s
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := shared.ParseCalendarDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalUUID(s, field string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, shared.NewValidationError("invalid " + field)
	}
	return &id, nil
}
