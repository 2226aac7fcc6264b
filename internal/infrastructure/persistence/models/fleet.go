package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"gorm.io/datatypes"
)

// ClientModel is the persistence model for the Client aggregate
type ClientModel struct {
	AggregateModel
	Name          string             `gorm:"type:varchar(200);not null;index"`
	ContactPerson string             `gorm:"type:varchar(100)"`
	Phone         string             `gorm:"type:varchar(50)"`
	Email         string             `gorm:"type:varchar(200)"`
	Address       string             `gorm:"type:text"`
	City          string             `gorm:"type:varchar(100)"`
	State         string             `gorm:"type:varchar(100)"`
	GSTNumber     string             `gorm:"column:gst_number;type:varchar(20)"`
	PANNumber     string             `gorm:"column:pan_number;type:varchar(20)"`
	Status        fleet.ClientStatus `gorm:"type:varchar(20);not null;default:'Active'"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *fleet.Client {
	return &fleet.Client{
		BaseAggregateRoot: m.toAggregate(),
		ClientDetails: fleet.ClientDetails{
			Name:          m.Name,
			ContactPerson: m.ContactPerson,
			Phone:         m.Phone,
			Email:         m.Email,
			Address:       m.Address,
			City:          m.City,
			State:         m.State,
			GSTNumber:     m.GSTNumber,
			PANNumber:     m.PANNumber,
		},
		Status: m.Status,
	}
}

// ClientModelFromDomain creates a persistence model from a domain Client
func ClientModelFromDomain(c *fleet.Client) *ClientModel {
	m := &ClientModel{
		Name:          c.Name,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		GSTNumber:     c.GSTNumber,
		PANNumber:     c.PANNumber,
		Status:        c.Status,
	}
	m.fromAggregate(c.BaseAggregateRoot)
	return m
}

// DriverModel is the persistence model for the Driver aggregate
type DriverModel struct {
	AggregateModel
	Name          string             `gorm:"type:varchar(200);not null"`
	Phone         string             `gorm:"type:varchar(50)"`
	Address       string             `gorm:"type:text"`
	LicenseNumber string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	LicenseExpiry *datatypes.Date    `gorm:"index"`
	Status        fleet.DriverStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (DriverModel) TableName() string {
	return "drivers"
}

// ToDomain converts the persistence model to a domain Driver
func (m *DriverModel) ToDomain() *fleet.Driver {
	return &fleet.Driver{
		BaseAggregateRoot: m.toAggregate(),
		Name:              m.Name,
		Phone:             m.Phone,
		Address:           m.Address,
		LicenseNumber:     m.LicenseNumber,
		LicenseExpiry:     datePtrOf(m.LicenseExpiry),
		Status:            m.Status,
	}
}

// DriverModelFromDomain creates a persistence model from a domain Driver
func DriverModelFromDomain(d *fleet.Driver) *DriverModel {
	m := &DriverModel{
		Name:          d.Name,
		Phone:         d.Phone,
		Address:       d.Address,
		LicenseNumber: d.LicenseNumber,
		LicenseExpiry: toDatePtr(d.LicenseExpiry),
		Status:        d.Status,
	}
	m.fromAggregate(d.BaseAggregateRoot)
	return m
}

// VehicleModel is the persistence model for the Vehicle aggregate
type VehicleModel struct {
	AggregateModel
	RegistrationNumber string              `gorm:"type:varchar(20);not null;uniqueIndex"`
	VehicleType        string              `gorm:"type:varchar(50)"`
	Capacity           decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	OwnerDriverID      *uuid.UUID          `gorm:"type:uuid;index"`
	OwnerClientID      *uuid.UUID          `gorm:"type:uuid;index"`
	Status             fleet.VehicleStatus `gorm:"type:varchar(20);not null;default:'Active'"`
}

// TableName returns the table name for GORM
func (VehicleModel) TableName() string {
	return "vehicles"
}

// ToDomain converts the persistence model to a domain Vehicle
func (m *VehicleModel) ToDomain() *fleet.Vehicle {
	return &fleet.Vehicle{
		BaseAggregateRoot:  m.toAggregate(),
		RegistrationNumber: m.RegistrationNumber,
		VehicleType:        m.VehicleType,
		Capacity:           m.Capacity,
		OwnerDriverID:      m.OwnerDriverID,
		OwnerClientID:      m.OwnerClientID,
		Status:             m.Status,
	}
}

// VehicleModelFromDomain creates a persistence model from a domain Vehicle
func VehicleModelFromDomain(v *fleet.Vehicle) *VehicleModel {
	m := &VehicleModel{
		RegistrationNumber: v.RegistrationNumber,
		VehicleType:        v.VehicleType,
		Capacity:           v.Capacity,
		OwnerDriverID:      v.OwnerDriverID,
		OwnerClientID:      v.OwnerClientID,
		Status:             v.Status,
	}
	m.fromAggregate(v.BaseAggregateRoot)
	return m
}

// TripModel is the persistence model for the Trip aggregate.
// Amount columns are nullable; rows imported without them read as zero.
type TripModel struct {
	AggregateModel
	ClientID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	DriverID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	VehicleID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	Date          *datatypes.Date     `gorm:"index"`
	Source        string              `gorm:"type:varchar(200)"`
	Destination   string              `gorm:"type:varchar(200)"`
	Material      string              `gorm:"type:varchar(200)"`
	Quantity      decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Rate          decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Amount        decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	AmountPaid    decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	PendingAmount decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	Status        fleet.TripStatus    `gorm:"type:varchar(20);not null;default:'Pending'"`
	InvoiceID     *uuid.UUID          `gorm:"type:uuid;index"`
	Notes         string              `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (TripModel) TableName() string {
	return "trips"
}

// ToDomain converts the persistence model to a domain Trip
func (m *TripModel) ToDomain() *fleet.Trip {
	amount := orZero(m.Amount)
	paid := orZero(m.AmountPaid)
	return &fleet.Trip{
		BaseAggregateRoot: m.toAggregate(),
		TripDetails: fleet.TripDetails{
			ClientID:    m.ClientID,
			DriverID:    m.DriverID,
			VehicleID:   m.VehicleID,
			Date:        datePtrOf(m.Date),
			Source:      m.Source,
			Destination: m.Destination,
			Material:    m.Material,
			Quantity:    m.Quantity,
			Rate:        m.Rate,
			AmountPaid:  paid,
			Notes:       m.Notes,
		},
		Amount:        amount,
		PendingAmount: amount.Sub(paid),
		Status:        m.Status,
		InvoiceID:     m.InvoiceID,
	}
}

// TripModelFromDomain creates a persistence model from a domain Trip
func TripModelFromDomain(t *fleet.Trip) *TripModel {
	m := &TripModel{
		ClientID:      t.ClientID,
		DriverID:      t.DriverID,
		VehicleID:     t.VehicleID,
		Date:          toDatePtr(t.Date),
		Source:        t.Source,
		Destination:   t.Destination,
		Material:      t.Material,
		Quantity:      t.Quantity,
		Rate:          t.Rate,
		Amount:        nullDecimal(t.Amount),
		AmountPaid:    nullDecimal(t.AmountPaid),
		PendingAmount: nullDecimal(t.PendingAmount),
		Status:        t.Status,
		InvoiceID:     t.InvoiceID,
		Notes:         t.Notes,
	}
	m.fromAggregate(t.BaseAggregateRoot)
	return m
}
