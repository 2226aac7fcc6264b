package fleet

import (
	"net/mail"
	"strings"

	"github.com/transportops/backoffice/internal/domain/shared"
)

// ClientStatus represents the status of a client
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "Active"
	ClientStatusInactive ClientStatus = "Inactive"
)

// IsValid checks if the status is known
func (s ClientStatus) IsValid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive
}

// ClientDetails groups the editable contact and tax fields of a client
type ClientDetails struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	City          string
	State         string
	GSTNumber     string
	PANNumber     string
}

// Client is a customer of the transport company.
// It owns trips, invoices and optionally vehicles.
type Client struct {
	shared.BaseAggregateRoot
	ClientDetails
	Status ClientStatus
}

// NewClient creates an active client
func NewClient(details ClientDetails) (*Client, error) {
	details, err := normalizeClientDetails(details)
	if err != nil {
		return nil, err
	}

	return &Client{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientDetails:     details,
		Status:            ClientStatusActive,
	}, nil
}

// Update replaces the client's contact and tax fields
func (c *Client) Update(details ClientDetails) error {
	details, err := normalizeClientDetails(details)
	if err != nil {
		return err
	}
	c.ClientDetails = details
	c.MarkModified()
	return nil
}

// Activate marks the client as active
func (c *Client) Activate() {
	c.setStatus(ClientStatusActive)
}

// Deactivate marks the client as inactive; inactive clients cannot receive new trips
func (c *Client) Deactivate() {
	c.setStatus(ClientStatusInactive)
}

// IsActive reports whether new trips may be booked for the client
func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

func (c *Client) setStatus(status ClientStatus) {
	if c.Status == status {
		return
	}
	c.Status = status
	c.MarkModified()
}

func normalizeClientDetails(d ClientDetails) (ClientDetails, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, shared.NewValidationError("client name is required")
	}
	if len(d.Name) > 200 {
		return d, shared.NewValidationError("client name cannot exceed 200 characters")
	}
	d.Email = strings.TrimSpace(d.Email)
	if d.Email != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			return d, shared.NewValidationError("invalid client email")
		}
	}
	d.GSTNumber = strings.ToUpper(strings.TrimSpace(d.GSTNumber))
	d.PANNumber = strings.ToUpper(strings.TrimSpace(d.PANNumber))
	return d, nil
}
