package fleet

import (
	"context"

	"github.com/google/uuid"
	"github.com/transportops/backoffice/internal/domain/fleet"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrClientHasDependents is returned when deleting a client that trips,
// invoices or vehicles still reference
var ErrClientHasDependents = shared.NewInvalidStateError("client has dependent records")

// ClientService handles client master data
type ClientService struct {
	clients fleet.ClientRepository
	logger  *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clients fleet.ClientRepository, logger *zap.Logger) *ClientService {
	return &ClientService{clients: clients, logger: logger}
}

// Create creates a new active client
func (s *ClientService) Create(ctx context.Context, req ClientRequest) (*ClientResponse, error) {
	client, err := fleet.NewClient(req.details())
	if err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created", zap.String("client_id", client.ID.String()), zap.String("name", client.Name))
	resp := ToClientResponse(client)
	return &resp, nil
}

// GetByID retrieves a client by ID
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// List retrieves a page of clients
func (s *ClientService) List(ctx context.Context, filter ClientListFilter) ([]ClientResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
		if filter.OrderDir == "" {
			filter.OrderDir = "asc"
		}
	}
	f := fleet.ClientFilter{
		Filter: shared.NewFilter(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir, filter.Search),
		Status: fleet.ClientStatus(filter.Status),
	}

	clients, err := s.clients.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.clients.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ClientResponse, len(clients))
	for i := range clients {
		out[i] = ToClientResponse(&clients[i])
	}
	return out, total, nil
}

// Update replaces a client's details
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req ClientRequest) (*ClientResponse, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := client.Update(req.details()); err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// Activate allows new trips to be booked for the client
func (s *ClientService) Activate(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate blocks new trips for the client
func (s *ClientService) Deactivate(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *ClientService) setActive(ctx context.Context, id uuid.UUID, active bool) (*ClientResponse, error) {
	client, err := s.clients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		client.Activate()
	} else {
		client.Deactivate()
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}
	resp := ToClientResponse(client)
	return &resp, nil
}

// Delete removes a client that nothing references
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.clients.FindByID(ctx, id); err != nil {
		return err
	}
	has, err := s.clients.HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrClientHasDependents
	}
	if err := s.clients.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("client deleted", zap.String("client_id", id.String()))
	return nil
}
