package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/internal/shared"
)

// Service wraps workspace business rules.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput carries fields for workspace creation.
type CreateInput struct {
	Name        string
	Description string
	OwnerGUID   string
}

// UpdateInput carries partial fields for workspace updates; nil means
// unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Status      *Status
}

// Create registers a new workspace with generated id and code.
func (s *Service) Create(ctx context.Context, input CreateInput) (Workspace, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Workspace{}, fmt.Errorf("%w: workspace name required", shared.ErrValidation)
	}
	existing, err := s.store.FindByName(ctx, name)
	if err != nil {
		return Workspace{}, err
	}
	if existing != nil {
		return Workspace{}, fmt.Errorf("%w: workspace %q", shared.ErrConflict, name)
	}

	ws := Workspace{
		ID:          uuid.NewString(),
		Name:        name,
		Code:        uuid.NewString(),
		Description: strings.TrimSpace(input.Description),
		Status:      StatusActive,
		OwnerGUID:   input.OwnerGUID,
	}
	if err := s.store.Create(ctx, ws); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// Get fetches a workspace by id.
func (s *Service) Get(ctx context.Context, id string) (Workspace, error) {
	return s.store.Get(ctx, id)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Workspace, error) {
	ws, err := s.store.Get(ctx, id)
	if err != nil {
		return Workspace{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Workspace{}, fmt.Errorf("%w: workspace name required", shared.ErrValidation)
		}
		if name != ws.Name {
			existing, err := s.store.FindByName(ctx, name)
			if err != nil {
				return Workspace{}, err
			}
			if existing != nil && existing.ID != id {
				return Workspace{}, fmt.Errorf("%w: workspace %q", shared.ErrConflict, name)
			}
		}
		ws.Name = name
	}
	if input.Description != nil {
		ws.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return Workspace{}, fmt.Errorf("%w: invalid workspace status %q", shared.ErrValidation, *input.Status)
		}
		ws.Status = *input.Status
	}
	if err := s.store.Update(ctx, ws); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// Delete removes an empty workspace. Deletion is refused while any member
// grant remains, active or not, so role grants never dangle.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.store.CountMembers(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: workspace has %d members", shared.ErrConflict, count)
	}
	return s.store.Delete(ctx, id)
}

// List returns workspaces matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Workspace, shared.Pagination, error) {
	workspaces, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return workspaces, shared.NewPagination(filter.Page, filter.Size, total), nil
}

// ListMembers returns the workspace's member grants.
func (s *Service) ListMembers(ctx context.Context, id string) ([]Member, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, id)
}
