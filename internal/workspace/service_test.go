package workspace

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/shared"
)

type memoryWorkspaceStore struct {
	workspaces map[string]Workspace
	members    map[string][]Member
}

func newMemoryWorkspaceStore() *memoryWorkspaceStore {
	return &memoryWorkspaceStore{
		workspaces: make(map[string]Workspace),
		members:    make(map[string][]Member),
	}
}

func (s *memoryWorkspaceStore) Get(ctx context.Context, id string) (Workspace, error) {
	ws, ok := s.workspaces[id]
	if !ok {
		return Workspace{}, fmt.Errorf("%w: workspace %s", shared.ErrNotFound, id)
	}
	return ws, nil
}

func (s *memoryWorkspaceStore) FindByName(ctx context.Context, name string) (*Workspace, error) {
	for _, ws := range s.workspaces {
		if ws.Name == name {
			w := ws
			return &w, nil
		}
	}
	return nil, nil
}

func (s *memoryWorkspaceStore) Create(ctx context.Context, ws Workspace) error {
	s.workspaces[ws.ID] = ws
	return nil
}

func (s *memoryWorkspaceStore) Update(ctx context.Context, ws Workspace) error {
	if _, ok := s.workspaces[ws.ID]; !ok {
		return fmt.Errorf("%w: workspace %s", shared.ErrNotFound, ws.ID)
	}
	s.workspaces[ws.ID] = ws
	return nil
}

func (s *memoryWorkspaceStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.workspaces[id]; !ok {
		return fmt.Errorf("%w: workspace %s", shared.ErrNotFound, id)
	}
	delete(s.workspaces, id)
	return nil
}

func (s *memoryWorkspaceStore) List(ctx context.Context, filter Filter) ([]Workspace, int, error) {
	var out []Workspace
	for _, ws := range s.workspaces {
		if filter.Status != "" && ws.Status != filter.Status {
			continue
		}
		out = append(out, ws)
	}
	return out, len(out), nil
}

func (s *memoryWorkspaceStore) CountMembers(ctx context.Context, id string) (int, error) {
	return len(s.members[id]), nil
}

func (s *memoryWorkspaceStore) ListMembers(ctx context.Context, id string) ([]Member, error) {
	return append([]Member(nil), s.members[id]...), nil
}

func TestCreateWorkspace(t *testing.T) {
	store := newMemoryWorkspaceStore()
	svc := NewService(store)

	ws, err := svc.Create(context.Background(), CreateInput{Name: "  Finance  ", OwnerGUID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "Finance", ws.Name)
	require.NotEmpty(t, ws.ID)
	require.NotEmpty(t, ws.Code)
	require.NotEqual(t, ws.ID, ws.Code)
	require.Equal(t, StatusActive, ws.Status)
	require.Equal(t, "u1", ws.OwnerGUID)
}

func TestCreateWorkspaceNameConflict(t *testing.T) {
	store := newMemoryWorkspaceStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Finance"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Finance"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateWorkspacePartial(t *testing.T) {
	store := newMemoryWorkspaceStore()
	svc := NewService(store)
	ctx := context.Background()

	ws, err := svc.Create(ctx, CreateInput{Name: "Finance", Description: "money things"})
	require.NoError(t, err)

	status := StatusArchived
	updated, err := svc.Update(ctx, ws.ID, UpdateInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, StatusArchived, updated.Status)
	require.Equal(t, "Finance", updated.Name)
	require.Equal(t, "money things", updated.Description)
}

func TestUpdateWorkspaceNameConflict(t *testing.T) {
	store := newMemoryWorkspaceStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Finance"})
	require.NoError(t, err)
	ops, err := svc.Create(ctx, CreateInput{Name: "Operations"})
	require.NoError(t, err)

	name := "Finance"
	_, err = svc.Update(ctx, ops.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteWorkspaceRefusedWithMembers(t *testing.T) {
	store := newMemoryWorkspaceStore()
	svc := NewService(store)
	ctx := context.Background()

	ws, err := svc.Create(ctx, CreateInput{Name: "Finance"})
	require.NoError(t, err)
	store.members[ws.ID] = []Member{{UserGUID: "u1", RoleID: 1, Active: false}}

	// Even an inactive grant blocks deletion.
	err = svc.Delete(ctx, ws.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	store.members[ws.ID] = nil
	require.NoError(t, svc.Delete(ctx, ws.ID))
	_, err = svc.Get(ctx, ws.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteWorkspaceUnknown(t *testing.T) {
	svc := NewService(newMemoryWorkspaceStore())
	err := svc.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListMembersUnknownWorkspace(t *testing.T) {
	svc := NewService(newMemoryWorkspaceStore())
	_, err := svc.ListMembers(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
