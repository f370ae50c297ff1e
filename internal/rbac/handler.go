package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wardenhq/warden/internal/platform/httpx"
	"github.com/wardenhq/warden/internal/shared"
)

var validate = validator.New()

// Handler exposes the administrative HTTP surface of the engine.
type Handler struct {
	logger   *slog.Logger
	manager  *Manager
	resolver *Resolver
	guard    Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, manager *Manager, resolver *Resolver, guard Middleware) *Handler {
	return &Handler{logger: logger, manager: manager, resolver: resolver, guard: guard}
}

// MountRoutes registers the admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.With(h.guard.Require("role", ActionList)).Get("/", h.listRoles)
		r.With(h.guard.Require("role", ActionRead)).Get("/{id}", h.getRole)
		r.With(h.guard.Require("role", ActionCreate)).Post("/", h.createRole)
		r.With(h.guard.Require("role", ActionUpdate)).Put("/{id}", h.updateRole)
		r.With(h.guard.Require("role", ActionDelete)).Delete("/{id}", h.deleteRole)
		r.With(h.guard.Require("role", ActionUpdate)).Put("/{id}/permissions", h.assignRolePermissions)
		r.With(h.guard.Require("role", ActionUpdate)).Put("/{id}/permission-groups", h.assignRolePermissionGroups)
	})
	r.Route("/permissions", func(r chi.Router) {
		r.With(h.guard.Require("permission", ActionList)).Get("/", h.listPermissions)
		r.With(h.guard.Require("permission", ActionCreate)).Post("/", h.createPermission)
		r.With(h.guard.Require("permission", ActionUpdate)).Put("/{id}", h.updatePermission)
		r.With(h.guard.Require("permission", ActionDelete)).Post("/delete", h.deletePermissions)
	})
	r.Route("/permission-groups", func(r chi.Router) {
		r.With(h.guard.Require("permission", ActionList)).Get("/", h.listGroups)
		r.With(h.guard.Require("permission", ActionCreate)).Post("/", h.createGroup)
		r.With(h.guard.Require("permission", ActionUpdate)).Put("/{code}", h.updateGroup)
		r.With(h.guard.Require("permission", ActionDelete)).Delete("/{code}", h.deleteGroup)
		r.With(h.guard.Require("permission", ActionUpdate)).Put("/{code}/permissions", h.assignGroupPermissions)
	})
	r.Route("/users", func(r chi.Router) {
		r.With(h.guard.Require("user", ActionUpdate)).Put("/{guid}/roles", h.assignUserRoles)
		r.With(h.guard.Require("user", ActionUpdate)).Put("/{guid}/workspaces/{workspaceID}/role", h.assignWorkspaceRole)
	})
	// Introspection for the authenticated principal; no guard beyond identity.
	r.Get("/check", h.check)
}

// --- roles ---

type roleCreateRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
	Kind        string `json:"kind" validate:"omitempty,oneof=system custom temporary workspace"`
}

type roleUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
	Kind        *string `json:"kind" validate:"omitempty,oneof=system custom temporary workspace"`
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Kind        string `json:"kind"`
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Status:      string(role.Status),
		Kind:        string(role.Kind),
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	filter := RoleFilter{
		Status: RoleStatus(r.URL.Query().Get("status")),
		Kind:   RoleKind(r.URL.Query().Get("kind")),
		Page:   queryInt(r, "page"),
		Size:   queryInt(r, "page_size"),
	}
	roles, page, err := h.manager.ListRoles(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list roles", err)
		return
	}
	items := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		items = append(items, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PerPage})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.manager.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleCreateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.manager.CreateRole(r.Context(), RoleInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      RoleStatus(req.Status),
		Kind:        RoleKind(req.Kind),
	})
	if err != nil {
		h.respondError(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req roleUpdateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	update := RoleUpdate{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := RoleStatus(*req.Status)
		update.Status = &status
	}
	if req.Kind != nil {
		kind := RoleKind(*req.Kind)
		update.Kind = &kind
	}
	role, err := h.manager.UpdateRole(r.Context(), id, update)
	if err != nil {
		h.respondError(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.manager.DeleteRole(r.Context(), id); err != nil {
		h.respondError(w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idListRequest struct {
	IDs []int64 `json:"ids" validate:"required"`
}

func (h *Handler) assignRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req idListRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.manager.AssignRolePermissions(r.Context(), id, req.IDs); err != nil {
		h.respondError(w, "assign role permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type codeListRequest struct {
	Codes []string `json:"codes" validate:"required"`
}

func (h *Handler) assignRolePermissionGroups(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req codeListRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.manager.AssignRolePermissionGroups(r.Context(), id, req.Codes); err != nil {
		h.respondError(w, "assign role permission groups", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- permissions ---

type permissionCreateRequest struct {
	Resource    string `json:"resource" validate:"required,max=255"`
	Action      string `json:"action" validate:"required,max=20"`
	Name        string `json:"name" validate:"max=100"`
	Description string `json:"description" validate:"max=500"`
	Level       int    `json:"level" validate:"gte=0"`
	Status      string `json:"status" validate:"omitempty,oneof=active disabled"`
}

type permissionUpdateRequest struct {
	Resource    *string `json:"resource" validate:"omitempty,max=255"`
	Action      *string `json:"action" validate:"omitempty,max=20"`
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Level       *int    `json:"level" validate:"omitempty,gte=0"`
	Status      *string `json:"status" validate:"omitempty,oneof=active disabled"`
}

type permissionResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Level    int    `json:"level"`
	Status   string `json:"status"`
}

func toPermissionResponse(perm Permission) permissionResponse {
	return permissionResponse{
		ID:       perm.ID,
		Code:     perm.Code,
		Name:     perm.Name,
		Resource: string(perm.Resource),
		Action:   string(perm.Action),
		Level:    perm.Level,
		Status:   string(perm.Status),
	}
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	filter := PermissionFilter{
		Status: PermissionStatus(r.URL.Query().Get("status")),
		Action: Action(r.URL.Query().Get("action")),
		Level:  queryInt(r, "level"),
		Page:   queryInt(r, "page"),
		Size:   queryInt(r, "page_size"),
	}
	perms, page, err := h.manager.ListPermissions(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list permissions", err)
		return
	}
	items := make([]permissionResponse, 0, len(perms))
	for _, perm := range perms {
		items = append(items, toPermissionResponse(perm))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PerPage})
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionCreateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	resource, err := ParseResource(req.Resource)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	action, err := ParseAction(req.Action)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perm, err := h.manager.CreatePermission(r.Context(), PermissionInput{
		Resource:    resource,
		Action:      action,
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		Status:      PermissionStatus(req.Status),
	})
	if err != nil {
		h.respondError(w, "create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPermissionResponse(perm))
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req permissionUpdateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	update := PermissionUpdate{Name: req.Name, Description: req.Description, Level: req.Level}
	if req.Resource != nil {
		resource, err := ParseResource(*req.Resource)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		update.Resource = &resource
	}
	if req.Action != nil {
		action, err := ParseAction(*req.Action)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		update.Action = &action
	}
	if req.Status != nil {
		status := PermissionStatus(*req.Status)
		update.Status = &status
	}
	perm, err := h.manager.UpdatePermission(r.Context(), id, update)
	if err != nil {
		h.respondError(w, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponse(perm))
}

func (h *Handler) deletePermissions(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.manager.DeletePermissions(r.Context(), req.IDs); err != nil {
		h.respondError(w, "delete permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- permission groups ---

type groupCreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Status      string `json:"status" validate:"omitempty,oneof=active disabled"`
}

type groupUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Status      *string `json:"status" validate:"omitempty,oneof=active disabled"`
}

type groupResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	filter := GroupFilter{
		Status: PermissionStatus(r.URL.Query().Get("status")),
		Page:   queryInt(r, "page"),
		Size:   queryInt(r, "page_size"),
	}
	groups, page, err := h.manager.ListGroups(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list permission groups", err)
		return
	}
	items := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		items = append(items, groupResponse{Code: group.Code, Name: group.Name, Status: string(group.Status)})
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: page.Total, Page: page.Page, PageSize: page.PerPage})
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req groupCreateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	group, err := h.manager.CreateGroup(r.Context(), GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      PermissionStatus(req.Status),
	})
	if err != nil {
		h.respondError(w, "create permission group", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, groupResponse{Code: group.Code, Name: group.Name, Status: string(group.Status)})
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req groupUpdateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	update := GroupUpdate{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := PermissionStatus(*req.Status)
		update.Status = &status
	}
	group, err := h.manager.UpdateGroup(r.Context(), code, update)
	if err != nil {
		h.respondError(w, "update permission group", err)
		return
	}
	httpx.JSON(w, http.StatusOK, groupResponse{Code: group.Code, Name: group.Name, Status: string(group.Status)})
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.manager.DeleteGroup(r.Context(), code); err != nil {
		h.respondError(w, "delete permission group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignGroupPermissions(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req idListRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.manager.AssignGroupPermissions(r.Context(), code, req.IDs); err != nil {
		h.respondError(w, "assign group permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- user assignment ---

func (h *Handler) assignUserRoles(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	var req idListRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.manager.AssignUserRoles(r.Context(), guid, req.IDs); err != nil {
		h.respondError(w, "assign user roles", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type workspaceRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
	Active *bool `json:"active"`
}

func (h *Handler) assignWorkspaceRole(w http.ResponseWriter, r *http.Request) {
	var req workspaceRoleRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	err := h.manager.AssignWorkspaceRole(r.Context(), WorkspaceGrant{
		UserGUID:    chi.URLParam(r, "guid"),
		WorkspaceID: chi.URLParam(r, "workspaceID"),
		RoleID:      req.RoleID,
		Active:      active,
	})
	if err != nil {
		h.respondError(w, "assign workspace role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- introspection ---

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	resource, err := ParseResource(r.URL.Query().Get("resource"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	action, err := ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	allowed, err := h.resolver.Resolve(r.Context(), *principal, resource, action, shared.WorkspaceFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "resolve", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

// --- helpers ---

type listResponse struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return shared.ErrValidation
	}
	return validate.Struct(target)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func queryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}
