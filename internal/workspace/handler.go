package workspace

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wardenhq/warden/internal/platform/httpx"
	"github.com/wardenhq/warden/internal/rbac"
	"github.com/wardenhq/warden/internal/shared"
)

var validate = validator.New()

// Handler wires the workspace HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the workspace routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require("workspace", rbac.ActionList)).Get("/", h.list)
	r.With(h.guard.Require("workspace", rbac.ActionRead)).Get("/{id}", h.get)
	r.With(h.guard.Require("workspace", rbac.ActionCreate)).Post("/", h.create)
	r.With(h.guard.Require("workspace", rbac.ActionUpdate)).Put("/{id}", h.update)
	r.With(h.guard.Require("workspace", rbac.ActionDelete)).Delete("/{id}", h.delete)
	r.With(h.guard.Require("workspace", rbac.ActionRead)).Get("/{id}/members", h.listMembers)
}

type workspaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	OwnerGUID   string    `json:"owner_guid"`
	CreatedAt   time.Time `json:"created_at"`
}

func toWorkspaceResponse(ws Workspace) workspaceResponse {
	return workspaceResponse{
		ID:          ws.ID,
		Name:        ws.Name,
		Code:        ws.Code,
		Description: ws.Description,
		Status:      string(ws.Status),
		OwnerGUID:   ws.OwnerGUID,
		CreatedAt:   ws.CreatedAt,
	}
}

type createRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	owner := ""
	if principal := shared.PrincipalFromContext(r.Context()); principal != nil {
		owner = principal.GUID
	}
	ws, err := h.service.Create(r.Context(), CreateInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerGUID:   owner,
	})
	if err != nil {
		h.respondError(w, "create workspace", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toWorkspaceResponse(ws))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ws, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get workspace", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toWorkspaceResponse(ws))
}

type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Status      *string `json:"status" validate:"omitempty,oneof=active archived"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := UpdateInput{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	ws, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, "update workspace", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toWorkspaceResponse(ws))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete workspace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listResponse struct {
	Items    []workspaceResponse `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	filter := Filter{
		Status: Status(r.URL.Query().Get("status")),
		Page:   page,
		Size:   size,
	}
	workspaces, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list workspaces", err)
		return
	}
	items := make([]workspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		items = append(items, toWorkspaceResponse(ws))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: pagination.Total, Page: pagination.Page, PageSize: pagination.PerPage})
}

type memberResponse struct {
	UserGUID string `json:"user_guid"`
	Username string `json:"username"`
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
	Active   bool   `json:"active"`
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "list workspace members", err)
		return
	}
	items := make([]memberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, memberResponse{
			UserGUID: m.UserGUID,
			Username: m.Username,
			RoleID:   m.RoleID,
			RoleName: m.RoleName,
			Active:   m.Active,
		})
	}
	httpx.JSON(w, http.StatusOK, items)
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
