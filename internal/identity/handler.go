package identity

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

// Handler wires HTTP endpoints for authentication and account administration.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountAuthRoutes registers the unauthenticated login endpoint.
func (h *Handler) MountAuthRoutes(r chi.Router) {
	r.Post("/login", h.login)
}

// MountSessionRoutes registers endpoints that require a session but no
// particular permission.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	r.Post("/password", h.changePassword)
}

// MountUserRoutes registers the account administration endpoints.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.With(h.guard.Require("user", rbac.ActionList)).Get("/", h.listUsers)
	r.With(h.guard.Require("user", rbac.ActionRead)).Get("/{guid}", h.getUser)
	r.With(h.guard.Require("user", rbac.ActionCreate)).Post("/", h.createUser)
	r.With(h.guard.Require("user", rbac.ActionUpdate)).Put("/{guid}/status", h.changeStatus)
	r.With(h.guard.Require("user", rbac.ActionDelete)).Post("/delete", h.deleteUsers)
}

type accountResponse struct {
	GUID        string     `json:"guid"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	Superuser   bool       `json:"superuser"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toAccountResponse(account Account) accountResponse {
	return accountResponse{
		GUID:        account.GUID,
		Username:    account.Username,
		Email:       account.Email,
		Status:      string(account.Status),
		Superuser:   account.Superuser,
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
	}
}

// --- auth ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	token, account, err := h.service.Login(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		h.respondError(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, Account: toAccountResponse(account)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), bearerToken(r)); err != nil {
		h.respondError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	account, err := h.service.GetUser(r.Context(), principal.GUID)
	if err != nil {
		h.respondError(w, "load account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

type changePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required,min=8"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req changePasswordRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), principal.GUID, req.Current, req.Next); err != nil {
		h.respondError(w, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- account administration ---

type createUserRequest struct {
	Username  string `json:"username" validate:"required,max=50"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Superuser bool   `json:"superuser"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateUser(r.Context(), CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Superuser: req.Superuser,
	})
	if err != nil {
		h.respondError(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetUser(r.Context(), chi.URLParam(r, "guid"))
	if err != nil {
		h.respondError(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive locked disabled deleted"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err := h.service.ChangeStatus(r.Context(), chi.URLParam(r, "guid"), shared.PrincipalStatus(req.Status))
	if err != nil {
		h.respondError(w, "change status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteUsersRequest struct {
	GUIDs []string `json:"guids" validate:"required,min=1"`
}

func (h *Handler) deleteUsers(w http.ResponseWriter, r *http.Request) {
	var req deleteUsersRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteUsers(r.Context(), req.GUIDs); err != nil {
		h.respondError(w, "delete users", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listUsersResponse struct {
	Items    []accountResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	filter := AccountFilter{
		Status: shared.PrincipalStatus(r.URL.Query().Get("status")),
		Page:   page,
		Size:   size,
	}
	accounts, pagination, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	items := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, toAccountResponse(account))
	}
	httpx.JSON(w, http.StatusOK, listUsersResponse{Items: items, Total: pagination.Total, Page: pagination.Page, PageSize: pagination.PerPage})
}

// --- helpers ---

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
