// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/finance-auth/internal/auth"
	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/middleware"
)

// SessionActions are the token-revoking admin endpoints served by the auth
// handler and mounted under the admin user routes.
type SessionActions interface {
	ForceLogout(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireApproved)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Delete("/me", h.DeleteMe)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	sessions SessionActions,
) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAdmin)

		r.Get("/", h.ListUsers)

		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Put("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)
			r.Put("/role", h.UpdateUserRole)
			r.Post("/approve", h.ApproveUser)
			r.Post("/reject", h.RejectUser)
			r.Post("/lock", h.LockUser)
			r.Post("/unlock", h.UnlockUser)
			r.Post("/deactivate", h.DeactivateUser)
			r.Post("/activate", h.ActivateUser)
			r.Post("/logout-everywhere", sessions.ForceLogout)
			r.Post("/reset-password", sessions.ResetPassword)
		})
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, user)
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateMe(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, user)
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())

	if err := h.service.DeleteMe(r.Context(), p, requestMeta(r)); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))          //nolint:errcheck // defaults to 0 on error
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults to 0 on error

	params := ListUsersParams{
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
		Role:     q.Get("role"),
		Status:   q.Get("status"),
	}
	params.Normalize()

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, users, params.Page, params.PageSize, total)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		req,
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, user)
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	var req UpdateUserRoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUserRole(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		req.Role,
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	err := h.service.Delete(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	err := h.service.Approve(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) RejectUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())
	targetID := chi.URLParam(r, "userID")

	version, err := h.service.Reject(r.Context(), actor, targetID, requestMeta(r))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, auth.ForceLogoutResponse{UserID: targetID, TokenVersion: version})
}

func (h *Handler) LockUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	err := h.service.Lock(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	err := h.service.Unlock(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	err := h.service.Deactivate(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())

	err := h.service.Activate(
		r.Context(),
		actor,
		chi.URLParam(r, "userID"),
		requestMeta(r),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, ErrSelfAction):
		core.Forbidden(w, "cannot perform this action on your own account")
	case errors.Is(err, ErrSuperAdminProtected):
		core.Forbidden(w, "super admin accounts cannot be deleted")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "only a super admin can manage admin accounts")
	case errors.Is(err, ErrInvalidTransition):
		core.Conflict(w, "user status does not allow this transition")
	case errors.Is(err, core.ErrConflict):
		core.Conflict(w, "user status changed concurrently")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid role")
	default:
		core.InternalServerError(w, err)
	}
}

func requestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
