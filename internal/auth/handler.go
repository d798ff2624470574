// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/middleware"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

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
	loginLimiter func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", h.Login)
		r.With(loginLimiter).Post("/register", h.Register)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Login(r.Context(), req, requestMeta(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Register(r.Context(), req, requestMeta(r))
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, core.DuplicateError("email"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, resp)
}

// Refresh accepts the token in the JSON body or, for older clients, as the
// refresh_token query parameter.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if token := r.URL.Query().Get("refresh_token"); token != "" {
		req.RefreshToken = token
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.InvalidCredentialsError())
		return
	}

	core.OK(w, ToUserResponse(p))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.InvalidCredentialsError())
		return
	}

	if err := h.service.Logout(r.Context(), p, requestMeta(r)); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.InvalidCredentialsError())
		return
	}

	if err := h.service.LogoutAll(r.Context(), p, requestMeta(r)); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		core.JSONError(w, core.InvalidCredentialsError())
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.ChangePassword(
		r.Context(),
		p,
		req.CurrentPassword,
		req.NewPassword,
		requestMeta(r),
	)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(
				w,
				core.UnauthorizedError("current password is incorrect"),
			)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

// ForceLogout and ResetPassword are mounted by the admin router.
func (h *Handler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())
	targetID := chi.URLParam(r, "userID")

	version, err := h.service.ForceLogout(r.Context(), actor, targetID, requestMeta(r))
	if err != nil {
		writeAdminError(w, err)
		return
	}

	core.OK(w, ForceLogoutResponse{UserID: targetID, TokenVersion: version})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetPrincipal(r.Context())
	targetID := chi.URLParam(r, "userID")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.ResetPassword(
		r.Context(),
		actor,
		targetID,
		req.NewPassword,
		requestMeta(r),
	)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	core.NoContent(w)
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidCredentials) {
		core.JSONError(w, core.InvalidCredentialsError())
		return
	}

	if _, ok := session.ReasonOf(err); ok {
		core.JSONError(w, middleware.AuthError(err))
		return
	}

	core.InternalServerError(w, err)
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "only a super admin can manage admin accounts")
	default:
		core.InternalServerError(w, err)
	}
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
