package handler

import (
	"net/http"
	"time"

	"ims_backend/internal/auth/repository"
	"ims_backend/internal/auth/service"
	"ims_backend/internal/auth/transport"
	"ims_backend/platform/config"
	"ims_backend/platform/httpkit"
	"ims_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	cfg config.CookieConfig
	val *validator.Validator
}

func New(svc *service.Service, cfg config.CookieConfig, val *validator.Validator) *Handler {
	return &Handler{svc: svc, cfg: cfg, val: val}
}

// RegisterRoutes mounts the public session routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sign-in", h.SignIn)
	rg.POST("/refresh", h.Refresh)
	rg.POST("/sign-out", h.SignOut)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	session, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	httpkit.OK(c, transport.AuthResponse{AccessToken: session.AccessToken, User: toUserResponse(session.User)})
}

func (h *Handler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.cfg.GetRefreshCookieName())

	session, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.clearRefreshCookie(c)
		httpkit.HandleError(c, err)
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	httpkit.OK(c, transport.AuthResponse{AccessToken: session.AccessToken, User: toUserResponse(session.User)})
}

func (h *Handler) SignOut(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.cfg.GetRefreshCookieName())
	if httpkit.HandleError(c, h.svc.SignOut(c.Request.Context(), refreshToken)) {
		return
	}

	h.clearRefreshCookie(c)
	httpkit.OK(c, gin.H{"message": "signed out"})
}

func (h *Handler) GetMe(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.svc.CurrentUser(c.Request.Context(), identity.UserID(), identity.Email())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toUserResponse(user))
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req transport.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), identity.UserID(), req.Name, req.Signature)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toUserResponse(user))
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req transport.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if httpkit.HandleError(c, h.svc.ChangePassword(c.Request.Context(), identity.UserID(), req.CurrentPassword, req.NewPassword)) {
		return
	}

	h.clearRefreshCookie(c)
	httpkit.OK(c, gin.H{"message": "password updated"})
}

// ListUsers serves the salesperson typeahead.
func (h *Handler) ListUsers(c *gin.Context) {
	var req transport.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	users, err := h.svc.ListUsers(c.Request.Context(), req.Search, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	options := make([]transport.UserOption, 0, len(users))
	for _, u := range users {
		label := u.Name
		if label == "" {
			label = u.Email
		}
		options = append(options, transport.UserOption{Value: u.ID, Label: label, Email: u.Email})
	}
	httpkit.OK(c, options)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req transport.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req.Email, req.Password, req.Name, req.Roles)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, toUserResponse(user))
}

func (h *Handler) SetUserRoles(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SetUserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.SetUserRoles(c.Request.Context(), id, req.Roles)) {
		return
	}

	httpkit.OK(c, gin.H{"message": "roles updated"})
}

func (h *Handler) setRefreshCookie(c *gin.Context, value string) {
	maxAge := int(h.cfg.GetRefreshTokenTTL() / time.Second)
	c.SetSameSite(h.cfg.GetRefreshCookieSameSite())
	c.SetCookie(
		h.cfg.GetRefreshCookieName(),
		value,
		maxAge,
		h.cfg.GetRefreshCookiePath(),
		h.cfg.GetRefreshCookieDomain(),
		h.cfg.GetRefreshCookieSecure(),
		true,
	)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(h.cfg.GetRefreshCookieSameSite())
	c.SetCookie(
		h.cfg.GetRefreshCookieName(),
		"",
		-1,
		h.cfg.GetRefreshCookiePath(),
		h.cfg.GetRefreshCookieDomain(),
		h.cfg.GetRefreshCookieSecure(),
		true,
	)
}

func toUserResponse(u repository.User) transport.UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Signature: u.Signature,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}
