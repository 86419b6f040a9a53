package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"startup-apply/internal/query"
	"startup-apply/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios y credenciales.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

func (h *UserHandler) bind(c *gin.Context, req any, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid "+op+" request", zap.Error(err))
		fail(c, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// Register maneja POST /register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if !h.bind(c, &req, "register") {
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}
	respond(c, http.StatusCreated, "Registration successful", user)
}

// Login maneja POST /login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !h.bind(c, &req, "login") {
		return
	}

	res, err := h.userServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}
	respond(c, http.StatusOK, "Login successful", res)
}

// ForgotPassword maneja POST /forgot-password.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if !h.bind(c, &req, "forgot password") {
		return
	}

	expiresAt, err := h.userServ.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, "forgot password", err)
		return
	}
	respond(c, http.StatusOK, "Password reset code sent to your email", gin.H{"expiresAt": expiresAt})
}

// ResetPassword maneja POST /reset-password.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required"`
		Code            string `json:"code" binding:"required"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if !h.bind(c, &req, "reset password") {
		return
	}

	err := h.userServ.ResetPassword(c.Request.Context(), service.ResetPasswordInput{
		Email:           req.Email,
		Code:            req.Code,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "reset password", err)
		return
	}
	respond(c, http.StatusOK, "Password updated successfully", nil)
}

// ListUsers maneja GET /users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	q, err := query.Build(queryParams(c), service.UserSearchFields)
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}
	page, err := h.userServ.ListUsers(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}
	respondPaged(c, page)
}

// GetUser maneja GET /user/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userServ.GetUser(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get user", err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

// CreateUser maneja POST /user.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		IsAdmin  bool   `json:"isAdmin"`
		ImageURL string `json:"imageUrl"`
	}
	if !h.bind(c, &req, "create user") {
		return
	}

	user, err := h.userServ.CreateUser(c.Request.Context(), actorFrom(c), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(c, h.logger, "create user", err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", user)
}

// UpdateUser maneja PUT /user/:id.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		IsAdmin  *bool   `json:"isAdmin"`
		ImageURL *string `json:"imageUrl"`
	}
	if !h.bind(c, &req, "update user") {
		return
	}

	user, err := h.userServ.UpdateUser(c.Request.Context(), actorFrom(c), c.Param("id"), service.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(c, h.logger, "update user", err)
		return
	}
	respond(c, http.StatusOK, "User updated successfully", user)
}

// DeleteUser maneja DELETE /user/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, err := h.userServ.DeleteUser(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "delete user", err)
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", user)
}

// UpdateProfile maneja POST /profileUpdate.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name     *string `json:"name"`
		ImageURL *string `json:"imageUrl"`
	}
	if !h.bind(c, &req, "update profile") {
		return
	}

	user, err := h.userServ.UpdateProfile(c.Request.Context(), actorFrom(c), service.ProfilePatch{
		Name:     req.Name,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondError(c, h.logger, "update profile", err)
		return
	}
	respond(c, http.StatusOK, "Profile updated successfully", user)
}

// UpdatePassword maneja POST /user/updatePassword.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if !h.bind(c, &req, "update password") {
		return
	}

	err := h.userServ.UpdatePassword(c.Request.Context(), actorFrom(c), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(c, h.logger, "update password", err)
		return
	}
	respond(c, http.StatusOK, "Password updated successfully", nil)
}

// UpdateProfilePic maneja POST /user/updateProfilePic.
func (h *UserHandler) UpdateProfilePic(c *gin.Context) {
	var req struct {
		ImageURL string `json:"imageUrl" binding:"required"`
	}
	if !h.bind(c, &req, "update profile pic") {
		return
	}

	user, err := h.userServ.UpdateProfilePic(c.Request.Context(), actorFrom(c), req.ImageURL)
	if err != nil {
		respondError(c, h.logger, "update profile pic", err)
		return
	}
	respond(c, http.StatusOK, "Profile picture updated successfully", user)
}
