package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/services"
)

type AuthHandler struct {
	users  services.UserService
	resets services.PasswordResetService
}

func NewAuthHandler(users services.UserService, resets services.PasswordResetService) *AuthHandler {
	return &AuthHandler{users: users, resets: resets}
}

// @Summary      Registro
// @Description  Crea una cuenta de estudiante o asistente
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      services.RegisterInput  true  "Datos de registro"
// @Success      201   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][register]", err)
		return
	}
	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, "[auth][register]", err)
		return
	}
	logging.Info("[auth][register][ok]", "user_id", user.ID, "role_id", user.RoleID)
	c.JSON(http.StatusCreated, user)
}

// @Summary      Inicio de sesión
// @Description  Devuelve un token de acceso y un token de refresco
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credenciales"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][login]", err)
		return
	}
	user, tokens, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		logging.Info("[auth][login][fail]", "email", logging.Clean(req.Email))
		respondError(c, "[auth][login]", err)
		return
	}
	logging.Info("[auth][login][ok]", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"access_token":      tokens.AccessToken,
		"access_expires_at": tokens.AccessExpiresAt,
		"refresh_token":     tokens.RefreshToken,
	})
}

// POST /refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][refresh]", err)
		return
	}
	tokens, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, "[auth][refresh]", err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	if err := h.users.Logout(c.Request.Context(), sess.UserID); err != nil {
		respondError(c, "[auth][logout]", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /password/forgot
// Always answers 202 so the response does not reveal whether the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][forgot]", err)
		return
	}
	if err := h.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		logging.Error("[auth][forgot][err]", "error", err)
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "if the account exists, an email was sent"})
}

// POST /password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[auth][reset]", err)
		return
	}
	if err := h.resets.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, "[auth][reset]", err)
		return
	}
	c.Status(http.StatusNoContent)
}
