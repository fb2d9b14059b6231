package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intihelp/internal/logging"
	"intihelp/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GET /me
func (h *UserHandler) Me(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	user, err := h.service.GetProfile(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, "[user][me]", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PUT /me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[user][update]", err)
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), sess.UserID, req)
	if err != nil {
		respondError(c, "[user][update]", err)
		return
	}
	logging.Info("[user][update][ok]", "user_id", sess.UserID)
	c.JSON(http.StatusOK, user)
}

// POST /me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[user][password]", err)
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, "[user][password]", err)
		return
	}
	logging.Info("[user][password][ok]", "user_id", sess.UserID)
	c.Status(http.StatusNoContent)
}
