package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/services"
)

type FileHandler struct {
	service services.FileService
}

func NewFileHandler(service services.FileService) *FileHandler {
	return &FileHandler{service: service}
}

// POST /files (multipart: file, context)
func (h *FileHandler) Upload(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "[file][upload]", err)
		return
	}
	uc := models.UploadContext(c.DefaultPostForm("context", string(models.UploadRequirement)))
	f, err := uploadOne(c, h.service, sess, uc, fh)
	if err != nil {
		respondError(c, "[file][upload]", err)
		return
	}
	logging.Info("[file][upload][ok]", "file_id", f.ID, "user_id", sess.UserID, "context", f.UploadContext, "mime", f.MimeType, "size", f.FileSize)
	c.JSON(http.StatusCreated, f)
}

// GET /files/:id
func (h *FileHandler) Get(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	f, fh, err := h.service.Open(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, "[file][get]", err)
		return
	}
	defer fh.Close()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s", strconv.Quote(f.OriginalName)))
	c.DataFromReader(http.StatusOK, f.FileSize, f.MimeType, fh, nil)
}

// PUT /me/photo (multipart: file)
func (h *FileHandler) SetProfilePicture(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "[user][photo]", err)
		return
	}
	src, err := fh.Open()
	if err != nil {
		badRequest(c, "[user][photo]", err)
		return
	}
	defer src.Close()

	user, err := h.service.SetProfilePicture(c.Request.Context(), sess, fh.Filename, src)
	if err != nil {
		respondError(c, "[user][photo]", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DELETE /me/photo
func (h *FileHandler) RemoveProfilePicture(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	user, err := h.service.RemoveProfilePicture(c.Request.Context(), sess)
	if err != nil {
		respondError(c, "[user][photo][remove]", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
