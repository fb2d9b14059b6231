package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intihelp/internal/services"
)

type CatalogHandler struct {
	service services.CatalogService
}

func NewCatalogHandler(service services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// GET /catalog/task-types
func (h *CatalogHandler) TaskTypes(c *gin.Context) {
	items, err := h.service.TaskTypes(c.Request.Context())
	if err != nil {
		respondError(c, "[catalog][task-types]", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GET /catalog/careers
func (h *CatalogHandler) Careers(c *gin.Context) {
	items, err := h.service.Careers(c.Request.Context())
	if err != nil {
		respondError(c, "[catalog][careers]", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GET /catalog/universities
func (h *CatalogHandler) Universities(c *gin.Context) {
	items, err := h.service.Universities(c.Request.Context())
	if err != nil {
		respondError(c, "[catalog][universities]", err)
		return
	}
	c.JSON(http.StatusOK, items)
}
