package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intihelp/internal/logging"
	"intihelp/internal/services"
)

// AssistantHandler serves the assistant's own offer and dashboard.
type AssistantHandler struct {
	pricing   services.PricingService
	dashboard services.DashboardService
}

func NewAssistantHandler(pricing services.PricingService, dashboard services.DashboardService) *AssistantHandler {
	return &AssistantHandler{pricing: pricing, dashboard: dashboard}
}

// GET /services/:taskTypeID/pricing
func (h *AssistantHandler) GetPricing(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	taskTypeID, ok := paramID(c, "taskTypeID")
	if !ok {
		return
	}
	out, err := h.pricing.GetService(c.Request.Context(), sess.UserID, taskTypeID)
	if err != nil {
		respondError(c, "[service][pricing][get]", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Guardar tarifas
// @Description  Reemplaza todas las bandas de precio del asistente para un tipo de tarea
// @Tags         Services
// @Accept       json
// @Produce      json
// @Param        taskTypeID  path      int                        true  "Tipo de tarea"
// @Param        body        body      services.SaveServiceInput  true  "Bandas"
// @Success      200         {object}  services.ServicePricing
// @Failure      400         {object}  map[string]string
// @Router       /services/{taskTypeID}/pricing [put]
func (h *AssistantHandler) SavePricing(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	taskTypeID, ok := paramID(c, "taskTypeID")
	if !ok {
		return
	}
	var req services.SaveServiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[service][pricing][save]", err)
		return
	}
	out, err := h.pricing.SaveService(c.Request.Context(), sess.UserID, taskTypeID, req)
	if err != nil {
		respondError(c, "[service][pricing][save]", err)
		return
	}
	logging.Info("[service][pricing][save][ok]", "assistant_id", sess.UserID, "task_type_id", taskTypeID, "bands", len(out.Bands), "enabled", out.IsEnabled)
	c.JSON(http.StatusOK, out)
}

// GET /dashboard/assistant
func (h *AssistantHandler) Dashboard(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	stats, err := h.dashboard.Assistant(c.Request.Context(), sess)
	if err != nil {
		respondError(c, "[dashboard][assistant]", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
