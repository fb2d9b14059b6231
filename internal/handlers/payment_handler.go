package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/services"
)

type PaymentHandler struct {
	service services.PaymentService
	files   services.FileService
}

func NewPaymentHandler(service services.PaymentService, files services.FileService) *PaymentHandler {
	return &PaymentHandler{service: service, files: files}
}

// @Summary      Registrar pago
// @Description  Registra una transferencia bancaria con su comprobante (pdf, png o jpeg)
// @Tags         Payments
// @Accept       multipart/form-data
// @Produce      json
// @Param        task_id         formData  int     true   "Tarea"
// @Param        member_id       formData  int     false  "Integrante del grupo"
// @Param        sender_name     formData  string  true   "Titular de la cuenta de origen"
// @Param        sender_bank     formData  string  true   "Banco de origen"
// @Param        recipient_bank  formData  string  true   "Banco de destino"
// @Param        transfer_date   formData  string  true   "Fecha (YYYY-MM-DD)"
// @Param        receipt         formData  file    false  "Comprobante"
// @Success      201  {object}  models.Payment
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req services.SubmitPaymentInput
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "[payment][submit]", err)
		return
	}
	var uploaded int64
	if fh, err := c.FormFile("receipt"); err == nil {
		f, err := uploadOne(c, h.files, sess, models.UploadPaymentReceipt, fh)
		if err != nil {
			respondError(c, "[payment][submit][upload]", err)
			return
		}
		req.ReceiptFileID = f.ID
		uploaded = f.ID
	}

	p, err := h.service.Submit(c.Request.Context(), sess, req)
	if err != nil {
		if uploaded != 0 {
			h.files.Discard(c.Request.Context(), []int64{uploaded})
		}
		respondError(c, "[payment][submit]", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /payments?task_id=
func (h *PaymentHandler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var taskID int64
	if raw := c.Query("task_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
			return
		}
		taskID = id
	}
	out, err := h.service.History(c.Request.Context(), sess, taskID)
	if err != nil {
		respondError(c, "[payment][list]", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /payments/:id/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Verify(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, "[payment][verify]", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /payments/:id/reject
func (h *PaymentHandler) Reject(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[payment][reject]", err)
		return
	}
	p, err := h.service.Reject(c.Request.Context(), sess, id, req.Reason)
	if err != nil {
		respondError(c, "[payment][reject]", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /payments/:id/receipt
func (h *PaymentHandler) Receipt(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.WriteReceipt(c.Request.Context(), sess, id, &buf); err != nil {
		respondError(c, "[payment][receipt]", err)
		return
	}
	logging.Debug("[payment][receipt][ok]", "payment_id", id, "bytes", buf.Len())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="comprobante-%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// GET /groups/:id
func (h *PaymentHandler) Group(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	g, err := h.service.Group(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, "[group][get]", err)
		return
	}
	c.JSON(http.StatusOK, g)
}
