package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intihelp/internal/authz"
	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/services"
)

type TaskHandler struct {
	service services.TaskService
	pricing services.PricingService
	files   services.FileService
}

func NewTaskHandler(service services.TaskService, pricing services.PricingService, files services.FileService) *TaskHandler {
	return &TaskHandler{service: service, pricing: pricing, files: files}
}

type noteRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Cotizar asistentes
// @Description  Lista los asistentes disponibles con su precio, comisión y descuento
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        body  body      services.QuoteRequest  true  "Parámetros de la tarea"
// @Success      200   {array}   services.AssistantQuote
// @Failure      400   {object}  map[string]string
// @Router       /tasks/quotes [post]
func (h *TaskHandler) Quotes(c *gin.Context) {
	var req services.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[task][quotes]", err)
		return
	}
	quotes, err := h.pricing.QuoteAssistants(c.Request.Context(), req)
	if err != nil {
		respondError(c, "[task][quotes]", err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

// @Summary      Crear tarea
// @Description  El estudiante solicita una tarea a un asistente. El encabezado Idempotency-Key hace seguro reintentar.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                    false  "Clave de idempotencia"
// @Param        body             body      services.CreateTaskInput  true   "Tarea"
// @Success      201              {object}  models.Task
// @Success      200              {object}  models.Task
// @Failure      400              {object}  map[string]string
// @Failure      403              {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req services.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "[task][create]", err)
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	task, created, err := h.service.Create(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, "[task][create]", err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, task)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GET /tasks?status=...
func (h *TaskHandler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var statuses []models.TaskStatus
	for _, raw := range c.QueryArray("status") {
		if raw = strings.TrimSpace(raw); raw != "" {
			statuses = append(statuses, models.TaskStatus(raw))
		}
	}
	tasks, err := h.service.List(c.Request.Context(), sess, statuses)
	if err != nil {
		respondError(c, "[task][list]", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, "[task][get]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task":          detail,
		"next_statuses": services.NextStatuses(detail.Status, sess.RoleID),
	})
}

type taskAction func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error)

// run wraps the shared parts of every action endpoint.
func (h *TaskHandler) run(tag string, action taskAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		task, err := action(c, sess, id)
		if err != nil {
			respondError(c, tag, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func bindNote(c *gin.Context) (string, error) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", bindErr(err)
	}
	return req.Reason, nil
}

// @Summary      Cambiar estado
// @Description  Transición genérica validada contra la tabla de estados y el rol
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path      int     true  "ID de la tarea"
// @Param        body  body      object  true  "{to, title}"
// @Success      200   {object}  models.Task
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tasks/{id}/status [post]
func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	h.run("[task][status]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		var req struct {
			To    models.TaskStatus `json:"to" binding:"required"`
			Title string            `json:"title"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindErr(err)
		}
		return h.service.Transition(c.Request.Context(), sess, id, req.To, req.Title)
	})(c)
}

// POST /tasks/:id/accept
func (h *TaskHandler) Accept(c *gin.Context) {
	h.run("[task][accept]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		return h.service.Accept(c.Request.Context(), sess, id)
	})(c)
}

// POST /tasks/:id/reject
func (h *TaskHandler) Reject(c *gin.Context) {
	h.run("[task][reject]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		reason, err := bindNote(c)
		if err != nil {
			return nil, err
		}
		return h.service.Reject(c.Request.Context(), sess, id, reason)
	})(c)
}

// POST /tasks/:id/start
func (h *TaskHandler) Start(c *gin.Context) {
	h.run("[task][start]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		return h.service.Start(c.Request.Context(), sess, id)
	})(c)
}

// POST /tasks/:id/cancel
func (h *TaskHandler) Cancel(c *gin.Context) {
	h.run("[task][cancel]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		reason, err := bindNote(c)
		if err != nil {
			return nil, err
		}
		return h.service.Cancel(c.Request.Context(), sess, id, reason)
	})(c)
}

// POST /tasks/:id/approve
func (h *TaskHandler) Approve(c *gin.Context) {
	h.run("[task][approve]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		return h.service.Approve(c.Request.Context(), sess, id)
	})(c)
}

// POST /tasks/:id/dispute
func (h *TaskHandler) Dispute(c *gin.Context) {
	h.run("[task][dispute]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		reason, err := bindNote(c)
		if err != nil {
			return nil, err
		}
		return h.service.Dispute(c.Request.Context(), sess, id, reason)
	})(c)
}

// POST /tasks/:id/rate
func (h *TaskHandler) Rate(c *gin.Context) {
	h.run("[task][rate]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		var req services.RateInput
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindErr(err)
		}
		return h.service.Rate(c.Request.Context(), sess, id, req)
	})(c)
}

// multipartFiles uploads the "files" parts and merges them with file_ids
// that were uploaded earlier. uploaded holds only the ids stored by this
// request.
func (h *TaskHandler) multipartFiles(c *gin.Context, sess authz.Session, uc models.UploadContext) (ids, uploaded []int64, note string, err error) {
	ids, err = formIDs(c, "file_ids")
	if err != nil {
		return nil, nil, "", bindErr(err)
	}
	if form, ferr := c.MultipartForm(); ferr == nil && form != nil {
		uploaded, err = uploadAll(c, h.files, sess, uc, form.File["files"])
		if err != nil {
			return nil, nil, "", err
		}
		ids = append(ids, uploaded...)
	}
	return ids, uploaded, c.PostForm("note"), nil
}

type fileAction func(ctx context.Context, sess authz.Session, id int64, fileIDs []int64, note string) (*models.Task, error)

// withFiles runs action with the request files and discards this request's
// uploads when the action is refused.
func (h *TaskHandler) withFiles(uc models.UploadContext, action fileAction) taskAction {
	return func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		ids, uploaded, note, err := h.multipartFiles(c, sess, uc)
		if err != nil {
			return nil, err
		}
		task, err := action(c.Request.Context(), sess, id, ids, note)
		if err != nil {
			h.files.Discard(c.Request.Context(), uploaded)
			return nil, err
		}
		return task, nil
	}
}

// POST /tasks/:id/progress (multipart: files, note)
func (h *TaskHandler) SendProgress(c *gin.Context) {
	h.run("[task][progress]", h.withFiles(models.UploadUpdates, h.service.SendProgress))(c)
}

// POST /tasks/:id/deliver (multipart: files, note)
func (h *TaskHandler) Deliver(c *gin.Context) {
	h.run("[task][deliver]", h.withFiles(models.UploadFinal, h.service.Deliver))(c)
}

// POST /tasks/:id/resolve
func (h *TaskHandler) Resolve(c *gin.Context) {
	h.run("[task][resolve]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		var req struct {
			To   models.TaskStatus `json:"to" binding:"required"`
			Note string            `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindErr(err)
		}
		return h.service.Resolve(c.Request.Context(), sess, id, req.To, req.Note)
	})(c)
}

// POST /tasks/:id/payout
func (h *TaskHandler) Payout(c *gin.Context) {
	h.run("[task][payout]", func(c *gin.Context, sess authz.Session, id int64) (*models.Task, error) {
		task, err := h.service.Payout(c.Request.Context(), sess, id)
		if err == nil {
			logging.Info("[task][payout][ok]", "task_id", id, "amount", task.AssistantPrice.String())
		}
		return task, err
	})(c)
}
