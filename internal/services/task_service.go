package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"intihelp/internal/authz"
	"intihelp/internal/lock"
	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/pricing"
	"intihelp/internal/repositories"
)

type CreateTaskInput struct {
	AssistantID             int64              `json:"assistant_id" binding:"required"`
	TaskTypeID              int64              `json:"task_type_id" binding:"required"`
	CareerID                *int64             `json:"career_id"`
	Title                   string             `json:"title" binding:"required"`
	Description             string             `json:"description"`
	PageCount               int                `json:"page_count"`
	Format                  string             `json:"format"`
	MaxAIPercentage         int                `json:"max_ai_percentage"`
	MaxPlagiarismPercentage int                `json:"max_plagiarism_percentage"`
	DueDate                 time.Time          `json:"due_date" binding:"required"`
	CouponCode              string             `json:"coupon_code"`
	PaymentType             models.PaymentType `json:"payment_type"`
	GroupName               string             `json:"group_name"`
	Members                 []string           `json:"members"`
	FileIDs                 []int64            `json:"file_ids"`
	IdempotencyKey          string             `json:"-"`
}

type RateInput struct {
	Rating int    `json:"rating" binding:"required"`
	Review string `json:"review"`
}

type TaskService interface {
	// Create returns created=false when the idempotency key replays an
	// earlier request.
	Create(ctx context.Context, sess authz.Session, in CreateTaskInput) (task *models.Task, created bool, err error)
	Get(ctx context.Context, sess authz.Session, id int64) (*models.TaskDetail, error)
	List(ctx context.Context, sess authz.Session, statuses []models.TaskStatus) ([]models.Task, error)

	Transition(ctx context.Context, sess authz.Session, id int64, to models.TaskStatus, title string) (*models.Task, error)

	Accept(ctx context.Context, sess authz.Session, id int64) (*models.Task, error)
	Reject(ctx context.Context, sess authz.Session, id int64, reason string) (*models.Task, error)
	Start(ctx context.Context, sess authz.Session, id int64) (*models.Task, error)
	Cancel(ctx context.Context, sess authz.Session, id int64, reason string) (*models.Task, error)
	Approve(ctx context.Context, sess authz.Session, id int64) (*models.Task, error)
	Dispute(ctx context.Context, sess authz.Session, id int64, reason string) (*models.Task, error)
	Rate(ctx context.Context, sess authz.Session, id int64, in RateInput) (*models.Task, error)
	SendProgress(ctx context.Context, sess authz.Session, id int64, fileIDs []int64, note string) (*models.Task, error)
	Deliver(ctx context.Context, sess authz.Session, id int64, fileIDs []int64, note string) (*models.Task, error)
	Resolve(ctx context.Context, sess authz.Session, id int64, to models.TaskStatus, note string) (*models.Task, error)
	Payout(ctx context.Context, sess authz.Session, id int64) (*models.Task, error)
}

type taskService struct {
	repo    repositories.TaskRepository
	groups  repositories.GroupRepository
	users   repositories.UserRepository
	pricing PricingService
	files   FileService
	locker  lock.Locker
	notify  Notifier
	now     func() time.Time
}

func NewTaskService(
	repo repositories.TaskRepository,
	groups repositories.GroupRepository,
	users repositories.UserRepository,
	pricingSvc PricingService,
	files FileService,
	locker lock.Locker,
	notify Notifier,
) TaskService {
	return &taskService{
		repo:    repo,
		groups:  groups,
		users:   users,
		pricing: pricingSvc,
		files:   files,
		locker:  locker,
		notify:  notify,
		now:     time.Now,
	}
}

// Default timeline titles.
var statusTitles = map[models.TaskStatus]string{
	models.StatusRequested:     "Tarea solicitada por el estudiante",
	models.StatusAccepted:      "El asistente aceptó la tarea",
	models.StatusRejected:      "El asistente rechazó la tarea",
	models.StatusPaid:          "Pago verificado",
	models.StatusStarted:       "El asistente comenzó la tarea",
	models.StatusProgressSent:  "El asistente envió un avance",
	models.StatusCompleted:     "El asistente entregó la tarea",
	models.StatusApproved:      "El estudiante aprobó la entrega",
	models.StatusDisputed:      "El estudiante impugnó la entrega",
	models.StatusRated:         "El estudiante calificó la tarea",
	models.StatusAssistantPaid: "Se pagó al asistente",
	models.StatusCancelled:     "Tarea cancelada",
}

// StatusTitle is the timeline title used when the caller gives none.
func StatusTitle(s models.TaskStatus) string {
	return statusTitles[s]
}

func titleOr(s models.TaskStatus, title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return statusTitles[s]
}

func withNote(s models.TaskStatus, note string) string {
	if n := strings.TrimSpace(note); n != "" {
		return statusTitles[s] + ": " + n
	}
	return statusTitles[s]
}

func (s *taskService) Create(ctx context.Context, sess authz.Session, in CreateTaskInput) (*models.Task, bool, error) {
	if !sess.IsStudent() {
		return nil, false, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, false, invalid("title is required")
	}
	if !in.DueDate.After(s.now()) {
		return nil, false, invalid("due_date must be in the future")
	}
	if in.PaymentType == "" {
		in.PaymentType = models.PaymentTypeIndividual
	}
	if !in.PaymentType.Valid() {
		return nil, false, invalid("payment_type must be individual or group")
	}

	var members []string
	if in.PaymentType == models.PaymentTypeGroup {
		for _, m := range in.Members {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			return nil, false, invalid("a group payment needs at least one member")
		}
		if strings.TrimSpace(in.GroupName) == "" {
			in.GroupName = in.Title
		}
	}

	if len(in.FileIDs) > 0 {
		if _, err := s.files.Owned(ctx, sess.UserID, models.UploadRequirement, in.FileIDs); err != nil {
			return nil, false, err
		}
	}

	quote, err := s.pricing.QuoteFor(ctx, in.AssistantID, QuoteRequest{
		TaskTypeID: in.TaskTypeID,
		Input: pricing.Input{
			PageCount:               in.PageCount,
			MaxAIPercentage:         in.MaxAIPercentage,
			MaxPlagiarismPercentage: in.MaxPlagiarismPercentage,
		},
		CouponCode: in.CouponCode,
	})
	if err != nil {
		return nil, false, err
	}

	assistantID := in.AssistantID
	task := &models.Task{
		StudentID:               sess.UserID,
		AssistantID:             &assistantID,
		TaskTypeID:              in.TaskTypeID,
		CareerID:                in.CareerID,
		Title:                   in.Title,
		Description:             strings.TrimSpace(in.Description),
		PageCount:               in.PageCount,
		Format:                  strings.TrimSpace(in.Format),
		MaxAIPercentage:         in.MaxAIPercentage,
		MaxPlagiarismPercentage: in.MaxPlagiarismPercentage,
		DueDate:                 in.DueDate,
		AssistantPrice:          quote.AssistantPrice,
		PlatformFee:             quote.PlatformFee,
		Discount:                quote.Discount,
		TotalPrice:              quote.Payable,
		PaymentType:             in.PaymentType,
	}
	if code := normalizeCode(in.CouponCode); code != "" && quote.Discount.IsPositive() {
		task.CouponCode = &code
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		task.IdempotencyKey = &key
	}

	create := repositories.CreateTaskInput{
		Task:          task,
		GroupName:     strings.TrimSpace(in.GroupName),
		Members:       members,
		FileIDs:       in.FileIDs,
		TimelineTitle: statusTitles[models.StatusRequested],
	}
	if len(members) > 0 {
		if create.Shares, err = pricing.SplitEqually(quote.Payable, len(members)); err != nil {
			return nil, false, err
		}
	}

	stored, created, err := s.repo.Create(ctx, create)
	if err != nil {
		return nil, false, err
	}
	if created {
		logging.Info("[task][create][ok]", "task_id", stored.ID, "student_id", sess.UserID, "total", stored.TotalPrice.String())
		s.notify.TaskChanged(ctx, stored, sess.UserID, create.TimelineTitle)
	} else {
		logging.Info("[task][create][replay]", "task_id", stored.ID, "student_id", sess.UserID)
	}
	return stored, created, nil
}

func (s *taskService) canView(ctx context.Context, sess authz.Session, t *models.Task) bool {
	if sess.IsAdmin() || t.IsParticipant(sess.UserID) {
		return true
	}
	return isGroupMember(ctx, s.groups, t, sess.UserID)
}

func (s *taskService) Get(ctx context.Context, sess authz.Session, id int64) (*models.TaskDetail, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, sess, t) {
		return nil, ErrForbidden
	}
	timeline, err := s.repo.Timeline(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.repo.Files(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.TaskDetail{Task: *t, Timeline: timeline, Files: files}
	if detail.Timeline == nil {
		detail.Timeline = []models.StatusTimelineEntry{}
	}
	if detail.Files == nil {
		detail.Files = []models.TaskFile{}
	}
	if t.GroupID != nil {
		if detail.Group, err = s.groups.GetByID(ctx, *t.GroupID); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *taskService) List(ctx context.Context, sess authz.Session, statuses []models.TaskStatus) ([]models.Task, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, invalid("unknown status %q", st)
		}
	}
	filter := models.TaskFilter{Statuses: statuses}
	switch {
	case sess.IsStudent():
		filter.StudentID = &sess.UserID
	case sess.IsAssistant():
		filter.AssistantID = &sess.UserID
	case sess.IsAdmin():
	default:
		return nil, ErrForbidden
	}
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Transition is the generic status change. Ratings carry extra data and go
// through Rate instead.
func (s *taskService) Transition(ctx context.Context, sess authz.Session, id int64, to models.TaskStatus, title string) (*models.Task, error) {
	if !to.Valid() {
		return nil, invalid("unknown status %q", to)
	}
	if to == models.StatusRated {
		return nil, invalid("use the rate action to rate a task")
	}
	if to == models.StatusPaid {
		return nil, invalid("a task is marked paid by verifying its payments")
	}
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: to, Title: titleOr(to, title)})
}

func (s *taskService) Accept(ctx context.Context, sess authz.Session, id int64) (*models.Task, error) {
	return s.apply(ctx, sess, repositories.TransitionInput{
		TaskID:            id,
		To:                models.StatusAccepted,
		Title:             statusTitles[models.StatusAccepted],
		AssignAssistantID: &sess.UserID,
	})
}

func (s *taskService) Reject(ctx context.Context, sess authz.Session, id int64, reason string) (*models.Task, error) {
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusRejected, Title: withNote(models.StatusRejected, reason)})
}

func (s *taskService) Start(ctx context.Context, sess authz.Session, id int64) (*models.Task, error) {
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusStarted, Title: statusTitles[models.StatusStarted]})
}

func (s *taskService) Cancel(ctx context.Context, sess authz.Session, id int64, reason string) (*models.Task, error) {
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusCancelled, Title: withNote(models.StatusCancelled, reason)})
}

func (s *taskService) Approve(ctx context.Context, sess authz.Session, id int64) (*models.Task, error) {
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusApproved, Title: statusTitles[models.StatusApproved]})
}

func (s *taskService) Dispute(ctx context.Context, sess authz.Session, id int64, reason string) (*models.Task, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("reason is required")
	}
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusDisputed, Title: withNote(models.StatusDisputed, reason)})
}

func (s *taskService) Rate(ctx context.Context, sess authz.Session, id int64, in RateInput) (*models.Task, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}
	return s.apply(ctx, sess, repositories.TransitionInput{
		TaskID: id,
		To:     models.StatusRated,
		Title:  fmt.Sprintf("%s (%d/5)", statusTitles[models.StatusRated], in.Rating),
		Rating: &models.Rating{RatedBy: sess.UserID, Rating: in.Rating, Review: strings.TrimSpace(in.Review)},
	})
}

func (s *taskService) SendProgress(ctx context.Context, sess authz.Session, id int64, fileIDs []int64, note string) (*models.Task, error) {
	links, err := s.ownedLinks(ctx, sess, models.UploadUpdates, fileIDs)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusProgressSent, Title: withNote(models.StatusProgressSent, note), Files: links})
}

func (s *taskService) Deliver(ctx context.Context, sess authz.Session, id int64, fileIDs []int64, note string) (*models.Task, error) {
	if len(fileIDs) == 0 {
		return nil, invalid("at least one final file is required")
	}
	links, err := s.ownedLinks(ctx, sess, models.UploadFinal, fileIDs)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusCompleted, Title: withNote(models.StatusCompleted, note), Files: links})
}

// Resolve closes a dispute: rework, approval or cancellation.
func (s *taskService) Resolve(ctx context.Context, sess authz.Session, id int64, to models.TaskStatus, note string) (*models.Task, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	switch to {
	case models.StatusStarted, models.StatusApproved, models.StatusCancelled:
	default:
		return nil, invalid("a dispute resolves to %q, %q or %q", models.StatusStarted, models.StatusApproved, models.StatusCancelled)
	}
	return s.apply(ctx, sess, repositories.TransitionInput{
		TaskID: id,
		From:   models.StatusDisputed,
		To:     to,
		Title:  "Impugnación resuelta: " + withNote(to, note),
	})
}

func (s *taskService) Payout(ctx context.Context, sess authz.Session, id int64) (*models.Task, error) {
	return s.apply(ctx, sess, repositories.TransitionInput{TaskID: id, To: models.StatusAssistantPaid, Title: statusTitles[models.StatusAssistantPaid]})
}

func (s *taskService) ownedLinks(ctx context.Context, sess authz.Session, uc models.UploadContext, ids []int64) ([]models.TaskFile, error) {
	if !sess.IsAssistant() {
		return nil, ErrForbidden
	}
	files, err := s.files.Owned(ctx, sess.UserID, uc, ids)
	if err != nil {
		return nil, err
	}
	links := make([]models.TaskFile, 0, len(files))
	for _, f := range files {
		links = append(links, models.TaskFile{FileID: f.ID, UploadType: uc})
	}
	return links, nil
}

// apply runs one status change under the task's lock. A set in.From is a
// precondition on the current status; otherwise the loaded status is used.
func (s *taskService) apply(ctx context.Context, sess authz.Session, in repositories.TransitionInput) (*models.Task, error) {
	unlock, err := s.locker.Lock(ctx, taskLockKey(in.TaskID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := s.repo.GetByID(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	if !s.mayAct(sess, t) {
		return nil, ErrForbidden
	}
	if in.From != "" && t.Status != in.From {
		return nil, &TransitionError{From: t.Status, To: in.To, RoleID: sess.RoleID, Err: ErrIllegalTransition}
	}
	if err := CheckTransition(t.Status, in.To, sess.RoleID); err != nil {
		logging.Warn("[task][status][denied]", "task_id", t.ID, "from", t.Status, "to", in.To, "role", authz.RoleName(sess.RoleID), "user_id", sess.UserID)
		return nil, err
	}
	if in.Rating != nil {
		if t.AssistantID == nil {
			return nil, invalid("task has no assistant to rate")
		}
		in.Rating.RatedUser = *t.AssistantID
	}

	in.From = t.Status
	in.ActorID = sess.UserID
	updated, err := s.repo.Transition(ctx, in)
	if errors.Is(err, repositories.ErrStaleStatus) {
		return nil, ErrConflict
	}
	if errors.Is(err, repositories.ErrDuplicate) && in.Rating != nil {
		return nil, fmt.Errorf("%w: task already rated", ErrConflict)
	}
	if err != nil {
		logging.Error("[task][status][err]", "task_id", t.ID, "to", in.To, "error", err)
		return nil, err
	}

	logging.Info("[task][status][ok]", "task_id", updated.ID, "from", in.From, "to", updated.Status, "user_id", sess.UserID)
	s.notify.TaskChanged(ctx, updated, sess.UserID, in.Title)
	return updated, nil
}

// mayAct limits students and assistants to their own tasks. Which role may
// make which move is decided by the transition table.
func (s *taskService) mayAct(sess authz.Session, t *models.Task) bool {
	switch {
	case sess.IsAdmin():
		return true
	case sess.IsStudent():
		return t.StudentID == sess.UserID
	case sess.IsAssistant():
		return t.AssistantID != nil && *t.AssistantID == sess.UserID
	}
	return false
}

func taskLockKey(id int64) string {
	return fmt.Sprintf("task:%d", id)
}
