package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"intihelp/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrStaleStatus       = errors.New("task status changed concurrently")
	ErrMemberNotPayable  = errors.New("member share is not awaiting payment")
	ErrPaymentExists     = errors.New("payment already submitted for this task")
	ErrPaymentNotPending = errors.New("payment is not pending")
	ErrTokenInvalid      = errors.New("token invalid or expired")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error)
	ClearRefresh(ctx context.Context, userID int64) error

	UpdateTelegramLink(ctx context.Context, userID int64, chatID int64, enable bool) error
}

type PasswordResetRepository interface {
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) (*models.PasswordReset, error)
	// Consume marks a valid, unused token as used and returns it.
	Consume(ctx context.Context, token string) (*models.PasswordReset, error)
}

type TelegramLinkRepository interface {
	Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*models.TelegramLink, error)
	UseByCode(ctx context.Context, code string) (*models.TelegramLink, error)
}

type CatalogRepository interface {
	ListTaskTypes(ctx context.Context) ([]models.TaskType, error)
	GetTaskType(ctx context.Context, id int64) (*models.TaskType, error)
	ListCareers(ctx context.Context) ([]models.Career, error)
	ListUniversities(ctx context.Context) ([]models.University, error)
}

type PricingRepository interface {
	GetAssistantTaskType(ctx context.Context, assistantID, taskTypeID int64) (*models.AssistantTaskType, error)
	ListBands(ctx context.Context, assistantTaskTypeID int64) ([]models.PriceBand, error)
	// SaveService upserts the assistant/task type link and, when bands is
	// non-nil, replaces its band set, all in one transaction.
	SaveService(ctx context.Context, assistantID, taskTypeID int64, enabled bool, bands []models.PriceBand) (*models.AssistantTaskType, error)
	ListOffers(ctx context.Context, taskTypeID int64) ([]models.AssistantOffer, error)
	GetOffer(ctx context.Context, assistantID, taskTypeID int64) (*models.AssistantOffer, error)
}

type CouponRepository interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Deactivate(ctx context.Context, code string) error
}

type FileRepository interface {
	Create(ctx context.Context, f *models.File) error
	GetByID(ctx context.Context, id int64) (*models.File, error)
	Delete(ctx context.Context, id int64) error
	LinkedTaskIDs(ctx context.Context, fileID int64) ([]int64, error)
}

// CreateTaskInput is everything written when a task is created.
type CreateTaskInput struct {
	Task          *models.Task
	GroupName     string
	Members       []string
	Shares        []decimal.Decimal
	FileIDs       []int64
	TimelineTitle string
}

// TransitionInput describes one status change. From is the status the
// caller validated against; the change fails with ErrStaleStatus if the task
// has moved on since.
type TransitionInput struct {
	TaskID            int64
	From              models.TaskStatus
	To                models.TaskStatus
	Title             string
	ActorID           int64
	AssignAssistantID *int64
	Files             []models.TaskFile
	Rating            *models.Rating
}

type TaskRepository interface {
	// Create stores the task, its group and members, requirement file links
	// and the first timeline entry atomically. If the task carries an
	// idempotency key already used by the same student, the stored task is
	// returned with created=false.
	Create(ctx context.Context, in CreateTaskInput) (task *models.Task, created bool, err error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Timeline(ctx context.Context, taskID int64) ([]models.StatusTimelineEntry, error)
	Files(ctx context.Context, taskID int64) ([]models.TaskFile, error)

	// Transition closes the current timeline entry, opens the new one and
	// updates the task status in a single transaction.
	Transition(ctx context.Context, in TransitionInput) (*models.Task, error)

	ListDueForReminder(ctx context.Context, statuses []models.TaskStatus, dueBefore time.Time, limit int) ([]models.Task, error)
	SetReminderFired(ctx context.Context, id int64) error
	AssistantStats(ctx context.Context, assistantID int64) (*models.AssistantStats, error)
}

type GroupRepository interface {
	GetByID(ctx context.Context, id int64) (*models.PaymentGroup, error)
	GetByTaskID(ctx context.Context, taskID int64) (*models.PaymentGroup, error)
	GetMember(ctx context.Context, memberID int64) (*models.GroupMember, error)
}

type VerifyPaymentInput struct {
	PaymentID  int64
	VerifierID int64
	PaidTitle  string
}

// VerifyPaymentResult reports what a verification changed. Task is set only
// when the verification settled the task and moved it to Tarea Pagada.
type VerifyPaymentResult struct {
	Payment *models.Payment
	Task    *models.Task
}

type PaymentRepository interface {
	// Create stores a pending payment. For a group member it also moves the
	// member to enviado and records the payer as that member's user.
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	ListByPayer(ctx context.Context, payerID int64) ([]models.Payment, error)
	ListByTask(ctx context.Context, taskID int64) ([]models.Payment, error)
	// Verify fails with ErrStaleStatus unless the task is still Tarea Aceptada.
	Verify(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error)
	Reject(ctx context.Context, paymentID, verifierID int64, reason string) (*models.Payment, error)
}

// ClosedStatuses no longer count as pending income; InactiveStatuses are
// hidden from the assistant's active task list.
var (
	ClosedStatuses = []models.TaskStatus{
		models.StatusAssistantPaid, models.StatusCancelled, models.StatusRejected,
	}
	InactiveStatuses = []models.TaskStatus{
		models.StatusAssistantPaid, models.StatusRated, models.StatusCancelled, models.StatusRejected,
	}
)
