// internal/models/task.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus defines the possible statuses for a task.
// Values are persisted as-is and shown to users.
type TaskStatus string

const (
	StatusRequested     TaskStatus = "Tarea Solicitada"
	StatusAccepted      TaskStatus = "Tarea Aceptada"
	StatusRejected      TaskStatus = "Tarea Rechazada"
	StatusPaid          TaskStatus = "Tarea Pagada"
	StatusStarted       TaskStatus = "Tarea Comenzada"
	StatusProgressSent  TaskStatus = "Avance Enviado"
	StatusCompleted     TaskStatus = "Tarea Completada"
	StatusApproved      TaskStatus = "Tarea Aprobada"
	StatusDisputed      TaskStatus = "Tarea Impugnada"
	StatusRated         TaskStatus = "Tarea Calificada"
	StatusAssistantPaid TaskStatus = "Asistente Remunerado"
	StatusCancelled     TaskStatus = "Tarea Cancelada"
)

var allStatuses = []TaskStatus{
	StatusRequested, StatusAccepted, StatusRejected, StatusPaid, StatusStarted,
	StatusProgressSent, StatusCompleted, StatusApproved, StatusDisputed,
	StatusRated, StatusAssistantPaid, StatusCancelled,
}

func AllTaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s TaskStatus) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PaymentType string

const (
	PaymentTypeIndividual PaymentType = "individual"
	PaymentTypeGroup      PaymentType = "group"
)

func (p PaymentType) Valid() bool {
	return p == PaymentTypeIndividual || p == PaymentTypeGroup
}

// Task represents an academic task requested by a student from an assistant.
type Task struct {
	ID                      int64           `json:"id"`
	StudentID               int64           `json:"student_id"`
	AssistantID             *int64          `json:"assistant_id,omitempty"`
	TaskTypeID              int64           `json:"task_type_id"`
	CareerID                *int64          `json:"career_id,omitempty"`
	Title                   string          `json:"title"`
	Description             string          `json:"description"`
	PageCount               int             `json:"page_count"`
	Format                  string          `json:"format"`
	MaxAIPercentage         int             `json:"max_ai_percentage"`
	MaxPlagiarismPercentage int             `json:"max_plagiarism_percentage"`
	DueDate                 time.Time       `json:"due_date"`
	AssistantPrice          decimal.Decimal `json:"assistant_price"`
	PlatformFee             decimal.Decimal `json:"platform_fee"`
	Discount                decimal.Decimal `json:"discount"`
	TotalPrice              decimal.Decimal `json:"total_price"`
	CouponCode              *string         `json:"coupon_code,omitempty"`
	Status                  TaskStatus      `json:"status"`
	PaymentType             PaymentType     `json:"payment_type"`
	GroupID                 *int64          `json:"group_id,omitempty"`
	IdempotencyKey          *string         `json:"-"`
	Version                 int             `json:"version"`
	LastRemindedAt          *time.Time      `json:"last_reminded_at,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// IsParticipant reports whether userID is the task's student or assistant.
func (t *Task) IsParticipant(userID int64) bool {
	if t.StudentID == userID {
		return true
	}
	return t.AssistantID != nil && *t.AssistantID == userID
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	StudentID       *int64
	AssistantID     *int64
	Statuses        []TaskStatus
	ExcludeStatuses []TaskStatus
}

// TaskDetail is a task together with its full timeline and attached files.
type TaskDetail struct {
	Task
	Timeline []StatusTimelineEntry `json:"timeline"`
	Files    []TaskFile            `json:"files"`
	Group    *PaymentGroup         `json:"group,omitempty"`
}
