package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID               int64  `json:"id"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	PasswordHash     string `json:"-"`
	RoleID           int    `json:"role_id"`
	Phone            string `json:"phone,omitempty"`
	UniversityID     *int64 `json:"university_id,omitempty"`
	CareerID         *int64 `json:"career_id,omitempty"`
	Semester         *int   `json:"semester,omitempty"`
	KnowHowAreas     string `json:"know_how_areas,omitempty"`
	ProfilePictureID *int64 `json:"profile_picture_id,omitempty"`

	RefreshToken     *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
	RefreshRevoked   bool       `json:"-"`

	TelegramChatID int64 `json:"telegram_chat_id,omitempty"`
	NotifyTelegram bool  `json:"notify_telegram"`

	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AssistantStats is the assistant dashboard summary.
type AssistantStats struct {
	TotalTasks    int             `json:"total_tasks"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	PendingIncome decimal.Decimal `json:"pending_income"`
	AvgRating     float64         `json:"avg_rating"`
	ActiveTasks   []Task          `json:"active_tasks"`
}

type TaskType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Career struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type University struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
