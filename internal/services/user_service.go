package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"intihelp/internal/authz"
	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

const minPasswordLen = 6

type RegisterInput struct {
	FullName     string  `json:"full_name" binding:"required"`
	Email        string  `json:"email" binding:"required"`
	Password     string  `json:"password" binding:"required"`
	Role         string  `json:"role" binding:"required"`
	Phone        string  `json:"phone"`
	UniversityID *int64  `json:"university_id"`
	CareerID     *int64  `json:"career_id"`
	Semester     *int    `json:"semester"`
	KnowHowAreas string  `json:"know_how_areas"`
	TaskTypeIDs  []int64 `json:"task_type_ids"`
}

type ProfileInput struct {
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	UniversityID   *int64  `json:"university_id"`
	CareerID       *int64  `json:"career_id"`
	Semester       *int    `json:"semester"`
	KnowHowAreas   *string `json:"know_how_areas"`
	NotifyTelegram *bool   `json:"notify_telegram"`
}

type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	CreateTelegramLink(ctx context.Context, userID int64) (*models.TelegramLink, error)
	LinkTelegram(ctx context.Context, code string, chatID int64) (*models.User, error)
}

type userService struct {
	repo       repositories.UserRepository
	catalog    repositories.CatalogRepository
	pricing    repositories.PricingRepository
	links      repositories.TelegramLinkRepository
	emails     EmailService
	auth       AuthService
	refreshTTL time.Duration
	linkTTL    time.Duration
}

func NewUserService(
	repo repositories.UserRepository,
	catalog repositories.CatalogRepository,
	pricing repositories.PricingRepository,
	links repositories.TelegramLinkRepository,
	emails EmailService,
	auth AuthService,
	refreshTTL, linkTTL time.Duration,
) UserService {
	return &userService{
		repo:       repo,
		catalog:    catalog,
		pricing:    pricing,
		links:      links,
		emails:     emails,
		auth:       auth,
		refreshTTL: refreshTTL,
		linkTTL:    linkTTL,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	roleID, ok := authz.ParseRole(in.Role)
	if !ok {
		return nil, invalid("unknown role %q", in.Role)
	}
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not valid")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, invalid("full_name is required")
	}
	if len(strings.TrimSpace(in.Password)) < minPasswordLen {
		return nil, invalid("password must be at least %d characters", minPasswordLen)
	}
	if in.Semester != nil && (*in.Semester < 1 || *in.Semester > 14) {
		return nil, invalid("semester must be between 1 and 14")
	}
	if roleID == authz.RoleAssistant {
		for _, id := range in.TaskTypeIDs {
			if _, err := s.catalog.GetTaskType(ctx, id); err != nil {
				return nil, invalid("unknown task type %d", id)
			}
		}
	}

	hash, err := s.auth.HashPassword(strings.TrimSpace(in.Password))
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		Phone:        strings.TrimSpace(in.Phone),
		UniversityID: in.UniversityID,
		CareerID:     in.CareerID,
		Semester:     in.Semester,
		KnowHowAreas: strings.TrimSpace(in.KnowHowAreas),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	if roleID == authz.RoleAssistant {
		for _, id := range in.TaskTypeIDs {
			if _, err := s.pricing.SaveService(ctx, user.ID, id, true, nil); err != nil {
				return nil, err
			}
		}
	}

	if err := s.emails.SendWelcomeEmail(user.Email, user.FullName); err != nil {
		logging.Warn("[user][register] welcome email failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := s.auth.CheckPassword(user.PasswordHash, strings.TrimSpace(password)); err != nil {
		return nil, nil, err
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.UpdateRefresh(ctx, user.ID, pair.RefreshToken, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *userService) issue(user *models.User) (*TokenPair, error) {
	access, exp, err := s.auth.IssueAccessToken(user.ID, user.RoleID)
	if err != nil {
		return nil, err
	}
	rt, err := s.auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, AccessExpiresAt: exp, RefreshToken: rt}, nil
}

// Refresh rotates the refresh token; the old one stops working immediately.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	old := strings.TrimSpace(refreshToken)
	if old == "" {
		return nil, repositories.ErrTokenInvalid
	}
	next, err := s.auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	user, err := s.repo.RotateRefresh(ctx, old, next, time.Now().Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}
	access, exp, err := s.auth.IssueAccessToken(user.ID, user.RoleID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, AccessExpiresAt: exp, RefreshToken: next}, nil
}

func (s *userService) Logout(ctx context.Context, userID int64) error {
	return s.repo.ClearRefresh(ctx, userID)
}

func (s *userService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, invalid("full_name cannot be empty")
		}
		user.FullName = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.UniversityID != nil {
		user.UniversityID = in.UniversityID
	}
	if in.CareerID != nil {
		user.CareerID = in.CareerID
	}
	if in.Semester != nil {
		if *in.Semester < 1 || *in.Semester > 14 {
			return nil, invalid("semester must be between 1 and 14")
		}
		user.Semester = in.Semester
	}
	if in.KnowHowAreas != nil {
		user.KnowHowAreas = strings.TrimSpace(*in.KnowHowAreas)
	}
	if in.NotifyTelegram != nil {
		if *in.NotifyTelegram && user.TelegramChatID == 0 {
			return nil, invalid("telegram is not linked")
		}
		user.NotifyTelegram = *in.NotifyTelegram
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.auth.CheckPassword(user.PasswordHash, strings.TrimSpace(current)); err != nil {
		return err
	}
	next = strings.TrimSpace(next)
	if len(next) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	hash, err := s.auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	// other sessions must log in again
	return s.repo.ClearRefresh(ctx, userID)
}

func (s *userService) CreateTelegramLink(ctx context.Context, userID int64) (*models.TelegramLink, error) {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return s.links.Create(ctx, userID, code, s.linkTTL)
}

func (s *userService) LinkTelegram(ctx context.Context, code string, chatID int64) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || chatID == 0 {
		return nil, repositories.ErrTokenInvalid
	}
	link, err := s.links.UseByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTelegramLink(ctx, link.UserID, chatID, true); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, link.UserID)
}
