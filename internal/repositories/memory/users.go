package memory

import (
	"context"
	"time"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type userRepo struct{ s *Store }

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = r.s.next("users")
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[user.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.FullName = user.FullName
	u.Phone = user.Phone
	u.UniversityID = user.UniversityID
	u.CareerID = user.CareerID
	u.Semester = user.Semester
	u.KnowHowAreas = user.KnowHowAreas
	u.ProfilePictureID = user.ProfilePictureID
	u.NotifyTelegram = user.NotifyTelegram
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, userID int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *userRepo) UpdateRefresh(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.RefreshToken = &token
	u.RefreshExpiresAt = &expiresAt
	u.RefreshRevoked = false
	return nil
}

func (r *userRepo) RotateRefresh(_ context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for _, u := range r.s.users {
		if u.RefreshToken == nil || *u.RefreshToken != oldToken {
			continue
		}
		if u.RefreshRevoked || u.RefreshExpiresAt == nil || !u.RefreshExpiresAt.After(now) {
			return nil, repositories.ErrTokenInvalid
		}
		u.RefreshToken = &newToken
		u.RefreshExpiresAt = &newExpiresAt
		return copyUser(u), nil
	}
	return nil, repositories.ErrTokenInvalid
}

func (r *userRepo) ClearRefresh(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[userID]; ok {
		u.RefreshToken = nil
		u.RefreshExpiresAt = nil
		u.RefreshRevoked = true
	}
	return nil
}

func (r *userRepo) UpdateTelegramLink(_ context.Context, userID int64, chatID int64, enable bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.TelegramChatID = chatID
	u.NotifyTelegram = enable
	return nil
}

type passwordResetRepo struct{ s *Store }

func (r *passwordResetRepo) Create(_ context.Context, userID int64, token string, expiresAt time.Time) (*models.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pr := &models.PasswordReset{
		ID: r.s.next("password_resets"), UserID: userID, Token: token,
		ExpiresAt: expiresAt, CreatedAt: r.s.now(),
	}
	r.s.resets[token] = pr
	c := *pr
	return &c, nil
}

func (r *passwordResetRepo) Consume(_ context.Context, token string) (*models.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pr, ok := r.s.resets[token]
	now := r.s.now()
	if !ok || pr.UsedAt != nil || !pr.ExpiresAt.After(now) {
		return nil, repositories.ErrTokenInvalid
	}
	pr.UsedAt = &now
	c := *pr
	return &c, nil
}

type telegramLinkRepo struct{ s *Store }

func (r *telegramLinkRepo) Create(_ context.Context, userID int64, code string, ttl time.Duration) (*models.TelegramLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	l := &models.TelegramLink{
		ID: r.s.next("telegram_links"), UserID: userID, Code: code,
		ExpiresAt: now.Add(ttl), CreatedAt: now,
	}
	r.s.telegramLinks[code] = l
	c := *l
	return &c, nil
}

func (r *telegramLinkRepo) UseByCode(_ context.Context, code string) (*models.TelegramLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.telegramLinks[code]
	if !ok || l.Used || r.s.now().After(l.ExpiresAt) {
		return nil, repositories.ErrTokenInvalid
	}
	l.Used = true
	c := *l
	return &c, nil
}
