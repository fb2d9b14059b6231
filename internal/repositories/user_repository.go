package repositories

import (
	"context"
	"database/sql"
	"time"

	"intihelp/internal/models"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, full_name, email, password_hash, role_id, phone,
	university_id, career_id, semester, know_how_areas, profile_picture_id,
	refresh_token, refresh_expires_at, refresh_revoked,
	COALESCE(telegram_chat_id,0), notify_telegram, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		universityID sql.NullInt64
		careerID     sql.NullInt64
		semester     sql.NullInt64
		pictureID    sql.NullInt64
		rt           sql.NullString
		rte          sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.RoleID, &u.Phone,
		&universityID, &careerID, &semester, &u.KnowHowAreas, &pictureID,
		&rt, &rte, &u.RefreshRevoked,
		&u.TelegramChatID, &u.NotifyTelegram, &u.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if universityID.Valid {
		u.UniversityID = &universityID.Int64
	}
	if careerID.Valid {
		u.CareerID = &careerID.Int64
	}
	if semester.Valid {
		s := int(semester.Int64)
		u.Semester = &s
	}
	if pictureID.Valid {
		u.ProfilePictureID = &pictureID.Int64
	}
	if rt.Valid {
		s := rt.String
		u.RefreshToken = &s
	}
	if rte.Valid {
		t := rte.Time
		u.RefreshExpiresAt = &t
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (
			full_name, email, password_hash, role_id, phone,
			university_id, career_id, semester, know_how_areas, notify_telegram
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, q,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.RoleID,
		user.Phone,
		user.UniversityID,
		user.CareerID,
		user.Semester,
		user.KnowHowAreas,
		user.NotifyTelegram,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	const q = `
		UPDATE users
		SET
			full_name=$1,
			phone=$2,
			university_id=$3,
			career_id=$4,
			semester=$5,
			know_how_areas=$6,
			profile_picture_id=$7,
			notify_telegram=$8
		WHERE id=$9
	`
	res, err := r.DB.ExecContext(ctx, q,
		user.FullName,
		user.Phone,
		user.UniversityID,
		user.CareerID,
		user.Semester,
		user.KnowHowAreas,
		user.ProfilePictureID,
		user.NotifyTelegram,
		user.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ===== refresh helpers =====

func (r *userRepository) UpdateRefresh(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE id=$3
	`
	_, err := r.DB.ExecContext(ctx, q, token, expiresAt, userID)
	return err
}

func (r *userRepository) RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	q := `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE refresh_token=$3 AND NOT refresh_revoked AND refresh_expires_at > NOW()
		RETURNING ` + userColumns
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, newToken, newExpiresAt, oldToken))
	if err == ErrNotFound {
		return nil, ErrTokenInvalid
	}
	return u, err
}

func (r *userRepository) ClearRefresh(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET refresh_token=NULL, refresh_expires_at=NULL, refresh_revoked=TRUE
		WHERE id=$1
	`, userID)
	return err
}

// ===== telegram helpers =====

func (r *userRepository) UpdateTelegramLink(ctx context.Context, userID int64, chatID int64, enable bool) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET telegram_chat_id=$1, notify_telegram=$2
		WHERE id=$3
	`, chatID, enable, userID)
	return err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
