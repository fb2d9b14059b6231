package repositories

import (
	"context"
	"database/sql"
	"time"

	"intihelp/internal/models"
)

type telegramLinkRepository struct{ db *sql.DB }

func NewTelegramLinkRepository(db *sql.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

func (r *telegramLinkRepository) Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*models.TelegramLink, error) {
	expiresAt := time.Now().Add(ttl)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO telegram_links (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, code, expires_at, used, created_at
	`, userID, code, expiresAt)

	var l models.TelegramLink
	if err := row.Scan(&l.ID, &l.UserID, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *telegramLinkRepository) UseByCode(ctx context.Context, code string) (*models.TelegramLink, error) {
	var l models.TelegramLink
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, user_id, code, expires_at, used, created_at
			FROM telegram_links
			WHERE code=$1
			FOR UPDATE
		`, code).Scan(&l.ID, &l.UserID, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrTokenInvalid
			}
			return err
		}
		if l.Used || time.Now().After(l.ExpiresAt) {
			return ErrTokenInvalid
		}
		_, err = tx.ExecContext(ctx, `UPDATE telegram_links SET used=true WHERE id=$1`, l.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.Used = true
	return &l, nil
}
