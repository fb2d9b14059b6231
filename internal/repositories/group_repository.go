package repositories

import (
	"context"
	"database/sql"

	"intihelp/internal/models"
)

type groupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) GroupRepository {
	return &groupRepository{db: db}
}

const memberColumns = `id, group_id, member_name, user_id, share_amount, payment_status, updated_at`

func scanMember(row rowScanner) (*models.GroupMember, error) {
	var (
		m      models.GroupMember
		userID sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.GroupID, &m.MemberName, &userID, &m.ShareAmount, &m.PaymentStatus, &m.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	if userID.Valid {
		m.UserID = &userID.Int64
	}
	return &m, nil
}

func (r *groupRepository) GetByID(ctx context.Context, id int64) (*models.PaymentGroup, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *groupRepository) GetByTaskID(ctx context.Context, taskID int64) (*models.PaymentGroup, error) {
	return r.get(ctx, `WHERE task_id = $1`, taskID)
}

func (r *groupRepository) get(ctx context.Context, where string, arg int64) (*models.PaymentGroup, error) {
	var g models.PaymentGroup
	err := r.db.QueryRowContext(ctx,
		`SELECT id, task_id, name, group_link, created_at FROM payment_groups `+where, arg,
	).Scan(&g.ID, &g.TaskID, &g.Name, &g.GroupLink, &g.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM group_members WHERE group_id = $1 ORDER BY id`, g.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		g.Members = append(g.Members, *m)
	}
	return &g, rows.Err()
}

func (r *groupRepository) GetMember(ctx context.Context, memberID int64) (*models.GroupMember, error) {
	return scanMember(r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM group_members WHERE id = $1`, memberID))
}
